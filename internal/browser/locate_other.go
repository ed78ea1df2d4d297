//go:build !darwin

package browser

func platformBrowser() string { return "" }
