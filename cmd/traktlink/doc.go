/*
traktlink links a Trakt account to a Stremio account by driving both sites'
web UIs in a headless browser.

Usage:

	traktlink [flags]

A run signs in to Stremio, opens Trakt's authorization page, signs in to
Trakt if asked, approves the consent screen and reports where the browser
ended up. Only missing configuration and a failed Stremio sign-in stop the
run early; everything after that is logged and the run carries on.

Flags:

	-debug          Debug logging and browser protocol logs
	-env-file path  Extra env file, read before ./.env and ~/.traktlink/env
	-headless       Run the browser without a window (default true)
	-screenshots    Save a screenshot at each checkpoint
	-driver name    Browser driver: chromedp (default) or rod
	-sign-out p     Sign out of Stremio afterwards: never, on-success, always
	-browser path   Browser executable

Environment:

	STREMIO_EMAIL, STREMIO_PASSWORD  Stremio account (required)
	TRAKT_EMAIL, TRAKT_PASSWORD      Trakt account (required)
	TRAKT_LINK_ID                    Per-account authorization link
	TRAKTLINK_LOGIN_MODE             Trakt sign-in: keyboard or form
	TRAKTLINK_SCREENSHOT_DIR         Where screenshots go

Exit status is 0 when the run finishes, including runs where Trakt's
consent or the final redirect could not be confirmed, and 1 otherwise.
*/
package main
