package browser

import (
	"context"
	"time"
)

const pollInterval = 250 * time.Millisecond

// ResilientClick tries a bounded visibility wait followed by a click and,
// if either fails, a script click on the same selector. It reports whether
// a click was performed. Absence of the target is not an error.
func ResilientClick(ctx context.Context, p Page, selector string, timeout time.Duration) bool {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	err := p.WaitVisible(wctx, selector)
	if err == nil {
		err = p.Click(wctx, selector)
	}
	cancel()
	if err == nil {
		return true
	}

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clicked, err := p.ClickScript(sctx, selector)
	return err == nil && clicked
}

// FirstPresent polls selectors in order until one exists or timeout passes.
func FirstPresent(ctx context.Context, p Page, selectors []string, timeout time.Duration) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		for _, sel := range selectors {
			if ok, err := p.Exists(ctx, sel); err == nil && ok {
				return sel, true
			}
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-ticker.C:
		}
	}
}
