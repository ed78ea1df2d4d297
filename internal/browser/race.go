package browser

import (
	"context"
	"time"
)

// RaceResult says which side of RaceNavigation settled first.
type RaceResult int

const (
	RaceNavigated RaceResult = iota
	RaceNavigationFailed
	RaceTimer
)

func (r RaceResult) String() string {
	switch r {
	case RaceNavigated:
		return "navigated"
	case RaceNavigationFailed:
		return "navigation failed"
	default:
		return "timer"
	}
}

// RaceNavigation waits for the next navigation on p or for limit to pass,
// whichever comes first. A navigation wait that loses the race keeps
// running until p's next load or ctx ends; its result is dropped.
func RaceNavigation(ctx context.Context, p Page, limit time.Duration) (RaceResult, error) {
	done := make(chan error, 1)
	go func() { done <- p.WaitNavigation(ctx) }()

	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return RaceNavigationFailed, err
		}
		return RaceNavigated, nil
	case <-timer.C:
		return RaceTimer, nil
	case <-ctx.Done():
		return RaceTimer, ctx.Err()
	}
}
