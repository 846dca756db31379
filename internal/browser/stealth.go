package browser

import (
	"context"
	"math/rand"
	"time"
)

// Pacer inserts the settle delays between browser actions.
type Pacer interface {
	Pause(ctx context.Context, min, max time.Duration) error
}

// HumanPacer waits a random duration between min and max, like a person would.
type HumanPacer struct{}

func (HumanPacer) Pause(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoDelay skips every pause but still honours cancellation. Used by tests and fixture replays.
type NoDelay struct{}

func (NoDelay) Pause(ctx context.Context, _, _ time.Duration) error {
	return ctx.Err()
}

// WaitForURL polls the current URL until match accepts it or the timeout expires.
func WaitForURL(ctx context.Context, page Page, pacer Pacer, timeout, interval time.Duration, match func(string) bool) error {
	attempts := 1
	if interval > 0 {
		attempts = int(timeout / interval)
	}
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if match(page.CurrentURL()) {
			return nil
		}
		if err := pacer.Pause(ctx, interval, interval); err != nil {
			return err
		}
	}
	if match(page.CurrentURL()) {
		return nil
	}
	return &DomInteractionError{Op: "wait for url", Err: ErrTimeout}
}
