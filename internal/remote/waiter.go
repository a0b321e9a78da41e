package remote

import (
	"context"
	"time"
)

// Waiter suspends a poll loop between status requests. Tests swap in a Waiter that
// returns immediately or on demand.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

type WaiterFunc func(ctx context.Context, d time.Duration) error

func (f WaiterFunc) Wait(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerWaiter waits for d or until ctx is done.
var TimerWaiter Waiter = WaiterFunc(func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
})
