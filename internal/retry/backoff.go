// Package retry factors the exponential-backoff-forever pattern that
// appears at three independent call sites in the bridge: pool
// acquisition, AMQP session open, and publish retry after a transport
// error.
package retry

import (
	"context"
	"time"
)

// Schedule is the bridge-wide backoff sequence: 1, 2, 4, 8, 16, 32
// seconds, then reset to 1.
var Schedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
	32 * time.Second,
}

// Forever calls op until it returns a nil error or ctx is cancelled.
// Between attempts it sleeps for the next Schedule entry, wrapping
// back to the start once exhausted. onAttemptFailed, if non-nil, is
// invoked with the error and the delay about to be slept, for
// logging.
func Forever(ctx context.Context, op func() error, onAttemptFailed func(err error, next time.Duration)) error {
	attempt := 0
	for {
		err := op()
		if err == nil {
			return nil
		}

		delay := Schedule[attempt%len(Schedule)]
		attempt++

		if onAttemptFailed != nil {
			onAttemptFailed(err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
