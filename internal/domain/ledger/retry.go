package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 10 * time.Millisecond
)

// Retrier re-runs a whole read-modify-write cycle when the store reports a
// write conflict. Any other outcome is returned as is.
type Retrier struct {
	Attempts int
	Backoff  time.Duration
	OnRetry  func(attempt int, err error)
}

func NewRetrier() *Retrier {
	return &Retrier{Attempts: DefaultRetryAttempts, Backoff: DefaultRetryBackoff}
}

func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		err = fn()
		if !errors.Is(err, ErrInvariantViolation) {
			return err
		}
		if r.OnRetry != nil {
			r.OnRetry(i, err)
		}
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrTransient, ctx.Err())
		case <-time.After(r.Backoff * time.Duration(i)):
		}
	}
	return fmt.Errorf("%w: gave up after %d attempts: %v", ErrTransient, attempts, err)
}
