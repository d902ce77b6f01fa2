package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff retries an operation with exponential delays of base, 2*base,
// 4*base... plus up to base/2 of jitter.
type Backoff struct {
	base       time.Duration
	maxRetries int
}

func NewBackoff(base time.Duration, maxRetries int) Backoff {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return Backoff{base: base, maxRetries: maxRetries}
}

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do stops retrying and returns err as is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, retries run out
// or ctx is done. fn receives the zero-based attempt number.
func (b Backoff) Do(ctx context.Context, fn func(i int) error) error {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		err = fn(i)
		if err == nil {
			return nil
		}
		if p, ok := err.(permanent); ok {
			return p.err
		}
		if i == b.maxRetries {
			break
		}
		t := time.NewTimer(b.delay(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

func (b Backoff) delay(i int) time.Duration {
	d := time.Duration(1<<i) * b.base
	if half := int64(b.base / 2); half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}
