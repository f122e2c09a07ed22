package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fatflowers/gymdesk/pkg/apperr"
)

const DefaultMaxAttempts = 5

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

// Retry runs attempt until it succeeds, fails with anything but
// ErrConflict, or maxAttempts conflicts happened in a row. Running out of
// attempts surfaces as a store error so callers may try again later.
func Retry(ctx context.Context, maxAttempts int, attempt func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(maxAttempts-1)), ctx)

	err := backoff.Retry(func() error {
		err := attempt()
		if err == nil || errors.Is(err, ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	if errors.Is(err, ErrConflict) {
		return apperr.Store("commit", fmt.Errorf("gave up after %d attempts: %w", maxAttempts, err))
	}
	return err
}
