package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks configuration that can never succeed
	// (bad chunk sizing, unknown provider). Fails fast before any I/O.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput marks a bad item (empty text, malformed corpus entry).
	// Not retryable; the offending item is identified in the message.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderUnavailable marks a provider that cannot be reached or
	// answered with a server error. Retryable with backoff.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited marks a provider pushing back. Retryable with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrDimensionMismatch marks a vector whose length differs from the
	// dimensionality the store was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrStoreUnavailable marks an unreachable vector store. Surfaced after
	// a small retry bound, never retried indefinitely.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrContextTooLong marks an assembled context that exceeds a provider's
	// budget. Surfaced per provider, never silently truncated.
	ErrContextTooLong = errors.New("context too long")

	// ErrTemporary tags transient failures after the retry budget is spent.
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Kind reduces an error to its taxonomy sentinel for reporting, e.g. in
// fan-out result maps. Returns nil for nil and ErrTemporary-only errors
// fall back to ErrProviderUnavailable.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		ErrInvalidConfig,
		ErrInvalidInput,
		ErrRateLimited,
		ErrDimensionMismatch,
		ErrStoreUnavailable,
		ErrContextTooLong,
		ErrProviderUnavailable,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	if errors.Is(err, ErrTemporary) {
		return ErrProviderUnavailable
	}
	return err
}
