package llmclient

import (
	"context"
	"time"

	"github.com/kgraph/kgraph/internal/apperr"
)

// DefaultMaxAttempts is the retry budget for malformed-output and
// rate-limit errors before a chunk's extraction fails (spec §4.2).
const DefaultMaxAttempts = 3

// RetryableError wraps a provider error and an optional provider-advised
// retry delay (used for rate-limit responses).
type RetryableError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// withRetry runs fn up to maxAttempts times, backing off exponentially
// between attempts (or honoring a RetryableError's provider-advised delay),
// and converts a final attempt's ordinary error into an apperr Provider kind.
func withRetry(ctx context.Context, maxAttempts int, fn func() (ExtractionResult, Usage, error)) (ExtractionResult, Usage, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		res, usage, err := fn()
		if err == nil {
			return res, usage, nil
		}
		lastErr = err

		var re *RetryableError
		delay := backoff
		if ok := asRetryable(err, &re); ok && re.RetryAfter > 0 {
			delay = re.RetryAfter
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ExtractionResult{}, Usage{}, ctx.Err()
		case <-time.After(delay):
		}
		backoff *= 2
	}
	return ExtractionResult{}, Usage{}, apperr.Provider(lastErr, "extraction failed after %d attempts", maxAttempts)
}

func asRetryable(err error, target **RetryableError) bool {
	re, ok := err.(*RetryableError)
	if ok {
		*target = re
	}
	return ok
}
