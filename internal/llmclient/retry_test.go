package llmclient

import (
	"errors"
	"testing"
	"time"
)

func TestWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	res, _, err := withRetry(t.Context(), 3, func() (ExtractionResult, Usage, error) {
		attempts++
		if attempts < 2 {
			return ExtractionResult{}, Usage{}, &RetryableError{Err: errors.New("rate limited"), RetryAfter: time.Millisecond}
		}
		return ExtractionResult{Concepts: []ExtractedConcept{{Label: "ok"}}}, Usage{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if len(res.Concepts) != 1 {
		t.Fatalf("expected successful result, got %+v", res)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, _, err := withRetry(t.Context(), 3, func() (ExtractionResult, Usage, error) {
		attempts++
		return ExtractionResult{}, Usage{}, errors.New("malformed output")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}
