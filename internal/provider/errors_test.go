package provider

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrRateLimit,
		ErrContextLength,
		ErrProviderDown,
		ErrAuthentication,
		ErrModelNotFound,
		ErrNoProvider,
	}

	for i, a := range sentinels {
		if a.Error() == "" {
			t.Fatalf("sentinel %d must have a non-empty message", i)
		}
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v must not match %v", a, b)
			}
		}
	}
}

func TestWrappedSentinel(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: connection refused", ErrProviderDown)
	if !errors.Is(err, ErrProviderDown) {
		t.Error("expected wrapped error to match ErrProviderDown")
	}
	if errors.Is(err, ErrRateLimit) {
		t.Error("expected wrapped error not to match ErrRateLimit")
	}
}

func TestTokenUsageAdd(t *testing.T) {
	t.Parallel()

	got := TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}.
		Add(TokenUsage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30})

	if got.PromptTokens != 30 || got.CompletionTokens != 15 || got.TotalTokens != 45 {
		t.Errorf("expected 30/15/45, got %+v", got)
	}
}
