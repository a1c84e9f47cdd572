package telemetry

import (
	"context"
	"testing"
)

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := SetupTracing(context.Background(), TracingConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("expected no-op shutdown, got %v", err)
	}
}

func TestSetupTracing_RejectsBadEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := SetupTracing(context.Background(), TracingConfig{Endpoint: "not a url"}); err == nil {
		t.Error("expected error for endpoint without host")
	}
}
