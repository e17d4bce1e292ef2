package utils

import (
	"context"
	"testing"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-123")

	traceID, ok := GetTraceIDFromContext(ctx)
	if !ok {
		t.Fatal("trace id not found in context")
	}
	if traceID != "trace-123" {
		t.Errorf("expected trace-123, got %q", traceID)
	}
}

func TestGetTraceIDFromContext_Missing(t *testing.T) {
	if _, ok := GetTraceIDFromContext(context.Background()); ok {
		t.Error("expected ok=false for a context without a trace id")
	}
}

func TestTraceIDGenerator_Generate(t *testing.T) {
	g := NewTraceIDGenerator()

	first := g.Generate()
	second := g.Generate()

	if first == "" || second == "" {
		t.Fatal("generated trace ids must not be empty")
	}
	if first == second {
		t.Error("consecutive trace ids must differ")
	}
}
