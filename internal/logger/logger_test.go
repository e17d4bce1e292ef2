package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	l := New("test")
	require.NotNil(t, l)

	// Must be usable directly through the embedded zerolog API.
	l.Info().Str("k", "v").Msg("hello")
}

func TestNop(t *testing.T) {
	l := Nop()
	require.NotNil(t, l)

	l.Error().Msg("discarded")
}

func TestChild(t *testing.T) {
	parent := Nop()
	child := parent.Child()

	require.NotNil(t, child)
	assert.NotSame(t, parent, child)
}

func TestContextRoundTrip(t *testing.T) {
	l := Nop()
	ctx := l.WithContext(context.Background())

	got := FromContext(ctx)
	require.NotNil(t, got)
	got.Debug().Msg("from context")
}

func TestFromContext_WithoutLogger(t *testing.T) {
	// zerolog falls back to its global logger, never nil.
	got := FromContext(context.Background())
	require.NotNil(t, got)
}
