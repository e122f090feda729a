package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" INFO ":  zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("verbose")
	require.False(t, ok)
}

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestContextHelpers checks that names and fields attached to a context reach the entries.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "packager")
	ctx = WithKV(ctx, "app_id", "abc")
	ctx = WithFields(ctx, map[string]any{"version": "1.0"})

	InfoKV(ctx, "packed", "size", 10)
	DebugKV(ctx, "details")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "packager", entries[0].LoggerName)
	require.Equal(t, "packed", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "abc", fields["app_id"])
	require.Equal(t, "1.0", fields["version"])
	require.EqualValues(t, 10, fields["size"])
}
