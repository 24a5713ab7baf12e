package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "default config",
			config:  NewDefaultConfig(),
			wantErr: false,
		},
		{
			name: "console format",
			config: &Config{
				Level:  zapcore.DebugLevel,
				Format: "console",
				Output: OutputConfig{Stdout: true},
			},
			wantErr: false,
		},
		{
			name: "invalid config rejected",
			config: &Config{
				Level:  zapcore.InfoLevel,
				Format: "yaml",
			},
			wantErr: true,
		},
		{
			name: "otel output without provider fails",
			config: &Config{
				Level:  zapcore.InfoLevel,
				Format: "json",
				Output: OutputConfig{Stdout: false, OTEL: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config, nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.NotNil(t, logger.Underlying())
		})
	}
}

func TestLogger_ContextFields(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithCaseID(context.Background(), "mkt-entry-2024")
	ctx = WithSessionID(ctx, "ivw_abc123")
	tl.Info(ctx, "response evaluated", zap.Float64("overall", 7.5))

	tl.AssertLogged(t, zapcore.InfoLevel, "response evaluated")
	tl.AssertField(t, "response evaluated", "case.id", "mkt-entry-2024")
	tl.AssertField(t, "response evaluated", "session.id", "ivw_abc123")

	entries := tl.FilterMessage("response evaluated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, 7.5, entries[0].ContextMap()["overall"])
}

func TestLogger_Levels(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Debug(ctx, "debug msg")
	tl.Info(ctx, "info msg")
	tl.Warn(ctx, "warn msg")
	tl.Error(ctx, "error msg")

	tl.AssertLogged(t, zapcore.DebugLevel, "debug msg")
	tl.AssertLogged(t, zapcore.InfoLevel, "info msg")
	tl.AssertLogged(t, zapcore.WarnLevel, "warn msg")
	tl.AssertLogged(t, zapcore.ErrorLevel, "error msg")
}

func TestLogger_ChildLoggers(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	child := tl.With(zap.String("component", "factstore"))
	child.Info(ctx, "index built")

	tl.AssertField(t, "index built", "component", "factstore")

	// Parent is unaffected by child fields.
	tl.Reset()
	tl.Info(ctx, "parent msg")
	entries := tl.FilterMessage("parent msg").All()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Context)
}

func TestLogger_Named(t *testing.T) {
	tl := NewTestLogger()

	named := tl.Named("interview")
	named.Info(context.Background(), "session started")

	entries := tl.FilterMessage("session started").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "interview", entries[0].LoggerName)
}

func TestLogger_Sync(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)

	// Sync on stdout must not surface EINVAL/ENOTTY.
	assert.NoError(t, logger.Sync())
}
