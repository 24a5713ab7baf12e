package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFields_Empty(t *testing.T) {
	fields := ContextFields(context.Background())
	assert.Empty(t, fields)
}

func TestContextFields_Correlation(t *testing.T) {
	ctx := WithCaseID(context.Background(), "case-42")
	ctx = WithSessionID(ctx, "ivw_42")
	ctx = WithRequestID(ctx, "req_42")

	fields := ContextFields(ctx)
	require.Len(t, fields, 3)

	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Contains(t, keys, "case.id")
	assert.Contains(t, keys, "session.id")
	assert.Contains(t, keys, "request.id")
}

func TestWithCaseID_Validation(t *testing.T) {
	tests := []struct {
		name   string
		caseID string
		panics bool
	}{
		{name: "valid id", caseID: "mkt-entry_2024", panics: false},
		{name: "empty id", caseID: "", panics: true},
		{name: "spaces rejected", caseID: "my case", panics: true},
		{name: "path traversal rejected", caseID: "../etc/passwd", panics: true},
		{name: "too long", caseID: strings.Repeat("a", maxIDLen+1), panics: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.panics {
				assert.Panics(t, func() {
					WithCaseID(context.Background(), tt.caseID)
				})
				return
			}
			ctx := WithCaseID(context.Background(), tt.caseID)
			assert.Equal(t, tt.caseID, CaseIDFromContext(ctx))
		})
	}
}

func TestFromContext_Fallback(t *testing.T) {
	// Missing logger yields a usable nop logger, never nil.
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	logger.Info(context.Background(), "does not panic")
}

func TestFromContext_RoundTrip(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)

	got := FromContext(ctx)
	assert.Same(t, tl.Logger, got)
}
