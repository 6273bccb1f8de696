// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
	}{
		{name: "nil context", ctx: nil, requestID: "test-id-123"},
		{name: "background context", ctx: context.Background(), requestID: "req-456"},
		{name: "empty request ID", ctx: context.Background(), requestID: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			assert.Equal(t, tt.requestID, RequestIDFromContext(ctx))
		})
	}
}

func TestWithContext_AddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithCameraID(ContextWithRequestID(context.Background(), "r1"), "cam9")
	l := WithContext(ctx, base)
	l.Info().Msg("x")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "r1", entry[FieldRequestID])
	assert.Equal(t, "cam9", entry[FieldCameraID])
}

func TestFromContext_FallsBackToBase(t *testing.T) {
	assert.NotNil(t, FromContext(nil)) //nolint:staticcheck // nil ctx is part of the contract
	assert.NotNil(t, FromContext(context.Background()))
}
