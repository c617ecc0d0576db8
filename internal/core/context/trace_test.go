package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOperation(t *testing.T) {
	ctx := StartOperation(context.Background(), "alice/recompute")

	trace := GetTrace(ctx)
	require.NotNil(t, trace)
	assert.Equal(t, "alice/recompute", GetActor(ctx))
	assert.Len(t, trace.OperationID, 8)
	assert.Equal(t, trace.TraceID, GetTraceID(ctx))

	// An existing operation is kept.
	again := StartOperation(ctx, "bob/audit")
	assert.Same(t, trace, GetTrace(again))
}

func TestGetTrace_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetTrace(ctx))
	assert.Empty(t, GetActor(ctx))
	assert.NotEmpty(t, GetTraceID(ctx))
}
