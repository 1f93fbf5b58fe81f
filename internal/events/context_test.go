package events_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/calcvault/internal/events"
)

func TestFromContext(t *testing.T) {
	logger := events.FromContext(context.Background())
	assert.NotNil(t, logger)
}

func TestWithLogger(t *testing.T) {
	logger := &events.Logger{}

	ctx := events.WithLogger(context.Background(), logger)
	retrieved := events.FromContext(ctx)

	assert.Same(t, logger, retrieved)
}

func TestWithTaskID(t *testing.T) {
	var buf bytes.Buffer
	ctx := events.WithLogger(context.Background(), events.NewTestLogger(events.InfoLevel, "json", &buf))

	ctx = events.WithTaskID(ctx, "task-123")
	assert.Equal(t, "task-123", events.GetTaskID(ctx))

	events.FromContext(ctx).Info("tagged")
	assert.Contains(t, buf.String(), `"task_id":"task-123"`)
}

func TestGetTaskIDEmpty(t *testing.T) {
	assert.Empty(t, events.GetTaskID(context.Background()))
}
