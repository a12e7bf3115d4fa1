package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskRequestEvent(t *testing.T) {
	type generationRequest struct {
		SessionID uuid.UUID `json:"session_id"`
		Provider  string    `json:"provider"`
	}

	payload := generationRequest{
		SessionID: uuid.New(),
		Provider:  "gemini",
	}

	event, err := NewTaskRequestEvent("session_generation", payload)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "session_generation", event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	// payload round-trips through the raw JSON field
	var decoded generationRequest
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

// recordingHandler implements EventHandler and records what it saw.
type recordingHandler struct {
	LastEvent    *TaskRequestEvent
	HandlerError error
	HandledCount int
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestEventHandler(t *testing.T) {
	handler := &recordingHandler{}

	event, err := NewTaskRequestEvent("session_generation", map[string]string{"key": "value"})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Equal(t, 1, handler.HandledCount)
	assert.Equal(t, event, handler.LastEvent)

	handler.HandlerError = errors.New("handler error")
	err = handler.HandleEvent(context.Background(), event)
	assert.EqualError(t, err, "handler error")
	assert.Equal(t, 2, handler.HandledCount)
}
