package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilGenerationService = errors.New("generation service cannot be nil")
	ErrNilLogger            = errors.New("logger cannot be nil")
	ErrEmptySessionID       = errors.New("session ID cannot be empty")
)

// GenerationService defines the session processing operations that
// background tasks delegate to. The service owns all chunking, LLM calls
// and persistence; the task only drives the lifecycle.
type GenerationService interface {
	// ProcessSession runs the full generation pipeline for a pending session.
	ProcessSession(ctx context.Context, sessionID uuid.UUID) error

	// ContinueSession generates additional cards for an already processed
	// session, avoiding duplicates of its existing cards.
	ContinueSession(ctx context.Context, sessionID uuid.UUID, focusAreas []string) error
}

// sessionGenerationPayload represents the serialized data stored in the task
type sessionGenerationPayload struct {
	SessionID uuid.UUID `json:"session_id"`
}

// continueGenerationPayload represents the serialized data for a
// continue-generation task.
type continueGenerationPayload struct {
	SessionID  uuid.UUID `json:"session_id"`
	FocusAreas []string  `json:"focus_areas,omitempty"`
}

// SessionGenerationTask implements the Task interface for running a
// session's generation pipeline in the background.
type SessionGenerationTask struct {
	id        uuid.UUID
	sessionID uuid.UUID
	svc       GenerationService
	logger    *slog.Logger
	status    TaskStatus
}

// NewSessionGenerationTask creates a new session generation task
func NewSessionGenerationTask(
	sessionID uuid.UUID,
	svc GenerationService,
	logger *slog.Logger,
) (*SessionGenerationTask, error) {
	if svc == nil {
		return nil, ErrNilGenerationService
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if sessionID == uuid.Nil {
		return nil, ErrEmptySessionID
	}

	return &SessionGenerationTask{
		id:        uuid.New(),
		sessionID: sessionID,
		svc:       svc,
		logger:    logger.With("task_type", TaskTypeSessionGeneration, "session_id", sessionID),
		status:    TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *SessionGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *SessionGenerationTask) Type() string {
	return TaskTypeSessionGeneration
}

// Payload returns the task data as a byte slice
func (t *SessionGenerationTask) Payload() []byte {
	payload := sessionGenerationPayload{
		SessionID: t.sessionID,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// If marshal fails, return an empty payload with error logged
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *SessionGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute runs the generation pipeline for the session. The service
// handles per-chunk failures and session status transitions itself; an
// error here means the run as a whole could not proceed.
func (t *SessionGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting session generation task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.svc.ProcessSession(ctx, t.sessionID); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("session generation failed", "error", err)
		return fmt.Errorf("session generation failed: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("session generation task completed successfully")
	return nil
}

// ContinueGenerationTask implements the Task interface for generating
// additional cards for a session after its initial run.
type ContinueGenerationTask struct {
	id         uuid.UUID
	sessionID  uuid.UUID
	focusAreas []string
	svc        GenerationService
	logger     *slog.Logger
	status     TaskStatus
}

// NewContinueGenerationTask creates a new continue-generation task
func NewContinueGenerationTask(
	sessionID uuid.UUID,
	focusAreas []string,
	svc GenerationService,
	logger *slog.Logger,
) (*ContinueGenerationTask, error) {
	if svc == nil {
		return nil, ErrNilGenerationService
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if sessionID == uuid.Nil {
		return nil, ErrEmptySessionID
	}

	return &ContinueGenerationTask{
		id:         uuid.New(),
		sessionID:  sessionID,
		focusAreas: focusAreas,
		svc:        svc,
		logger:     logger.With("task_type", TaskTypeContinueGeneration, "session_id", sessionID),
		status:     TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *ContinueGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ContinueGenerationTask) Type() string {
	return TaskTypeContinueGeneration
}

// Payload returns the task data as a byte slice
func (t *ContinueGenerationTask) Payload() []byte {
	payload := continueGenerationPayload{
		SessionID:  t.sessionID,
		FocusAreas: t.focusAreas,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current task status
func (t *ContinueGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute generates additional cards for the session.
func (t *ContinueGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting continue generation task", "focus_areas", t.focusAreas)

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.svc.ContinueSession(ctx, t.sessionID, t.focusAreas); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("continue generation failed", "error", err)
		return fmt.Errorf("continue generation failed: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("continue generation task completed successfully")
	return nil
}
