package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// GenerationTaskFactory creates generation tasks and provides the resolvers
// that rebind recovered tasks to the generation service after a restart.
type GenerationTaskFactory struct {
	svc    GenerationService
	logger *slog.Logger
}

// NewGenerationTaskFactory creates a new factory for generation tasks
func NewGenerationTaskFactory(
	svc GenerationService,
	logger *slog.Logger,
) (*GenerationTaskFactory, error) {
	if svc == nil {
		return nil, ErrNilGenerationService
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &GenerationTaskFactory{
		svc:    svc,
		logger: logger,
	}, nil
}

// CreateSessionTask creates a task that runs the full generation pipeline
// for the given session.
func (f *GenerationTaskFactory) CreateSessionTask(sessionID uuid.UUID) (*SessionGenerationTask, error) {
	return NewSessionGenerationTask(sessionID, f.svc, f.logger)
}

// CreateContinueTask creates a task that generates additional cards for an
// already processed session.
func (f *GenerationTaskFactory) CreateContinueTask(
	sessionID uuid.UUID,
	focusAreas []string,
) (*ContinueGenerationTask, error) {
	return NewContinueGenerationTask(sessionID, focusAreas, f.svc, f.logger)
}

// RegisterWith registers this factory's resolvers on the runner so tasks
// persisted before a restart can execute again.
func (f *GenerationTaskFactory) RegisterWith(runner *TaskRunner) {
	runner.RegisterResolver(TaskTypeSessionGeneration, f.ResolveSessionTask)
	runner.RegisterResolver(TaskTypeContinueGeneration, f.ResolveContinueTask)
}

// ResolveSessionTask reconstructs the execution function for a persisted
// session generation task from its payload.
func (f *GenerationTaskFactory) ResolveSessionTask(payload []byte) (ExecuteFn, error) {
	var p sessionGenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session generation payload: %w", err)
	}
	if p.SessionID == uuid.Nil {
		return nil, ErrEmptySessionID
	}

	return func(ctx context.Context) error {
		return f.svc.ProcessSession(ctx, p.SessionID)
	}, nil
}

// ResolveContinueTask reconstructs the execution function for a persisted
// continue-generation task from its payload.
func (f *GenerationTaskFactory) ResolveContinueTask(payload []byte) (ExecuteFn, error) {
	var p continueGenerationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal continue generation payload: %w", err)
	}
	if p.SessionID == uuid.Nil {
		return nil, ErrEmptySessionID
	}

	return func(ctx context.Context) error {
		return f.svc.ContinueSession(ctx, p.SessionID, p.FocusAreas)
	}, nil
}
