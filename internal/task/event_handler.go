package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/events"
)

// NewSessionGenerationEvent builds a task request event asking for the full
// generation pipeline to run for the given session.
func NewSessionGenerationEvent(sessionID uuid.UUID) (*events.TaskRequestEvent, error) {
	return events.NewTaskRequestEvent(TaskTypeSessionGeneration, sessionGenerationPayload{
		SessionID: sessionID,
	})
}

// NewContinueGenerationEvent builds a task request event asking for
// additional cards to be generated for an already processed session.
func NewContinueGenerationEvent(sessionID uuid.UUID, focusAreas []string) (*events.TaskRequestEvent, error) {
	return events.NewTaskRequestEvent(TaskTypeContinueGeneration, continueGenerationPayload{
		SessionID:  sessionID,
		FocusAreas: focusAreas,
	})
}

// TaskRunnerSubmitter is implemented by the runner; defined here so the
// handler can be tested without a real runner.
type TaskRunnerSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// GenerationEventHandler implements events.EventHandler. It turns task
// request events emitted by the services into generation tasks and submits
// them to the runner, keeping the services decoupled from task execution.
type GenerationEventHandler struct {
	factory *GenerationTaskFactory
	runner  TaskRunnerSubmitter
	logger  *slog.Logger
}

// NewGenerationEventHandler creates an event handler that creates generation
// tasks via the factory and submits them to the runner.
func NewGenerationEventHandler(
	factory *GenerationTaskFactory,
	runner TaskRunnerSubmitter,
	logger *slog.Logger,
) *GenerationEventHandler {
	return &GenerationEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "generation_event_handler"),
	}
}

// HandleEvent processes a task request event by creating the matching task
// and submitting it for execution. Events with unrecognized types are
// ignored so other handlers can claim them.
func (h *GenerationEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	var task Task
	var err error

	switch event.Type {
	case TaskTypeSessionGeneration:
		task, err = h.sessionTaskFromEvent(event)
	case TaskTypeContinueGeneration:
		task, err = h.continueTaskFromEvent(event)
	default:
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	if err != nil {
		h.logger.Error("failed to create task from event",
			"error", err,
			"event_type", event.Type,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task from event: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted successfully",
		"task_id", task.ID(),
		"task_type", task.Type(),
		"event_id", event.ID)
	return nil
}

func (h *GenerationEventHandler) sessionTaskFromEvent(event *events.TaskRequestEvent) (Task, error) {
	var payload sessionGenerationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return h.factory.CreateSessionTask(payload.SessionID)
}

func (h *GenerationEventHandler) continueTaskFromEvent(event *events.TaskRequestEvent) (Task, error) {
	var payload continueGenerationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return h.factory.CreateContinueTask(payload.SessionID, payload.FocusAreas)
}

// Ensure GenerationEventHandler implements events.EventHandler
var _ events.EventHandler = (*GenerationEventHandler)(nil)
