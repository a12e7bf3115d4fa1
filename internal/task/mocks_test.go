package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTask is a Task whose Execute body the test controls.
type MockTask struct {
	TaskID      uuid.UUID
	TaskType    string
	TaskPayload []byte
	TaskStatus  TaskStatus
	ExecuteFn   func(ctx context.Context) error
}

func NewMockTask(id uuid.UUID, taskType string, payload []byte) *MockTask {
	return &MockTask{
		TaskID:      id,
		TaskType:    taskType,
		TaskPayload: payload,
		TaskStatus:  TaskStatusPending,
		ExecuteFn:   func(ctx context.Context) error { return nil },
	}
}

func (t *MockTask) ID() uuid.UUID      { return t.TaskID }
func (t *MockTask) Type() string       { return t.TaskType }
func (t *MockTask) Payload() []byte    { return t.TaskPayload }
func (t *MockTask) Status() TaskStatus { return t.TaskStatus }

func (t *MockTask) Execute(ctx context.Context) error { return t.ExecuteFn(ctx) }

// MockTaskStore is an in-memory TaskStore. It tracks when each task last
// changed status so GetProcessingTasks can honor the olderThan cutoff.
// SaveFn and UpdateStatusFn may be replaced to inject failures.
type MockTaskStore struct {
	mutex          sync.RWMutex
	tasks          map[uuid.UUID]Task
	statusTimes    map[uuid.UUID]time.Time
	SaveFn         func(ctx context.Context, task Task) error
	UpdateStatusFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
}

func NewMockTaskStore() *MockTaskStore {
	store := &MockTaskStore{
		tasks:       make(map[uuid.UUID]Task),
		statusTimes: make(map[uuid.UUID]time.Time),
	}

	store.SaveFn = func(ctx context.Context, t Task) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		mockTask, ok := t.(*MockTask)
		if !ok {
			mockTask = NewMockTask(t.ID(), t.Type(), t.Payload())
			mockTask.TaskStatus = t.Status()
		}
		store.tasks[t.ID()] = mockTask
		store.statusTimes[t.ID()] = time.Now()
		return nil
	}

	store.UpdateStatusFn = func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		t, exists := store.tasks[taskID]
		if !exists {
			return nil
		}
		t.(*MockTask).TaskStatus = status
		store.statusTimes[taskID] = time.Now()
		return nil
	}

	return store
}

func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	return s.SaveFn(ctx, task)
}

func (s *MockTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	return s.UpdateStatusFn(ctx, taskID, status, errorMsg)
}

func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	return s.tasksInStatus(TaskStatusPending, 0), nil
}

func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	return s.tasksInStatus(TaskStatusProcessing, olderThan), nil
}

func (s *MockTaskStore) tasksInStatus(status TaskStatus, olderThan time.Duration) []Task {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := time.Now()
	var matched []Task
	for _, t := range s.tasks {
		if t.Status() != status {
			continue
		}
		changedAt, known := s.statusTimes[t.ID()]
		if olderThan == 0 || (known && now.Sub(changedAt) > olderThan) {
			matched = append(matched, t)
		}
	}
	return matched
}

func (s *MockTaskStore) WithTx(tx *sql.Tx) TaskStore { return s }
