package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

// Possible session status values
const (
	// SessionStatusPending means the document has been uploaded but
	// generation has not been started.
	SessionStatusPending SessionStatus = "pending"

	// SessionStatusProcessing means the chunk pipeline is running.
	SessionStatusProcessing SessionStatus = "processing"

	// SessionStatusReady means generation finished and cards await review.
	SessionStatusReady SessionStatus = "ready"

	// SessionStatusReviewing means at least one review action has occurred.
	SessionStatusReviewing SessionStatus = "reviewing"

	// SessionStatusFinalized means the review phase is frozen. No
	// transition leaves this state.
	SessionStatusFinalized SessionStatus = "finalized"

	// SessionStatusFailed means every chunk failed or the pipeline was
	// abandoned.
	SessionStatusFailed SessionStatus = "failed"
)

// SourceType identifies the kind of document a session was created from.
type SourceType string

// Possible source type values
const (
	SourceTypePDF      SourceType = "pdf"
	SourceTypeMarkdown SourceType = "markdown"
)

// Provider identifies which LLM backend a session uses.
type Provider string

// Possible provider values
const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Session-specific validation errors
var (
	// ErrEmptySessionID is returned when a session ID is empty or nil.
	ErrEmptySessionID = errors.New("session ID cannot be empty")

	// ErrEmptySessionFilename is returned when a session's filename is empty.
	ErrEmptySessionFilename = errors.New("session filename cannot be empty")

	// ErrInvalidSessionStatus is returned when a session status is not valid.
	ErrInvalidSessionStatus = errors.New("invalid session status")

	// ErrInvalidSourceType is returned when a source type is not valid.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrInvalidProvider is returned when an LLM provider is not valid.
	ErrInvalidProvider = errors.New("invalid LLM provider")

	// ErrInvalidSessionTransition is returned when a status transition is
	// not permitted by the session state machine.
	ErrInvalidSessionTransition = errors.New("invalid session status transition")

	// ErrChunkProgressRegression is returned when processed chunks would
	// exceed the total chunk count.
	ErrChunkProgressRegression = errors.New("processed chunks cannot exceed total chunks")
)

// sessionTransitions is the session state machine. Generation moves
// pending through processing to ready or failed; the first review action
// moves ready to reviewing; finalize is reachable from ready or reviewing.
// Continue-generation re-enters processing from ready or reviewing.
// finalized and failed have no outgoing transitions.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusPending:    {SessionStatusProcessing},
	SessionStatusProcessing: {SessionStatusReady, SessionStatusFailed},
	SessionStatusReady:      {SessionStatusReviewing, SessionStatusProcessing, SessionStatusFinalized},
	SessionStatusReviewing:  {SessionStatusProcessing, SessionStatusFinalized},
	SessionStatusFinalized:  {},
	SessionStatusFailed:     {},
}

// Session represents one end-to-end document-to-cards workflow run. The
// orchestrator mutates its status and chunk counters; cards reference it
// by ID and are removed only by an explicit session delete.
type Session struct {
	ID              uuid.UUID       `json:"id"`
	Filename        string          `json:"filename"`
	FilePath        string          `json:"-"`
	SourceType      SourceType      `json:"source_type"`
	Status          SessionStatus   `json:"status"`
	TotalChunks     int             `json:"total_chunks"`
	ProcessedChunks int             `json:"processed_chunks"`
	FailedChunks    int             `json:"failed_chunks"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	Provider        Provider        `json:"llm_provider"`
	PromptVersionID uuid.UUID       `json:"prompt_version_id,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// NewSession creates a pending Session for an uploaded document.
// Returns an error if validation fails.
func NewSession(filename, filePath string, sourceType SourceType, provider Provider) (*Session, error) {
	session := &Session{
		ID:         uuid.New(),
		Filename:   filename,
		FilePath:   filePath,
		SourceType: sourceType,
		Status:     SessionStatusPending,
		Provider:   provider,
		CreatedAt:  time.Now().UTC(),
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the Session has valid data.
// Returns an error if any field fails validation.
func (s *Session) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySessionID
	}

	if s.Filename == "" {
		return ErrEmptySessionFilename
	}

	if !isValidSourceType(s.SourceType) {
		return ErrInvalidSourceType
	}

	if !isValidSessionStatus(s.Status) {
		return ErrInvalidSessionStatus
	}

	if !IsValidProvider(s.Provider) {
		return ErrInvalidProvider
	}

	if s.TotalChunks < 0 || s.ProcessedChunks < 0 || s.FailedChunks < 0 {
		return ErrChunkProgressRegression
	}

	return nil
}

// TransitionTo is the single dispatch point for session status changes.
// Every status change flows through here so illegal transitions cannot be
// introduced elsewhere.
func (s *Session) TransitionTo(target SessionStatus) error {
	if !isValidSessionStatus(target) {
		return ErrInvalidSessionStatus
	}

	allowed, ok := sessionTransitions[s.Status]
	if !ok {
		return ErrInvalidSessionStatus
	}

	for _, t := range allowed {
		if t == target {
			s.Status = target
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidSessionTransition, s.Status, target)
}

// StartProcessing moves the session into the processing state. Valid from
// pending (initial generation) and from ready or reviewing (continue
// generation).
func (s *Session) StartProcessing() error {
	return s.TransitionTo(SessionStatusProcessing)
}

// MarkReady completes processing successfully and stamps the completion
// time.
func (s *Session) MarkReady() error {
	if err := s.TransitionTo(SessionStatusReady); err != nil {
		return err
	}
	now := time.Now().UTC()
	s.CompletedAt = &now
	return nil
}

// MarkFailed moves the session to failed and records a retrievable
// failure reason.
func (s *Session) MarkFailed(reason string) error {
	if err := s.TransitionTo(SessionStatusFailed); err != nil {
		return err
	}
	s.FailureReason = reason
	now := time.Now().UTC()
	s.CompletedAt = &now
	return nil
}

// BeginReview moves a ready session to reviewing. Called on the first
// review action; a no-op error for sessions already past ready is the
// caller's concern.
func (s *Session) BeginReview() error {
	return s.TransitionTo(SessionStatusReviewing)
}

// MarkFinalized freezes the review phase. Valid from ready or reviewing
// only; the pending-card guard lives in the orchestrator, which has access
// to the card counts.
func (s *Session) MarkFinalized() error {
	return s.TransitionTo(SessionStatusFinalized)
}

// RecordChunkOutcome advances the monotonic processed counter by one,
// additionally counting the chunk as failed when ok is false. Progress
// never exceeds the total chunk count.
func (s *Session) RecordChunkOutcome(ok bool) error {
	if s.ProcessedChunks+1 > s.TotalChunks {
		return ErrChunkProgressRegression
	}
	s.ProcessedChunks++
	if !ok {
		s.FailedChunks++
	}
	return nil
}

// ProgressPercent reports generation progress as a whole percentage,
// clamped to [0, 100]. A session with zero total chunks reports 0 rather
// than dividing by zero.
func (s *Session) ProgressPercent() int {
	if s.TotalChunks <= 0 {
		return 0
	}

	percent := int(math.Round(float64(s.ProcessedChunks) / float64(s.TotalChunks) * 100))
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// IsFinalized reports whether the session's review phase is frozen.
func (s *Session) IsFinalized() bool {
	return s.Status == SessionStatusFinalized
}

// isValidSessionStatus checks if the given status is a valid SessionStatus.
func isValidSessionStatus(status SessionStatus) bool {
	switch status {
	case SessionStatusPending, SessionStatusProcessing, SessionStatusReady,
		SessionStatusReviewing, SessionStatusFinalized, SessionStatusFailed:
		return true
	default:
		return false
	}
}

// isValidSourceType checks if the given type is a valid SourceType.
func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypePDF, SourceTypeMarkdown:
		return true
	default:
		return false
	}
}

// IsValidProvider checks if the given provider is supported.
func IsValidProvider(p Provider) bool {
	switch p {
	case ProviderGemini, ProviderOpenAI:
		return true
	default:
		return false
	}
}
