package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SuggestionStatus represents the lifecycle state of a prompt suggestion.
type SuggestionStatus string

// Possible suggestion status values
const (
	SuggestionStatusPending  SuggestionStatus = "pending"
	SuggestionStatusApproved SuggestionStatus = "approved"
	SuggestionStatusRejected SuggestionStatus = "rejected"
)

// Suggestion-specific validation errors
var (
	// ErrEmptySuggestionID is returned when a suggestion ID is empty or nil.
	ErrEmptySuggestionID = errors.New("suggestion ID cannot be empty")

	// ErrEmptySuggestionVersionID is returned when the base prompt version ID is empty or nil.
	ErrEmptySuggestionVersionID = errors.New("suggestion prompt version ID cannot be empty")

	// ErrEmptySuggestionSessionID is returned when the originating session ID is empty or nil.
	ErrEmptySuggestionSessionID = errors.New("suggestion session ID cannot be empty")

	// ErrEmptySuggestedPrompts is returned when a suggested prompt pair is incomplete.
	ErrEmptySuggestedPrompts = errors.New("suggested system prompt and user template cannot be empty")

	// ErrInvalidSuggestionStatus is returned when a suggestion status is not valid.
	ErrInvalidSuggestionStatus = errors.New("invalid suggestion status")

	// ErrSuggestionNotPending is returned when approving or rejecting a
	// suggestion that has already been decided.
	ErrSuggestionNotPending = errors.New("suggestion has already been reviewed")
)

// RejectionPatterns summarizes a session's rejection corpus: the total
// count, per-type counts, and up to a few sample reasons per type. It is
// stored alongside the suggestion it motivated.
type RejectionPatterns struct {
	TotalRejections int                 `json:"total_rejections"`
	TypeCounts      map[string]int      `json:"type_distribution"`
	SampleReasons   map[string][]string `json:"sample_reasons,omitempty"`
}

// PromptSuggestion is a proposed replacement for a prompt version, mined
// from a finalized session's rejection history. Approving it is the only
// operation that changes prompt version state; rejecting it leaves prompts
// untouched.
type PromptSuggestion struct {
	ID                          uuid.UUID         `json:"id"`
	PromptVersionID             uuid.UUID         `json:"prompt_version_id"`
	SessionID                   uuid.UUID         `json:"session_id"`
	SuggestedSystemPrompt       string            `json:"suggested_system_prompt"`
	SuggestedUserPromptTemplate string            `json:"suggested_user_prompt_template"`
	Reasoning                   string            `json:"reasoning"`
	Patterns                    RejectionPatterns `json:"rejection_patterns"`
	Status                      SuggestionStatus  `json:"status"`
	CreatedAt                   time.Time         `json:"created_at"`
	ReviewedAt                  *time.Time        `json:"reviewed_at,omitempty"`
}

// NewPromptSuggestion creates a pending suggestion against the given base
// prompt version, linked to the session whose rejections motivated it.
func NewPromptSuggestion(
	promptVersionID, sessionID uuid.UUID,
	suggestedSystemPrompt, suggestedUserPromptTemplate, reasoning string,
	patterns RejectionPatterns,
) (*PromptSuggestion, error) {
	suggestion := &PromptSuggestion{
		ID:                          uuid.New(),
		PromptVersionID:             promptVersionID,
		SessionID:                   sessionID,
		SuggestedSystemPrompt:       suggestedSystemPrompt,
		SuggestedUserPromptTemplate: suggestedUserPromptTemplate,
		Reasoning:                   reasoning,
		Patterns:                    patterns,
		Status:                      SuggestionStatusPending,
		CreatedAt:                   time.Now().UTC(),
	}

	if err := suggestion.Validate(); err != nil {
		return nil, err
	}

	return suggestion, nil
}

// Validate checks if the PromptSuggestion has valid data.
func (s *PromptSuggestion) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySuggestionID
	}

	if s.PromptVersionID == uuid.Nil {
		return ErrEmptySuggestionVersionID
	}

	if s.SessionID == uuid.Nil {
		return ErrEmptySuggestionSessionID
	}

	if s.SuggestedSystemPrompt == "" || s.SuggestedUserPromptTemplate == "" {
		return ErrEmptySuggestedPrompts
	}

	if !isValidSuggestionStatus(s.Status) {
		return ErrInvalidSuggestionStatus
	}

	return nil
}

// Approve marks a pending suggestion approved. The prompt version swap it
// implies is performed by the caller in the same transaction.
func (s *PromptSuggestion) Approve() error {
	return s.decide(SuggestionStatusApproved)
}

// Reject marks a pending suggestion rejected. Prompt version state is
// never touched by a rejection.
func (s *PromptSuggestion) Reject() error {
	return s.decide(SuggestionStatusRejected)
}

func (s *PromptSuggestion) decide(status SuggestionStatus) error {
	if s.Status != SuggestionStatusPending {
		return ErrSuggestionNotPending
	}

	s.Status = status
	now := time.Now().UTC()
	s.ReviewedAt = &now
	return nil
}

// isValidSuggestionStatus checks if the given status is a valid SuggestionStatus.
func isValidSuggestionStatus(status SuggestionStatus) bool {
	switch status {
	case SuggestionStatusPending, SuggestionStatusApproved, SuggestionStatusRejected:
		return true
	default:
		return false
	}
}
