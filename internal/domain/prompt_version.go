package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PromptType identifies what a prompt version is used for.
type PromptType string

// Possible prompt type values
const (
	PromptTypeGeneration PromptType = "generation"
	PromptTypeValidation PromptType = "validation"
)

// ContentPlaceholder is the substitution marker a generation user prompt
// template must carry; it is replaced with the chunk content at render
// time.
const ContentPlaceholder = "{content}"

// Prompt version validation errors
var (
	// ErrEmptyPromptVersionID is returned when a prompt version ID is empty or nil.
	ErrEmptyPromptVersionID = errors.New("prompt version ID cannot be empty")

	// ErrInvalidPromptType is returned when a prompt type is not valid.
	ErrInvalidPromptType = errors.New("invalid prompt type")

	// ErrEmptySystemPrompt is returned when a system prompt is empty.
	ErrEmptySystemPrompt = errors.New("system prompt cannot be empty")

	// ErrEmptyUserPromptTemplate is returned when a user prompt template is empty.
	ErrEmptyUserPromptTemplate = errors.New("user prompt template cannot be empty")

	// ErrMissingContentPlaceholder is returned when a generation template
	// does not carry the {content} placeholder.
	ErrMissingContentPlaceholder = errors.New("generation template must contain the {content} placeholder")

	// ErrInvalidPromptVersionNumber is returned when a version number is below 1.
	ErrInvalidPromptVersionNumber = errors.New("prompt version number must be at least 1")
)

// PromptVersion is one immutable snapshot of the instructions sent to the
// LLM, plus running review counters for the cards generated under it.
// Version numbers are monotonic per type and exactly one version per type
// is active at any time; both invariants are enforced by the store and the
// single operation that activates versions.
type PromptVersion struct {
	ID                  uuid.UUID  `json:"id"`
	Type                PromptType `json:"prompt_type"`
	SystemPrompt        string     `json:"system_prompt"`
	UserPromptTemplate  string     `json:"user_prompt_template"`
	Version             int        `json:"version"`
	IsActive            bool       `json:"is_active"`
	ParentVersionID     uuid.UUID  `json:"parent_version_id,omitempty"`
	TotalCardsGenerated int        `json:"total_cards_generated"`
	ApprovedCards       int        `json:"approved_cards"`
	RejectedCards       int        `json:"rejected_cards"`
	ApprovalRate        float64    `json:"approval_rate"`
	CreatedAt           time.Time  `json:"created_at"`
}

// NewPromptVersion creates an inactive prompt version. parentID is
// uuid.Nil for root versions; activation happens through Activate, inside
// the operation that also deactivates the predecessor.
func NewPromptVersion(
	promptType PromptType,
	systemPrompt, userPromptTemplate string,
	version int,
	parentID uuid.UUID,
) (*PromptVersion, error) {
	pv := &PromptVersion{
		ID:                 uuid.New(),
		Type:               promptType,
		SystemPrompt:       systemPrompt,
		UserPromptTemplate: userPromptTemplate,
		Version:            version,
		ParentVersionID:    parentID,
		CreatedAt:          time.Now().UTC(),
	}

	if err := pv.Validate(); err != nil {
		return nil, err
	}

	return pv, nil
}

// Validate checks if the PromptVersion has valid data.
// Returns an error if any field fails validation.
func (p *PromptVersion) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPromptVersionID
	}

	if !isValidPromptType(p.Type) {
		return ErrInvalidPromptType
	}

	if p.SystemPrompt == "" {
		return ErrEmptySystemPrompt
	}

	if p.UserPromptTemplate == "" {
		return ErrEmptyUserPromptTemplate
	}

	if p.Type == PromptTypeGeneration && !strings.Contains(p.UserPromptTemplate, ContentPlaceholder) {
		return ErrMissingContentPlaceholder
	}

	if p.Version < 1 {
		return ErrInvalidPromptVersionNumber
	}

	return nil
}

// Activate marks this version active.
func (p *PromptVersion) Activate() {
	p.IsActive = true
}

// Deactivate marks this version inactive.
func (p *PromptVersion) Deactivate() {
	p.IsActive = false
}

// RenderUserPrompt substitutes the chunk content into the user prompt
// template.
func (p *PromptVersion) RenderUserPrompt(content string) string {
	return strings.ReplaceAll(p.UserPromptTemplate, ContentPlaceholder, content)
}

// RecordGeneration adds freshly generated cards to the running total.
func (p *PromptVersion) RecordGeneration(cardCount int) {
	if cardCount > 0 {
		p.TotalCardsGenerated += cardCount
	}
}

// RecordReviewOutcomes adds a session's final approved/rejected counts to
// the counters and recomputes the approval rate. The rate is 0 until at
// least one card has been approved or rejected.
func (p *PromptVersion) RecordReviewOutcomes(approved, rejected int) {
	if approved > 0 {
		p.ApprovedCards += approved
	}
	if rejected > 0 {
		p.RejectedCards += rejected
	}

	reviewed := p.ApprovedCards + p.RejectedCards
	if reviewed > 0 {
		p.ApprovalRate = float64(p.ApprovedCards) / float64(reviewed)
	} else {
		p.ApprovalRate = 0
	}
}

// isValidPromptType checks if the given type is a valid PromptType.
func isValidPromptType(t PromptType) bool {
	switch t {
	case PromptTypeGeneration, PromptTypeValidation:
		return true
	default:
		return false
	}
}
