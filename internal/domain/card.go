package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CardStatus represents the review state of a card.
type CardStatus string

// Possible card status values
const (
	CardStatusPending  CardStatus = "pending"
	CardStatusApproved CardStatus = "approved"
	CardStatusRejected CardStatus = "rejected"
	CardStatusEdited   CardStatus = "edited"
)

// Card-specific validation errors
var (
	// ErrEmptyCardID is returned when a card ID is empty or nil.
	ErrEmptyCardID = errors.New("card ID cannot be empty")

	// ErrEmptyCardSessionID is returned when a card's session ID is empty or nil.
	ErrEmptyCardSessionID = errors.New("card session ID cannot be empty")

	// ErrEmptyCardFront is returned when a card's front text is empty.
	ErrEmptyCardFront = errors.New("card front cannot be empty")

	// ErrEmptyCardBack is returned when a card's back text is empty.
	ErrEmptyCardBack = errors.New("card back cannot be empty")

	// ErrInvalidCardStatus is returned when a card status is not valid.
	ErrInvalidCardStatus = errors.New("invalid card status")

	// ErrInvalidCardTransition is returned when a status transition is not
	// permitted by the review state machine.
	ErrInvalidCardTransition = errors.New("invalid card status transition")

	// ErrNegativeChunkIndex is returned when a card's chunk index is negative.
	ErrNegativeChunkIndex = errors.New("card chunk index cannot be negative")
)

// cardTransitions is the review state machine. Review states may be
// revisited any number of times (approved and rejected flip in either
// direction, edited is re-enterable); pending is never a transition target.
var cardTransitions = map[CardStatus][]CardStatus{
	CardStatusPending:  {CardStatusApproved, CardStatusRejected, CardStatusEdited},
	CardStatusApproved: {CardStatusApproved, CardStatusRejected, CardStatusEdited},
	CardStatusRejected: {CardStatusApproved, CardStatusRejected, CardStatusEdited},
	CardStatusEdited:   {CardStatusApproved, CardStatusRejected, CardStatusEdited},
}

// Card represents one flashcard generated from a session's source document.
// A card is owned exclusively by its session and is only ever mutated
// through the review transition methods below; rejection is a status, not
// a removal.
type Card struct {
	ID            uuid.UUID  `json:"id"`
	SessionID     uuid.UUID  `json:"session_id"`
	Front         string     `json:"front"`
	Back          string     `json:"back"`
	Tags          []string   `json:"tags"`
	Status        CardStatus `json:"status"`
	OriginalFront *string    `json:"original_front,omitempty"`
	OriginalBack  *string    `json:"original_back,omitempty"`
	ChunkIndex    int        `json:"chunk_index"`
	CreatedAt     time.Time  `json:"created_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

// NewCard creates a pending Card belonging to the given session, tagged
// with the chunk index it was generated from. Returns an error if
// validation fails.
func NewCard(sessionID uuid.UUID, front, back string, tags []string, chunkIndex int) (*Card, error) {
	card := &Card{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Front:      front,
		Back:       back,
		Tags:       tags,
		Status:     CardStatusPending,
		ChunkIndex: chunkIndex,
		CreatedAt:  time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCardID
	}

	if c.SessionID == uuid.Nil {
		return ErrEmptyCardSessionID
	}

	if c.Front == "" {
		return ErrEmptyCardFront
	}

	if c.Back == "" {
		return ErrEmptyCardBack
	}

	if !isValidCardStatus(c.Status) {
		return ErrInvalidCardStatus
	}

	if c.ChunkIndex < 0 {
		return ErrNegativeChunkIndex
	}

	return nil
}

// Approve transitions the card to approved and stamps the review time.
func (c *Card) Approve() error {
	return c.transitionTo(CardStatusApproved)
}

// Reject transitions the card to rejected and stamps the review time.
// Recording the rejection reason is the caller's responsibility; the card
// itself only tracks status.
func (c *Card) Reject() error {
	return c.transitionTo(CardStatusRejected)
}

// ApplyEdit replaces the card's content and transitions it to edited.
// The first edit captures the pre-edit front/back into OriginalFront and
// OriginalBack; later edits leave the captured originals untouched. A nil
// tags slice keeps the existing tags.
func (c *Card) ApplyEdit(front, back string, tags []string) error {
	if front == "" {
		return ErrEmptyCardFront
	}
	if back == "" {
		return ErrEmptyCardBack
	}

	if err := c.transitionTo(CardStatusEdited); err != nil {
		return err
	}

	c.captureOriginals()
	c.Front = front
	c.Back = back
	if tags != nil {
		c.Tags = tags
	}

	return nil
}

// ReplaceContent overwrites the card's front/back without changing its
// status, capturing the originals first if they have not been captured
// yet. Used by auto-correction, where the card must stay rejected until a
// human re-reviews it.
func (c *Card) ReplaceContent(front, back string) error {
	if front == "" {
		return ErrEmptyCardFront
	}
	if back == "" {
		return ErrEmptyCardBack
	}

	c.captureOriginals()
	c.Front = front
	c.Back = back
	now := time.Now().UTC()
	c.ReviewedAt = &now

	return nil
}

// HasBeenReviewed reports whether any review action has touched the card.
func (c *Card) HasBeenReviewed() bool {
	return c.Status != CardStatusPending
}

// transitionTo is the single dispatch point for review transitions. Every
// status change flows through here so illegal transitions cannot be
// introduced elsewhere.
func (c *Card) transitionTo(target CardStatus) error {
	if !isValidCardStatus(target) {
		return ErrInvalidCardStatus
	}

	allowed, ok := cardTransitions[c.Status]
	if !ok {
		return ErrInvalidCardStatus
	}

	for _, s := range allowed {
		if s == target {
			c.Status = target
			now := time.Now().UTC()
			c.ReviewedAt = &now
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidCardTransition, c.Status, target)
}

// captureOriginals snapshots the current front/back exactly once.
func (c *Card) captureOriginals() {
	if c.OriginalFront == nil && c.OriginalBack == nil {
		front := c.Front
		back := c.Back
		c.OriginalFront = &front
		c.OriginalBack = &back
	}
}

// isValidCardStatus checks if the given status is a valid CardStatus.
func isValidCardStatus(status CardStatus) bool {
	switch status {
	case CardStatusPending, CardStatusApproved, CardStatusRejected, CardStatusEdited:
		return true
	default:
		return false
	}
}
