package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RejectionType categorizes why a card was rejected.
type RejectionType string

// Possible rejection type values
const (
	RejectionTypeUnclear    RejectionType = "unclear"
	RejectionTypeIncorrect  RejectionType = "incorrect"
	RejectionTypeTooComplex RejectionType = "too_complex"
	RejectionTypeDuplicate  RejectionType = "duplicate"
	RejectionTypeOther      RejectionType = "other"
)

// RejectionTypes lists every valid rejection type, in a stable order used
// for pattern summaries.
var RejectionTypes = []RejectionType{
	RejectionTypeUnclear,
	RejectionTypeIncorrect,
	RejectionTypeTooComplex,
	RejectionTypeDuplicate,
	RejectionTypeOther,
}

// Rejection-specific validation errors
var (
	// ErrEmptyRejectionID is returned when a rejection ID is empty or nil.
	ErrEmptyRejectionID = errors.New("rejection ID cannot be empty")

	// ErrEmptyRejectionCardID is returned when a rejection's card ID is empty or nil.
	ErrEmptyRejectionCardID = errors.New("rejection card ID cannot be empty")

	// ErrEmptyRejectionReason is returned when a rejection reason is empty.
	ErrEmptyRejectionReason = errors.New("rejection reason cannot be empty")

	// ErrInvalidRejectionType is returned when a rejection type is not valid.
	ErrInvalidRejectionType = errors.New("invalid rejection type")
)

// CardRejection is an append-only record of one rejection event. Records
// accumulate across approve/reject cycles and are never deleted; the
// reason, type, and timestamp are immutable once created. AutoCorrected is
// the single sanctioned mutation, flipped to true when the auto-correction
// loop rewrites the card in response to this rejection.
type CardRejection struct {
	ID            uuid.UUID     `json:"id"`
	CardID        uuid.UUID     `json:"card_id"`
	Reason        string        `json:"reason"`
	Type          RejectionType `json:"rejection_type"`
	AutoCorrected bool          `json:"auto_corrected"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewCardRejection creates a rejection record for the given card.
// The reason must be non-empty and the type must be a known category.
func NewCardRejection(cardID uuid.UUID, reason string, rejectionType RejectionType) (*CardRejection, error) {
	rejection := &CardRejection{
		ID:        uuid.New(),
		CardID:    cardID,
		Reason:    reason,
		Type:      rejectionType,
		CreatedAt: time.Now().UTC(),
	}

	if err := rejection.Validate(); err != nil {
		return nil, err
	}

	return rejection, nil
}

// Validate checks if the CardRejection has valid data.
func (r *CardRejection) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRejectionID
	}

	if r.CardID == uuid.Nil {
		return ErrEmptyRejectionCardID
	}

	if r.Reason == "" {
		return ErrEmptyRejectionReason
	}

	if !IsValidRejectionType(r.Type) {
		return ErrInvalidRejectionType
	}

	return nil
}

// MarkAutoCorrected records that an auto-correction was triggered from
// this rejection.
func (r *CardRejection) MarkAutoCorrected() {
	r.AutoCorrected = true
}

// IsValidRejectionType checks if the given type is a known rejection category.
func IsValidRejectionType(t RejectionType) bool {
	switch t {
	case RejectionTypeUnclear, RejectionTypeIncorrect, RejectionTypeTooComplex,
		RejectionTypeDuplicate, RejectionTypeOther:
		return true
	default:
		return false
	}
}
