package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
)

// RejectionStore defines the interface for card rejection persistence.
// A card accumulates one rejection row per reject decision; the latest
// row is the one auto-correction and pattern analysis care about.
type RejectionStore interface {
	// Create saves a new card rejection to the store.
	// Returns validation errors from the domain CardRejection if data is invalid.
	Create(ctx context.Context, rejection *domain.CardRejection) error

	// GetLatestByCardID retrieves the most recent rejection for a card.
	// Returns ErrRejectionNotFound if the card has never been rejected.
	GetLatestByCardID(ctx context.Context, cardID uuid.UUID) (*domain.CardRejection, error)

	// ListByCardID retrieves all rejections for a card, newest first.
	ListByCardID(ctx context.Context, cardID uuid.UUID) ([]*domain.CardRejection, error)

	// ListBySession retrieves all rejections for cards belonging to a
	// session, newest first. Used for rejection pattern analysis.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.CardRejection, error)

	// Update saves the rejection's mutable fields (auto_corrected).
	// Returns ErrRejectionNotFound if the rejection does not exist.
	Update(ctx context.Context, rejection *domain.CardRejection) error

	// WithTx returns a new RejectionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) RejectionStore
}
