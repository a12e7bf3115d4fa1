package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
)

// SessionCardStats is the per-status card breakdown of one session.
type SessionCardStats struct {
	Total    int `json:"total_cards"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Edited   int `json:"edited"`
}

// Reviewed returns the number of cards that have left pending.
func (s SessionCardStats) Reviewed() int {
	return s.Total - s.Pending
}

// CardStore defines the interface for card data persistence.
type CardStore interface {
	// CreateMultiple saves multiple cards to the store.
	// IMPORTANT: This method MUST be run within a transaction for atomicity.
	// Use the WithTx method with store.RunInTransaction to ensure proper
	// transaction handling; calling it outside a transaction may result in
	// partial insertion if failures occur.
	//
	// All cards must be valid according to domain validation rules.
	// Returns validation errors if any card data is invalid.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// GetForUpdate retrieves a card by ID with a row-level lock
	// (SELECT ... FOR UPDATE). It MUST be called within a transaction;
	// review operations use it to serialize concurrent decisions on the
	// same card.
	// Returns ErrCardNotFound if the card does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// Update saves the card's mutable fields (front, back, tags, status,
	// originals, reviewed_at).
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, card *domain.Card) error

	// ListBySession retrieves a session's cards ordered by chunk index and
	// creation time. A nil status returns all cards; otherwise only cards
	// in that status.
	ListBySession(
		ctx context.Context,
		sessionID uuid.UUID,
		status *domain.CardStatus,
	) ([]*domain.Card, error)

	// CountByStatus returns the session's per-status card counts in a
	// single aggregate query.
	CountByStatus(ctx context.Context, sessionID uuid.UUID) (SessionCardStats, error)

	// DeleteBySession removes all cards belonging to a session. Rejections
	// and image records go with them via cascade. Returns the number of
	// cards removed; zero is not an error.
	DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)

	// WithTx returns a new CardStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) CardStore
}
