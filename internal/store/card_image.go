package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
)

// CardImageStore defines the interface for card image metadata persistence.
// The image bytes themselves live on disk under the media store; these rows
// only associate stored files with cards.
type CardImageStore interface {
	// CreateMultiple saves multiple image records. Like card creation it
	// should run within the same transaction as the cards it references.
	CreateMultiple(ctx context.Context, images []*domain.CardImage) error

	// ListByCard retrieves the image records for a card in creation order.
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.CardImage, error)

	// ListBySession retrieves all image records for a session's cards.
	// Used when deleting a session to remove the stored files.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.CardImage, error)

	// WithTx returns a new CardImageStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CardImageStore
}
