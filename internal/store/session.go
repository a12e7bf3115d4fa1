package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
)

// SessionStore defines the interface for session data persistence.
type SessionStore interface {
	// Create saves a new session to the store.
	// Returns validation errors from the domain Session if data is invalid.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by its unique ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// GetForUpdate retrieves a session by ID with a row-level lock
	// (SELECT ... FOR UPDATE). It MUST be called within a transaction;
	// outside one the lock is released immediately and provides no
	// protection against concurrent status transitions.
	// Returns ErrSessionNotFound if the session does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// Update saves the session's mutable fields (status, chunk counters,
	// failure reason, prompt version, metadata, completed_at).
	// Returns ErrSessionNotFound if the session does not exist.
	Update(ctx context.Context, session *domain.Session) error

	// List retrieves sessions ordered by creation time descending.
	// A limit of 0 means no limit.
	List(ctx context.Context, limit, offset int) ([]*domain.Session, error)

	// MarkReviewing atomically transitions a session from ready to
	// reviewing. It is a conditional update: if the session is in any
	// other status the call is a no-op and returns nil, so concurrent
	// first reviews race harmlessly.
	// Returns ErrSessionNotFound only if the session does not exist at all.
	MarkReviewing(ctx context.Context, id uuid.UUID) error

	// Delete removes a session and, via cascade, its cards, rejections
	// and image records.
	// Returns ErrSessionNotFound if the session does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new SessionStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) SessionStore
}
