package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
)

// UserStore persists user accounts. Implementations own password hashing:
// a user arriving with a plaintext Password set is hashed before storage,
// and retrieved users never carry the plaintext back out.
type UserStore interface {
	// Create saves a new user, validating the domain object and hashing
	// the password. Returns ErrEmailExists when the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns the user with the given ID, or ErrUserNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail returns the user with the given email, or ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user. The caller passes the complete user,
	// HashedPassword included; a non-empty plaintext Password triggers
	// rehashing. Returns ErrUserNotFound or ErrEmailExists as appropriate.
	Update(ctx context.Context, user *domain.User) error

	// Delete permanently removes the user, or returns ErrUserNotFound.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a UserStore bound to the given transaction. The caller
	// owns the transaction lifecycle.
	WithTx(tx *sql.Tx) UserStore
}
