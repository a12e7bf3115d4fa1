package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
)

// PromptVersionStore defines the interface for prompt version persistence.
// Exactly one version per prompt type is active at any time; the
// DeactivateActive/Create/Update sequence that swaps versions must run in
// a single transaction.
type PromptVersionStore interface {
	// Create saves a new prompt version to the store.
	// Returns validation errors from the domain PromptVersion if data is invalid.
	Create(ctx context.Context, version *domain.PromptVersion) error

	// GetByID retrieves a prompt version by its unique ID.
	// Returns ErrPromptVersionNotFound if the version does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PromptVersion, error)

	// GetActive retrieves the active version for a prompt type.
	// Returns ErrPromptVersionNotFound if no version of that type is active.
	GetActive(ctx context.Context, promptType domain.PromptType) (*domain.PromptVersion, error)

	// MaxVersion returns the highest version number recorded for a prompt
	// type, or 0 if none exist.
	MaxVersion(ctx context.Context, promptType domain.PromptType) (int, error)

	// DeactivateActive clears the active flag on the currently active
	// version of a prompt type. A no-op if none is active.
	DeactivateActive(ctx context.Context, promptType domain.PromptType) error

	// Update saves the version's mutable fields (is_active and the review
	// counters). Returns ErrPromptVersionNotFound if the version does not exist.
	Update(ctx context.Context, version *domain.PromptVersion) error

	// ListByType retrieves all versions of a prompt type, newest version first.
	ListByType(ctx context.Context, promptType domain.PromptType) ([]*domain.PromptVersion, error)

	// WithTx returns a new PromptVersionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PromptVersionStore
}

// PromptSuggestionStore defines the interface for prompt suggestion persistence.
type PromptSuggestionStore interface {
	// Create saves a new prompt suggestion to the store.
	// Returns validation errors from the domain PromptSuggestion if data is invalid.
	Create(ctx context.Context, suggestion *domain.PromptSuggestion) error

	// GetByID retrieves a suggestion by its unique ID.
	// Returns ErrSuggestionNotFound if the suggestion does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PromptSuggestion, error)

	// Update saves the suggestion's mutable fields (status, reviewed_at).
	// Returns ErrSuggestionNotFound if the suggestion does not exist.
	Update(ctx context.Context, suggestion *domain.PromptSuggestion) error

	// ListByStatus retrieves suggestions in the given status, newest first.
	// A nil status returns all suggestions.
	ListByStatus(
		ctx context.Context,
		status *domain.SuggestionStatus,
	) ([]*domain.PromptSuggestion, error)

	// WithTx returns a new PromptSuggestionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PromptSuggestionStore
}
