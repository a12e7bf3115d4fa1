package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/platform/logger"
	"github.com/quillback/mnemo-api/internal/store"
)

const promptVersionColumns = `id, prompt_type, system_prompt, user_prompt_template, version,
	is_active, parent_version_id, total_cards_generated, approved_cards,
	rejected_cards, approval_rate, created_at`

// PostgresPromptVersionStore implements the store.PromptVersionStore
// interface using a PostgreSQL database as the storage backend.
type PostgresPromptVersionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPromptVersionStore creates a new PostgreSQL implementation of the
// PromptVersionStore interface. If logger is nil, a default logger will be used.
func NewPostgresPromptVersionStore(db store.DBTX, logger *slog.Logger) *PostgresPromptVersionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPromptVersionStore{
		db:     db,
		logger: logger.With(slog.String("component", "prompt_version_store")),
	}
}

// Ensure PostgresPromptVersionStore implements store.PromptVersionStore interface
var _ store.PromptVersionStore = (*PostgresPromptVersionStore)(nil)

// Create implements store.PromptVersionStore.Create
func (s *PostgresPromptVersionStore) Create(ctx context.Context, version *domain.PromptVersion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := version.Validate(); err != nil {
		log.Warn("prompt version validation failed during create",
			slog.String("error", err.Error()),
			slog.String("version_id", version.ID.String()))
		return err
	}

	query := `
		INSERT INTO prompt_versions (id, prompt_type, system_prompt, user_prompt_template,
			version, is_active, parent_version_id, total_cards_generated,
			approved_cards, rejected_cards, approval_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		version.ID,
		version.Type,
		version.SystemPrompt,
		version.UserPromptTemplate,
		version.Version,
		version.IsActive,
		nullUUID(version.ParentVersionID),
		version.TotalCardsGenerated,
		version.ApprovedCards,
		version.RejectedCards,
		version.ApprovalRate,
		version.CreatedAt,
	)

	if err != nil {
		log.Error("failed to create prompt version",
			slog.String("error", err.Error()),
			slog.String("version_id", version.ID.String()))
		return MapError(err)
	}

	log.Info("prompt version created",
		slog.String("version_id", version.ID.String()),
		slog.String("prompt_type", string(version.Type)),
		slog.Int("version", version.Version))
	return nil
}

// GetByID implements store.PromptVersionStore.GetByID
// Returns store.ErrPromptVersionNotFound if the version does not exist.
func (s *PostgresPromptVersionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PromptVersion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + promptVersionColumns + ` FROM prompt_versions WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	version, err := scanPromptVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("prompt version not found", slog.String("version_id", id.String()))
			return nil, store.ErrPromptVersionNotFound
		}
		log.Error("failed to get prompt version by ID",
			slog.String("error", err.Error()),
			slog.String("version_id", id.String()))
		return nil, err
	}

	return version, nil
}

// GetActive implements store.PromptVersionStore.GetActive
// Returns store.ErrPromptVersionNotFound if no version of that type is active.
func (s *PostgresPromptVersionStore) GetActive(
	ctx context.Context,
	promptType domain.PromptType,
) (*domain.PromptVersion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + promptVersionColumns + `
		FROM prompt_versions
		WHERE prompt_type = $1 AND is_active = TRUE`

	row := s.db.QueryRowContext(ctx, query, promptType)
	version, err := scanPromptVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no active prompt version",
				slog.String("prompt_type", string(promptType)))
			return nil, store.ErrPromptVersionNotFound
		}
		log.Error("failed to get active prompt version",
			slog.String("error", err.Error()),
			slog.String("prompt_type", string(promptType)))
		return nil, err
	}

	return version, nil
}

// MaxVersion implements store.PromptVersionStore.MaxVersion
func (s *PostgresPromptVersionStore) MaxVersion(
	ctx context.Context,
	promptType domain.PromptType,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var max int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM prompt_versions WHERE prompt_type = $1`,
		promptType,
	).Scan(&max)
	if err != nil {
		log.Error("failed to get max prompt version",
			slog.String("error", err.Error()),
			slog.String("prompt_type", string(promptType)))
		return 0, err
	}

	return max, nil
}

// DeactivateActive implements store.PromptVersionStore.DeactivateActive
func (s *PostgresPromptVersionStore) DeactivateActive(
	ctx context.Context,
	promptType domain.PromptType,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx,
		`UPDATE prompt_versions SET is_active = FALSE WHERE prompt_type = $1 AND is_active = TRUE`,
		promptType,
	)
	if err != nil {
		log.Error("failed to deactivate active prompt version",
			slog.String("error", err.Error()),
			slog.String("prompt_type", string(promptType)))
		return MapError(err)
	}

	return nil
}

// Update implements store.PromptVersionStore.Update
// Returns store.ErrPromptVersionNotFound if the version does not exist.
func (s *PostgresPromptVersionStore) Update(ctx context.Context, version *domain.PromptVersion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := version.Validate(); err != nil {
		log.Warn("prompt version validation failed during update",
			slog.String("error", err.Error()),
			slog.String("version_id", version.ID.String()))
		return err
	}

	query := `
		UPDATE prompt_versions
		SET is_active = $1, total_cards_generated = $2, approved_cards = $3,
			rejected_cards = $4, approval_rate = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		version.IsActive,
		version.TotalCardsGenerated,
		version.ApprovedCards,
		version.RejectedCards,
		version.ApprovalRate,
		version.ID,
	)

	if err != nil {
		log.Error("failed to update prompt version",
			slog.String("error", err.Error()),
			slog.String("version_id", version.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "prompt version"); err != nil {
		return store.ErrPromptVersionNotFound
	}

	return nil
}

// ListByType implements store.PromptVersionStore.ListByType
func (s *PostgresPromptVersionStore) ListByType(
	ctx context.Context,
	promptType domain.PromptType,
) ([]*domain.PromptVersion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + promptVersionColumns + `
		FROM prompt_versions
		WHERE prompt_type = $1
		ORDER BY version DESC`

	rows, err := s.db.QueryContext(ctx, query, promptType)
	if err != nil {
		log.Error("failed to query prompt versions",
			slog.String("error", err.Error()),
			slog.String("prompt_type", string(promptType)))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	versions := []*domain.PromptVersion{}
	for rows.Next() {
		version, err := scanPromptVersion(rows)
		if err != nil {
			log.Error("failed to scan prompt version row", slog.String("error", err.Error()))
			return nil, err
		}
		versions = append(versions, version)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return versions, nil
}

// WithTx implements store.PromptVersionStore.WithTx
func (s *PostgresPromptVersionStore) WithTx(tx *sql.Tx) store.PromptVersionStore {
	return &PostgresPromptVersionStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanPromptVersion(row rowScanner) (*domain.PromptVersion, error) {
	var version domain.PromptVersion
	var promptType string
	var parentID uuid.NullUUID

	err := row.Scan(
		&version.ID,
		&promptType,
		&version.SystemPrompt,
		&version.UserPromptTemplate,
		&version.Version,
		&version.IsActive,
		&parentID,
		&version.TotalCardsGenerated,
		&version.ApprovedCards,
		&version.RejectedCards,
		&version.ApprovalRate,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	version.Type = domain.PromptType(promptType)
	if parentID.Valid {
		version.ParentVersionID = parentID.UUID
	}

	return &version, nil
}
