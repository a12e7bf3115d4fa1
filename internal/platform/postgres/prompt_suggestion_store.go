package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/platform/logger"
	"github.com/quillback/mnemo-api/internal/store"
)

const suggestionColumns = `id, prompt_version_id, session_id, suggested_system_prompt,
	suggested_user_prompt_template, reasoning, rejection_patterns, status,
	created_at, reviewed_at`

// PostgresPromptSuggestionStore implements the store.PromptSuggestionStore
// interface using a PostgreSQL database as the storage backend.
type PostgresPromptSuggestionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPromptSuggestionStore creates a new PostgreSQL implementation of the
// PromptSuggestionStore interface. If logger is nil, a default logger will be used.
func NewPostgresPromptSuggestionStore(db store.DBTX, logger *slog.Logger) *PostgresPromptSuggestionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPromptSuggestionStore{
		db:     db,
		logger: logger.With(slog.String("component", "prompt_suggestion_store")),
	}
}

// Ensure PostgresPromptSuggestionStore implements store.PromptSuggestionStore interface
var _ store.PromptSuggestionStore = (*PostgresPromptSuggestionStore)(nil)

// Create implements store.PromptSuggestionStore.Create
func (s *PostgresPromptSuggestionStore) Create(ctx context.Context, suggestion *domain.PromptSuggestion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := suggestion.Validate(); err != nil {
		log.Warn("suggestion validation failed during create",
			slog.String("error", err.Error()),
			slog.String("suggestion_id", suggestion.ID.String()))
		return err
	}

	patterns, err := json.Marshal(suggestion.Patterns)
	if err != nil {
		return fmt.Errorf("failed to encode rejection patterns: %w", err)
	}

	query := `
		INSERT INTO prompt_suggestions (id, prompt_version_id, session_id,
			suggested_system_prompt, suggested_user_prompt_template, reasoning,
			rejection_patterns, status, created_at, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		suggestion.ID,
		suggestion.PromptVersionID,
		suggestion.SessionID,
		suggestion.SuggestedSystemPrompt,
		suggestion.SuggestedUserPromptTemplate,
		suggestion.Reasoning,
		patterns,
		suggestion.Status,
		suggestion.CreatedAt,
		suggestion.ReviewedAt,
	)

	if err != nil {
		log.Error("failed to create prompt suggestion",
			slog.String("error", err.Error()),
			slog.String("suggestion_id", suggestion.ID.String()))
		return MapError(err)
	}

	log.Info("prompt suggestion created",
		slog.String("suggestion_id", suggestion.ID.String()),
		slog.String("session_id", suggestion.SessionID.String()))
	return nil
}

// GetByID implements store.PromptSuggestionStore.GetByID
// Returns store.ErrSuggestionNotFound if the suggestion does not exist.
func (s *PostgresPromptSuggestionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PromptSuggestion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + suggestionColumns + ` FROM prompt_suggestions WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	suggestion, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("prompt suggestion not found", slog.String("suggestion_id", id.String()))
			return nil, store.ErrSuggestionNotFound
		}
		log.Error("failed to get prompt suggestion by ID",
			slog.String("error", err.Error()),
			slog.String("suggestion_id", id.String()))
		return nil, err
	}

	return suggestion, nil
}

// Update implements store.PromptSuggestionStore.Update
// Returns store.ErrSuggestionNotFound if the suggestion does not exist.
func (s *PostgresPromptSuggestionStore) Update(ctx context.Context, suggestion *domain.PromptSuggestion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := suggestion.Validate(); err != nil {
		log.Warn("suggestion validation failed during update",
			slog.String("error", err.Error()),
			slog.String("suggestion_id", suggestion.ID.String()))
		return err
	}

	query := `
		UPDATE prompt_suggestions
		SET status = $1, reviewed_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query,
		suggestion.Status, suggestion.ReviewedAt, suggestion.ID)
	if err != nil {
		log.Error("failed to update prompt suggestion",
			slog.String("error", err.Error()),
			slog.String("suggestion_id", suggestion.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "prompt suggestion"); err != nil {
		return store.ErrSuggestionNotFound
	}

	return nil
}

// ListByStatus implements store.PromptSuggestionStore.ListByStatus
func (s *PostgresPromptSuggestionStore) ListByStatus(
	ctx context.Context,
	status *domain.SuggestionStatus,
) ([]*domain.PromptSuggestion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + suggestionColumns + ` FROM prompt_suggestions`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query prompt suggestions", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	suggestions := []*domain.PromptSuggestion{}
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			log.Error("failed to scan suggestion row", slog.String("error", err.Error()))
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return suggestions, nil
}

// WithTx implements store.PromptSuggestionStore.WithTx
func (s *PostgresPromptSuggestionStore) WithTx(tx *sql.Tx) store.PromptSuggestionStore {
	return &PostgresPromptSuggestionStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanSuggestion(row rowScanner) (*domain.PromptSuggestion, error) {
	var suggestion domain.PromptSuggestion
	var status string
	var patterns []byte

	err := row.Scan(
		&suggestion.ID,
		&suggestion.PromptVersionID,
		&suggestion.SessionID,
		&suggestion.SuggestedSystemPrompt,
		&suggestion.SuggestedUserPromptTemplate,
		&suggestion.Reasoning,
		&patterns,
		&status,
		&suggestion.CreatedAt,
		&suggestion.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(patterns) > 0 {
		if err := json.Unmarshal(patterns, &suggestion.Patterns); err != nil {
			return nil, fmt.Errorf("failed to decode rejection patterns: %w", err)
		}
	}
	suggestion.Status = domain.SuggestionStatus(status)

	return &suggestion, nil
}
