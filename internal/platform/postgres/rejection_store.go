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

const rejectionColumns = `id, card_id, reason, rejection_type, auto_corrected, created_at`

// PostgresRejectionStore implements the store.RejectionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresRejectionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRejectionStore creates a new PostgreSQL implementation of the RejectionStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresRejectionStore(db store.DBTX, logger *slog.Logger) *PostgresRejectionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRejectionStore{
		db:     db,
		logger: logger.With(slog.String("component", "rejection_store")),
	}
}

// Ensure PostgresRejectionStore implements store.RejectionStore interface
var _ store.RejectionStore = (*PostgresRejectionStore)(nil)

// Create implements store.RejectionStore.Create
func (s *PostgresRejectionStore) Create(ctx context.Context, rejection *domain.CardRejection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rejection.Validate(); err != nil {
		log.Warn("rejection validation failed during create",
			slog.String("error", err.Error()),
			slog.String("rejection_id", rejection.ID.String()))
		return err
	}

	query := `
		INSERT INTO card_rejections (id, card_id, reason, rejection_type, auto_corrected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		rejection.ID,
		rejection.CardID,
		rejection.Reason,
		rejection.Type,
		rejection.AutoCorrected,
		rejection.CreatedAt,
	)

	if err != nil {
		log.Error("failed to create card rejection",
			slog.String("error", err.Error()),
			slog.String("rejection_id", rejection.ID.String()),
			slog.String("card_id", rejection.CardID.String()))
		return MapError(err)
	}

	log.Debug("card rejection recorded",
		slog.String("rejection_id", rejection.ID.String()),
		slog.String("card_id", rejection.CardID.String()),
		slog.String("rejection_type", string(rejection.Type)))
	return nil
}

// GetLatestByCardID implements store.RejectionStore.GetLatestByCardID
// Returns store.ErrRejectionNotFound if the card has never been rejected.
func (s *PostgresRejectionStore) GetLatestByCardID(
	ctx context.Context,
	cardID uuid.UUID,
) (*domain.CardRejection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + rejectionColumns + `
		FROM card_rejections
		WHERE card_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, cardID)
	rejection, err := scanRejection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no rejection found for card", slog.String("card_id", cardID.String()))
			return nil, store.ErrRejectionNotFound
		}
		log.Error("failed to get latest rejection",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return nil, err
	}

	return rejection, nil
}

// ListByCardID implements store.RejectionStore.ListByCardID
func (s *PostgresRejectionStore) ListByCardID(
	ctx context.Context,
	cardID uuid.UUID,
) ([]*domain.CardRejection, error) {
	query := `SELECT ` + rejectionColumns + `
		FROM card_rejections
		WHERE card_id = $1
		ORDER BY created_at DESC`
	return s.list(ctx, query, cardID)
}

// ListBySession implements store.RejectionStore.ListBySession
func (s *PostgresRejectionStore) ListBySession(
	ctx context.Context,
	sessionID uuid.UUID,
) ([]*domain.CardRejection, error) {
	query := `SELECT r.id, r.card_id, r.reason, r.rejection_type, r.auto_corrected, r.created_at
		FROM card_rejections r
		JOIN cards c ON c.id = r.card_id
		WHERE c.session_id = $1
		ORDER BY r.created_at DESC`
	return s.list(ctx, query, sessionID)
}

func (s *PostgresRejectionStore) list(
	ctx context.Context,
	query string,
	arg any,
) ([]*domain.CardRejection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		log.Error("failed to query card rejections", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	rejections := []*domain.CardRejection{}
	for rows.Next() {
		rejection, err := scanRejection(rows)
		if err != nil {
			log.Error("failed to scan rejection row", slog.String("error", err.Error()))
			return nil, err
		}
		rejections = append(rejections, rejection)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return rejections, nil
}

// Update implements store.RejectionStore.Update
// Returns store.ErrRejectionNotFound if the rejection does not exist.
func (s *PostgresRejectionStore) Update(ctx context.Context, rejection *domain.CardRejection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rejection.Validate(); err != nil {
		log.Warn("rejection validation failed during update",
			slog.String("error", err.Error()),
			slog.String("rejection_id", rejection.ID.String()))
		return err
	}

	query := `
		UPDATE card_rejections
		SET auto_corrected = $1
		WHERE id = $2
	`

	result, err := s.db.ExecContext(ctx, query, rejection.AutoCorrected, rejection.ID)
	if err != nil {
		log.Error("failed to update card rejection",
			slog.String("error", err.Error()),
			slog.String("rejection_id", rejection.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "card rejection"); err != nil {
		return store.ErrRejectionNotFound
	}

	return nil
}

// WithTx implements store.RejectionStore.WithTx
func (s *PostgresRejectionStore) WithTx(tx *sql.Tx) store.RejectionStore {
	return &PostgresRejectionStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanRejection(row rowScanner) (*domain.CardRejection, error) {
	var rejection domain.CardRejection
	var rejectionType string

	err := row.Scan(
		&rejection.ID,
		&rejection.CardID,
		&rejection.Reason,
		&rejectionType,
		&rejection.AutoCorrected,
		&rejection.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rejection.Type = domain.RejectionType(rejectionType)

	return &rejection, nil
}
