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

const cardColumns = `id, session_id, front, back, tags, status,
	original_front, original_back, chunk_index, created_at, reviewed_at`

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// CreateMultiple implements store.CardStore.CreateMultiple
// It saves a batch of cards; run it inside a transaction so a mid-batch
// failure does not leave a partial insert behind.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(cards) == 0 {
		return nil
	}

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			log.Warn("card validation failed during batch create",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()))
			return err
		}
	}

	query := `
		INSERT INTO cards (id, session_id, front, back, tags, status,
			original_front, original_back, chunk_index, created_at, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, card := range cards {
		tags, err := marshalTags(card.Tags)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(
			ctx,
			query,
			card.ID,
			card.SessionID,
			card.Front,
			card.Back,
			tags,
			card.Status,
			card.OriginalFront,
			card.OriginalBack,
			card.ChunkIndex,
			card.CreatedAt,
			card.ReviewedAt,
		)
		if err != nil {
			log.Error("failed to create card",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()),
				slog.String("session_id", card.SessionID.String()))
			return MapError(err)
		}
	}

	log.Info("cards created successfully",
		slog.Int("count", len(cards)),
		slog.String("session_id", cards[0].SessionID.String()))
	return nil
}

// GetByID implements store.CardStore.GetByID
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.get(ctx, id, false)
}

// GetForUpdate implements store.CardStore.GetForUpdate
// It locks the card row for the duration of the enclosing transaction.
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.get(ctx, id, true)
}

func (s *PostgresCardStore) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	row := s.db.QueryRowContext(ctx, query, id)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", id.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card by ID",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, err
	}

	return card, nil
}

// Update implements store.CardStore.Update
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) Update(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during update",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	query := `
		UPDATE cards
		SET front = $1, back = $2, tags = $3, status = $4,
			original_front = $5, original_back = $6, reviewed_at = $7
		WHERE id = $8
	`

	tags, err := marshalTags(card.Tags)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(
		ctx,
		query,
		card.Front,
		card.Back,
		tags,
		card.Status,
		card.OriginalFront,
		card.OriginalBack,
		card.ReviewedAt,
		card.ID,
	)

	if err != nil {
		log.Error("failed to update card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "card"); err != nil {
		log.Debug("card not found for update", slog.String("card_id", card.ID.String()))
		return store.ErrCardNotFound
	}

	log.Debug("card updated successfully",
		slog.String("card_id", card.ID.String()),
		slog.String("status", string(card.Status)))
	return nil
}

// ListBySession implements store.CardStore.ListBySession
// Cards come back in generation order (chunk index, then creation time).
func (s *PostgresCardStore) ListBySession(
	ctx context.Context,
	sessionID uuid.UUID,
	status *domain.CardStatus,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + cardColumns + `
		FROM cards
		WHERE session_id = $1`
	args := []any{sessionID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY chunk_index ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query cards by session",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	cards := []*domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row", slog.String("error", err.Error()))
			return nil, err
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed cards by session",
		slog.String("session_id", sessionID.String()),
		slog.Int("count", len(cards)))
	return cards, nil
}

// CountByStatus implements store.CardStore.CountByStatus
// One GROUP BY query instead of a count per status.
func (s *PostgresCardStore) CountByStatus(
	ctx context.Context,
	sessionID uuid.UUID,
) (store.SessionCardStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT status, COUNT(*)
		FROM cards
		WHERE session_id = $1
		GROUP BY status
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		log.Error("failed to count cards by status",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return store.SessionCardStats{}, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var stats store.SessionCardStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			log.Error("failed to scan count row", slog.String("error", err.Error()))
			return store.SessionCardStats{}, err
		}

		stats.Total += count
		switch domain.CardStatus(status) {
		case domain.CardStatusPending:
			stats.Pending = count
		case domain.CardStatusApproved:
			stats.Approved = count
		case domain.CardStatusRejected:
			stats.Rejected = count
		case domain.CardStatusEdited:
			stats.Edited = count
		}
	}

	if err := rows.Err(); err != nil {
		return store.SessionCardStats{}, err
	}

	return stats, nil
}

// DeleteBySession implements store.CardStore.DeleteBySession
func (s *PostgresCardStore) DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE session_id = $1`, sessionID)
	if err != nil {
		log.Error("failed to delete cards by session",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	log.Info("cards deleted by session",
		slog.String("session_id", sessionID.String()),
		slog.Int64("count", deleted))
	return deleted, nil
}

// WithTx implements store.CardStore.WithTx
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var status string
	var tags []byte

	err := row.Scan(
		&card.ID,
		&card.SessionID,
		&card.Front,
		&card.Back,
		&tags,
		&status,
		&card.OriginalFront,
		&card.OriginalBack,
		&card.ChunkIndex,
		&card.CreatedAt,
		&card.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &card.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode card tags: %w", err)
		}
	}
	card.Status = domain.CardStatus(status)

	return &card, nil
}

// marshalTags encodes a tag list for the JSONB tags column. A nil or
// empty list is stored as an empty JSON array, not NULL.
func marshalTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode card tags: %w", err)
	}
	return encoded, nil
}
