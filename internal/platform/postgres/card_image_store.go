package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/platform/logger"
	"github.com/quillback/mnemo-api/internal/store"
)

const cardImageColumns = `id, card_id, session_id, original_filename, stored_filename,
	media_type, file_size, created_at`

// PostgresCardImageStore implements the store.CardImageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardImageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardImageStore creates a new PostgreSQL implementation of the
// CardImageStore interface. If logger is nil, a default logger will be used.
func NewPostgresCardImageStore(db store.DBTX, logger *slog.Logger) *PostgresCardImageStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardImageStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_image_store")),
	}
}

// Ensure PostgresCardImageStore implements store.CardImageStore interface
var _ store.CardImageStore = (*PostgresCardImageStore)(nil)

// CreateMultiple implements store.CardImageStore.CreateMultiple
func (s *PostgresCardImageStore) CreateMultiple(ctx context.Context, images []*domain.CardImage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(images) == 0 {
		return nil
	}

	for _, image := range images {
		if err := image.Validate(); err != nil {
			log.Warn("card image validation failed during batch create",
				slog.String("error", err.Error()),
				slog.String("image_id", image.ID.String()))
			return err
		}
	}

	query := `
		INSERT INTO card_images (id, card_id, session_id, original_filename,
			stored_filename, media_type, file_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, image := range images {
		_, err := s.db.ExecContext(
			ctx,
			query,
			image.ID,
			image.CardID,
			image.SessionID,
			image.OriginalFilename,
			image.StoredFilename,
			image.MediaType,
			image.FileSize,
			image.CreatedAt,
		)
		if err != nil {
			log.Error("failed to create card image",
				slog.String("error", err.Error()),
				slog.String("image_id", image.ID.String()),
				slog.String("card_id", image.CardID.String()))
			return MapError(err)
		}
	}

	log.Debug("card images created", slog.Int("count", len(images)))
	return nil
}

// ListByCard implements store.CardImageStore.ListByCard
func (s *PostgresCardImageStore) ListByCard(
	ctx context.Context,
	cardID uuid.UUID,
) ([]*domain.CardImage, error) {
	query := `SELECT ` + cardImageColumns + `
		FROM card_images
		WHERE card_id = $1
		ORDER BY created_at ASC`
	return s.list(ctx, query, cardID)
}

// ListBySession implements store.CardImageStore.ListBySession
func (s *PostgresCardImageStore) ListBySession(
	ctx context.Context,
	sessionID uuid.UUID,
) ([]*domain.CardImage, error) {
	query := `SELECT ` + cardImageColumns + `
		FROM card_images
		WHERE session_id = $1
		ORDER BY created_at ASC`
	return s.list(ctx, query, sessionID)
}

func (s *PostgresCardImageStore) list(
	ctx context.Context,
	query string,
	arg any,
) ([]*domain.CardImage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		log.Error("failed to query card images", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	images := []*domain.CardImage{}
	for rows.Next() {
		var image domain.CardImage
		err := rows.Scan(
			&image.ID,
			&image.CardID,
			&image.SessionID,
			&image.OriginalFilename,
			&image.StoredFilename,
			&image.MediaType,
			&image.FileSize,
			&image.CreatedAt,
		)
		if err != nil {
			log.Error("failed to scan card image row", slog.String("error", err.Error()))
			return nil, err
		}
		images = append(images, &image)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return images, nil
}

// WithTx implements store.CardImageStore.WithTx
func (s *PostgresCardImageStore) WithTx(tx *sql.Tx) store.CardImageStore {
	return &PostgresCardImageStore{
		db:     tx,
		logger: s.logger,
	}
}
