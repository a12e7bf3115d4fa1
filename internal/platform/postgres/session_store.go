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

// sessionColumns is the select list shared by all session queries.
const sessionColumns = `id, filename, file_path, source_type, status, total_chunks,
	processed_chunks, failed_chunks, failure_reason, llm_provider,
	prompt_version_id, metadata, created_at, completed_at`

// PostgresSessionStore implements the store.SessionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the SessionStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

// Create implements store.SessionStore.Create
// It saves a new session to the database, handling domain validation.
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during create",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		INSERT INTO sessions (id, filename, file_path, source_type, status,
			total_chunks, processed_chunks, failed_chunks, failure_reason,
			llm_provider, prompt_version_id, metadata, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.Filename,
		session.FilePath,
		session.SourceType,
		session.Status,
		session.TotalChunks,
		session.ProcessedChunks,
		session.FailedChunks,
		nullString(session.FailureReason),
		session.Provider,
		nullUUID(session.PromptVersionID),
		nullJSON(session.Metadata),
		session.CreatedAt,
		session.CompletedAt,
	)

	if err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	log.Info("session created successfully",
		slog.String("session_id", session.ID.String()),
		slog.String("filename", session.Filename),
		slog.String("source_type", string(session.SourceType)))
	return nil
}

// GetByID implements store.SessionStore.GetByID
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.get(ctx, id, false)
}

// GetForUpdate implements store.SessionStore.GetForUpdate
// It locks the session row for the duration of the enclosing transaction.
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *PostgresSessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.get(ctx, id, true)
}

func (s *PostgresSessionStore) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	row := s.db.QueryRowContext(ctx, query, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found", slog.String("session_id", id.String()))
			return nil, store.ErrSessionNotFound
		}
		log.Error("failed to get session by ID",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, err
	}

	return session, nil
}

// Update implements store.SessionStore.Update
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *PostgresSessionStore) Update(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during update",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		UPDATE sessions
		SET status = $1, total_chunks = $2, processed_chunks = $3,
			failed_chunks = $4, failure_reason = $5, prompt_version_id = $6,
			metadata = $7, completed_at = $8
		WHERE id = $9
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		session.Status,
		session.TotalChunks,
		session.ProcessedChunks,
		session.FailedChunks,
		nullString(session.FailureReason),
		nullUUID(session.PromptVersionID),
		nullJSON(session.Metadata),
		session.CompletedAt,
		session.ID,
	)

	if err != nil {
		log.Error("failed to update session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "session"); err != nil {
		log.Debug("session not found for update",
			slog.String("session_id", session.ID.String()))
		return store.ErrSessionNotFound
	}

	log.Debug("session updated successfully",
		slog.String("session_id", session.ID.String()),
		slog.String("status", string(session.Status)))
	return nil
}

// List implements store.SessionStore.List
// Sessions are returned newest first. A limit of 0 means no limit.
func (s *PostgresSessionStore) List(ctx context.Context, limit, offset int) ([]*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + sessionColumns + `
		FROM sessions
		ORDER BY created_at DESC
		OFFSET $1`
	args := []any{offset}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query sessions", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	sessions := []*domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			log.Error("failed to scan session row", slog.String("error", err.Error()))
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed sessions", slog.Int("count", len(sessions)))
	return sessions, nil
}

// MarkReviewing implements store.SessionStore.MarkReviewing
// The transition is a single conditional UPDATE so concurrent first
// reviews cannot both fire it; losing the race is not an error.
func (s *PostgresSessionStore) MarkReviewing(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE sessions
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.SessionStatusReviewing, id, domain.SessionStatusReady)
	if err != nil {
		log.Error("failed to mark session reviewing",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Either the session is past ready already (fine) or it does not
		// exist at all (caller error).
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrSessionNotFound
		}
		return nil
	}

	log.Info("session moved to reviewing", slog.String("session_id", id.String()))
	return nil
}

// Delete implements store.SessionStore.Delete
// Cards, rejections and image records cascade at the database level.
// Returns store.ErrSessionNotFound if the session does not exist.
func (s *PostgresSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete session",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "session"); err != nil {
		return store.ErrSessionNotFound
	}

	log.Info("session deleted", slog.String("session_id", id.String()))
	return nil
}

// WithTx implements store.SessionStore.WithTx
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var sourceType, status, provider string
	var failureReason sql.NullString
	var promptVersionID uuid.NullUUID
	var metadata []byte

	err := row.Scan(
		&session.ID,
		&session.Filename,
		&session.FilePath,
		&sourceType,
		&status,
		&session.TotalChunks,
		&session.ProcessedChunks,
		&session.FailedChunks,
		&failureReason,
		&provider,
		&promptVersionID,
		&metadata,
		&session.CreatedAt,
		&session.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	session.SourceType = domain.SourceType(sourceType)
	session.Status = domain.SessionStatus(status)
	session.Provider = domain.Provider(provider)
	session.FailureReason = failureReason.String
	if promptVersionID.Valid {
		session.PromptVersionID = promptVersionID.UUID
	}
	session.Metadata = metadata

	return &session, nil
}

// nullString converts an empty string to a SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullUUID converts uuid.Nil to a SQL NULL.
func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

// nullJSON converts empty JSON to a SQL NULL so JSONB columns don't
// reject zero-length input.
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
