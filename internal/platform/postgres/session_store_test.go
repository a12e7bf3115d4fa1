package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/store"
)

func newSessionStoreWithMock(t *testing.T) (*PostgresSessionStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewPostgresSessionStore(db, nil), mock
}

func validSession(t *testing.T) *domain.Session {
	t.Helper()

	session, err := domain.NewSession(
		"notes.md", "/data/media/notes.md", domain.SourceTypeMarkdown, domain.ProviderGemini)
	require.NoError(t, err)
	return session
}

func sessionRows(session *domain.Session) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "filename", "file_path", "source_type", "status", "total_chunks",
		"processed_chunks", "failed_chunks", "failure_reason", "llm_provider",
		"prompt_version_id", "metadata", "created_at", "completed_at",
	}).AddRow(
		session.ID, session.Filename, session.FilePath, string(session.SourceType),
		string(session.Status), session.TotalChunks, session.ProcessedChunks,
		session.FailedChunks, nil, string(session.Provider),
		nil, nil, session.CreatedAt, nil,
	)
}

func TestPostgresSessionStore_Create(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		sessionStore, mock := newSessionStoreWithMock(t)
		session := validSession(t)

		mock.ExpectExec("INSERT INTO sessions").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, sessionStore.Create(context.Background(), session))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validation failure skips the database", func(t *testing.T) {
		sessionStore, mock := newSessionStoreWithMock(t)
		session := validSession(t)
		session.Filename = ""

		err := sessionStore.Create(context.Background(), session)
		assert.ErrorIs(t, err, domain.ErrEmptySessionFilename)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresSessionStore_GetByID(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		sessionStore, mock := newSessionStoreWithMock(t)
		session := validSession(t)

		mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id").
			WithArgs(session.ID).
			WillReturnRows(sessionRows(session))

		got, err := sessionStore.GetByID(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.Filename, got.Filename)
		assert.Equal(t, domain.SessionStatusPending, got.Status)
		assert.Equal(t, domain.ProviderGemini, got.Provider)
	})

	t.Run("not found", func(t *testing.T) {
		sessionStore, mock := newSessionStoreWithMock(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := sessionStore.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
	})
}

func TestPostgresSessionStore_Update_NotFound(t *testing.T) {
	t.Parallel()

	sessionStore, mock := newSessionStoreWithMock(t)
	session := validSession(t)

	mock.ExpectExec("UPDATE sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := sessionStore.Update(context.Background(), session)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestPostgresSessionStore_MarkReviewing(t *testing.T) {
	t.Parallel()

	t.Run("transitions ready session", func(t *testing.T) {
		sessionStore, mock := newSessionStoreWithMock(t)
		id := uuid.New()

		mock.ExpectExec("UPDATE sessions").
			WithArgs(
				string(domain.SessionStatusReviewing), id,
				string(domain.SessionStatusReady)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, sessionStore.MarkReviewing(context.Background(), id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no-op when session is past ready", func(t *testing.T) {
		sessionStore, mock := newSessionStoreWithMock(t)
		id := uuid.New()

		mock.ExpectExec("UPDATE sessions").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		assert.NoError(t, sessionStore.MarkReviewing(context.Background(), id))
	})

	t.Run("missing session", func(t *testing.T) {
		sessionStore, mock := newSessionStoreWithMock(t)
		id := uuid.New()

		mock.ExpectExec("UPDATE sessions").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := sessionStore.MarkReviewing(context.Background(), id)
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
	})
}

func TestPostgresSessionStore_List(t *testing.T) {
	t.Parallel()

	sessionStore, mock := newSessionStoreWithMock(t)

	first := validSession(t)
	second := validSession(t)
	second.CreatedAt = first.CreatedAt.Add(-time.Hour)

	rows := sessionRows(first)
	rows.AddRow(
		second.ID, second.Filename, second.FilePath, string(second.SourceType),
		string(second.Status), second.TotalChunks, second.ProcessedChunks,
		second.FailedChunks, nil, string(second.Provider),
		nil, nil, second.CreatedAt, nil,
	)

	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs(0, 10).
		WillReturnRows(rows)

	sessions, err := sessionStore.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

func TestPostgresSessionStore_Delete_NotFound(t *testing.T) {
	t.Parallel()

	sessionStore, mock := newSessionStoreWithMock(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := sessionStore.Delete(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}
