package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/platform/postgres"
	"github.com/quillback/mnemo-api/internal/store"
	"github.com/quillback/mnemo-api/internal/testdb"
)

// These tests exercise the stores against a real Postgres schema. They are
// skipped unless DATABASE_URL is set; each case runs inside a rolled-back
// transaction so the database stays clean.

func newTestSession(t *testing.T) *domain.Session {
	t.Helper()

	session, err := domain.NewSession(
		"notes.md", "/data/media/notes.md", domain.SourceTypeMarkdown, domain.ProviderGemini)
	require.NoError(t, err)
	return session
}

func TestSessionStoreRoundTrip(t *testing.T) {
	db := testdb.Connect(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(tx *sql.Tx) {
		sessions := postgres.NewPostgresSessionStore(tx, nil)
		session := newTestSession(t)

		require.NoError(t, sessions.Create(ctx, session))

		got, err := sessions.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.Filename, got.Filename)
		assert.Equal(t, domain.SessionStatusPending, got.Status)

		listed, err := sessions.List(ctx, 10, 0)
		require.NoError(t, err)
		require.NotEmpty(t, listed)
		assert.Equal(t, session.ID, listed[0].ID)

		require.NoError(t, sessions.Delete(ctx, session.ID))
		_, err = sessions.GetByID(ctx, session.ID)
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
	})
}

func TestCardStoreSessionScope(t *testing.T) {
	db := testdb.Connect(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(tx *sql.Tx) {
		sessions := postgres.NewPostgresSessionStore(tx, nil)
		cards := postgres.NewPostgresCardStore(tx, nil)

		session := newTestSession(t)
		require.NoError(t, sessions.Create(ctx, session))

		first, err := domain.NewCard(session.ID, "What is a goroutine?",
			"A lightweight thread managed by the Go runtime.", []string{"go"}, 0)
		require.NoError(t, err)
		second, err := domain.NewCard(session.ID, "What does chan do?",
			"Declares a typed conduit for communication between goroutines.", nil, 1)
		require.NoError(t, err)

		require.NoError(t, cards.CreateMultiple(ctx, []*domain.Card{first, second}))

		listed, err := cards.ListBySession(ctx, session.ID, nil)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, first.ID, listed[0].ID)

		stats, err := cards.CountByStatus(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 2, stats.Pending)
		assert.Equal(t, 0, stats.Reviewed())

		removed, err := cards.DeleteBySession(ctx, session.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, removed)
	})
}
