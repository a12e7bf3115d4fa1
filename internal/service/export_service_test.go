package service

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/store"
)

func TestExportCSV_OnlyApprovedAndEditedCards(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	session := seedSession(t, f, domain.SessionStatusReviewing, domain.SourceTypeMarkdown)

	approved, err := domain.NewCard(session.ID, "What is ATP?", "The cell's energy currency.", []string{"bio", "energy"}, 0)
	require.NoError(t, err)
	edited, err := domain.NewCard(session.ID, "Where is DNA stored?", "In the nucleus.", nil, 1)
	require.NoError(t, err)
	pending, err := domain.NewCard(session.ID, "Pending question?", "Pending answer.", nil, 2)
	require.NoError(t, err)
	rejected, err := domain.NewCard(session.ID, "Rejected question?", "Rejected answer.", nil, 3)
	require.NoError(t, err)
	require.NoError(t, f.cards.CreateMultiple(context.Background(),
		[]*domain.Card{approved, edited, pending, rejected}))

	approved.Status = domain.CardStatusApproved
	edited.Status = domain.CardStatusEdited
	rejected.Status = domain.CardStatusRejected
	for _, c := range []*domain.Card{approved, edited, rejected} {
		require.NoError(t, f.cards.Update(context.Background(), c))
	}

	filename, data, err := f.svc.ExportCSV(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes_cards.csv", filename)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus the two exportable cards")
	assert.Equal(t, []string{"front", "back", "tags"}, records[0])
	assert.Equal(t, []string{"What is ATP?", "The cell's energy currency.", "bio energy"}, records[1])
	assert.Equal(t, []string{"Where is DNA stored?", "In the nucleus.", ""}, records[2])
}

func TestExportCSV_NoExportableCards(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	session := seedSession(t, f, domain.SessionStatusReviewing, domain.SourceTypeMarkdown)
	seedCard(t, f, session.ID, domain.CardStatusPending)
	seedCard(t, f, session.ID, domain.CardStatusRejected)

	_, _, err := f.svc.ExportCSV(context.Background(), session.ID)
	assert.ErrorIs(t, err, ErrNoExportableCards)
}

func TestExportCSV_SessionNotFound(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	_, _, err := f.svc.ExportCSV(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestExportFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		uploaded string
		want     string
	}{
		{"biology notes.pdf", "biology_notes_cards.csv"},
		{"notes.md", "notes_cards.csv"},
		{"archive.tar.gz", "archive.tar_cards.csv"},
		{"", "session_cards.csv"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, exportFilename(tc.uploaded), "uploaded=%q", tc.uploaded)
	}
}
