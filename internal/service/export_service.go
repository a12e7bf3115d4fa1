package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
)

// ExportCSV renders the session's approved and edited cards as
// front,back,tags CSV with tags space-joined; pending and rejected cards
// never export. A session with nothing exportable is a validation failure.
func (s *SessionService) ExportCSV(ctx context.Context, sessionID uuid.UUID) (string, []byte, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}

	cards, err := s.cards.ListBySession(ctx, sessionID, nil)
	if err != nil {
		return "", nil, err
	}

	exportable := make([]*domain.Card, 0, len(cards))
	for _, card := range cards {
		if card.Status == domain.CardStatusApproved || card.Status == domain.CardStatusEdited {
			exportable = append(exportable, card)
		}
	}
	if len(exportable) == 0 {
		return "", nil, ErrNoExportableCards
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"front", "back", "tags"}); err != nil {
		return "", nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, card := range exportable {
		if err := w.Write([]string{card.Front, card.Back, strings.Join(card.Tags, " ")}); err != nil {
			return "", nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return exportFilename(session.Filename), buf.Bytes(), nil
}

// exportFilename derives the download name from the uploaded document's
// name.
func exportFilename(uploaded string) string {
	base := strings.TrimSuffix(filepath.Base(uploaded), filepath.Ext(uploaded))
	base = strings.ReplaceAll(strings.TrimSpace(base), " ", "_")
	if base == "" || base == "." {
		base = "session"
	}
	return base + "_cards.csv"
}
