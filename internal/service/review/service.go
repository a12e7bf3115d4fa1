// Package review implements the card review workflow: approve, reject,
// edit, batch operations, auto-correction, and the session-scoped card
// queries that drive the review UI.
package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/generation"
	"github.com/quillback/mnemo-api/internal/platform/logger"
	"github.com/quillback/mnemo-api/internal/service"
	"github.com/quillback/mnemo-api/internal/store"
)

// Service carries out review decisions. Every mutation runs a row-locked
// read-modify-write inside one transaction, so concurrent decisions on the
// same card serialize instead of clobbering each other.
type Service struct {
	cards      store.CardStore
	sessions   store.SessionStore
	rejections store.RejectionStore
	tx         store.Transactor
	providers  service.ProviderResolver
	logger     *slog.Logger
}

// NewService creates the review service.
func NewService(
	cards store.CardStore,
	sessions store.SessionStore,
	rejections store.RejectionStore,
	tx store.Transactor,
	providers service.ProviderResolver,
	log *slog.Logger,
) (*Service, error) {
	switch {
	case cards == nil:
		return nil, errors.New("card store cannot be nil")
	case sessions == nil:
		return nil, errors.New("session store cannot be nil")
	case rejections == nil:
		return nil, errors.New("rejection store cannot be nil")
	case tx == nil:
		return nil, errors.New("transactor cannot be nil")
	case providers == nil:
		return nil, errors.New("provider resolver cannot be nil")
	case log == nil:
		return nil, errors.New("logger cannot be nil")
	}

	return &Service{
		cards:      cards,
		sessions:   sessions,
		rejections: rejections,
		tx:         tx,
		providers:  providers,
		logger:     log.With(slog.String("component", "review_service")),
	}, nil
}

// Approve marks a card approved and stamps its review time.
func (s *Service) Approve(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	return s.decide(ctx, cardID, func(card *domain.Card, _ *sql.Tx) error {
		return card.Approve()
	})
}

// Reject marks a card rejected and appends an immutable CardRejection
// record. The reason must be non-empty and the type must be known.
func (s *Service) Reject(
	ctx context.Context,
	cardID uuid.UUID,
	reason string,
	rejectionType domain.RejectionType,
) (*domain.Card, error) {
	// Validate up front so a bad request fails before any status change.
	if _, err := domain.NewCardRejection(cardID, reason, rejectionType); err != nil {
		return nil, err
	}

	return s.decide(ctx, cardID, func(card *domain.Card, tx *sql.Tx) error {
		if err := card.Reject(); err != nil {
			return err
		}
		rejection, err := domain.NewCardRejection(card.ID, reason, rejectionType)
		if err != nil {
			return err
		}
		return s.rejections.WithTx(tx).Create(ctx, rejection)
	})
}

// Edit replaces a card's content. The first edit captures the original
// front/back; later edits leave the originals untouched.
func (s *Service) Edit(
	ctx context.Context,
	cardID uuid.UUID,
	front, back string,
	tags []string,
) (*domain.Card, error) {
	return s.decide(ctx, cardID, func(card *domain.Card, _ *sql.Tx) error {
		return card.ApplyEdit(front, back, tags)
	})
}

// decide is the shared transaction shape for single-card decisions: lock
// the card, apply the mutation, persist, and nudge the session into
// reviewing on the first decision.
func (s *Service) decide(
	ctx context.Context,
	cardID uuid.UUID,
	mutate func(card *domain.Card, tx *sql.Tx) error,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var card *domain.Card
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		var err error
		card, err = cards.GetForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if err := mutate(card, tx); err != nil {
			return err
		}
		if err := cards.Update(ctx, card); err != nil {
			return err
		}
		// Conditional ready -> reviewing; a no-op for sessions already
		// past ready.
		return s.sessions.WithTx(tx).MarkReviewing(ctx, card.SessionID)
	})
	if err != nil {
		return nil, err
	}

	log.Debug("card review decision applied",
		slog.String("card_id", cardID.String()),
		slog.String("status", string(card.Status)))
	return card, nil
}

// BatchResult reports a best-effort batch operation.
type BatchResult struct {
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// BatchFailure is one card that could not be processed.
type BatchFailure struct {
	CardID uuid.UUID `json:"card_id"`
	Error  string    `json:"error"`
}

// BatchApprove approves cards best-effort: a failing card never aborts the
// rest.
func (s *Service) BatchApprove(ctx context.Context, cardIDs []uuid.UUID) (*BatchResult, error) {
	if len(cardIDs) == 0 {
		return nil, service.ErrEmptyBatch
	}
	return s.batch(ctx, cardIDs, func(ctx context.Context, id uuid.UUID) error {
		_, err := s.Approve(ctx, id)
		return err
	}), nil
}

// BatchReject rejects cards best-effort with one shared reason and type.
// An invalid reason or type fails the whole batch up front.
func (s *Service) BatchReject(
	ctx context.Context,
	cardIDs []uuid.UUID,
	reason string,
	rejectionType domain.RejectionType,
) (*BatchResult, error) {
	if len(cardIDs) == 0 {
		return nil, service.ErrEmptyBatch
	}
	// Validate against a throwaway ID so nothing is processed when the
	// shared inputs are bad.
	if _, err := domain.NewCardRejection(uuid.New(), reason, rejectionType); err != nil {
		return nil, err
	}
	return s.batch(ctx, cardIDs, func(ctx context.Context, id uuid.UUID) error {
		_, err := s.Reject(ctx, id, reason, rejectionType)
		return err
	}), nil
}

func (s *Service) batch(
	ctx context.Context,
	cardIDs []uuid.UUID,
	op func(ctx context.Context, id uuid.UUID) error,
) *BatchResult {
	result := &BatchResult{}
	for _, id := range cardIDs {
		if err := op(ctx, id); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{CardID: id, Error: err.Error()})
			continue
		}
		result.Processed++
	}
	return result
}

// AutoCorrect asks the session's LLM provider to rewrite a rejected card
// from its latest rejection feedback. The card keeps rejected status; only
// its content changes, and the rejection is marked auto-corrected.
// Provider failures surface as-is and are never retried.
func (s *Service) AutoCorrect(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.Status != domain.CardStatusRejected {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidState, service.ErrCardNotRejected)
	}

	rejection, err := s.rejections.GetLatestByCardID(ctx, cardID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByID(ctx, card.SessionID)
	if err != nil {
		return nil, err
	}
	gen, err := s.providers.Provider(session.Provider)
	if err != nil {
		return nil, err
	}

	// Correct from the original content when the card has been edited
	// since generation.
	front, back := card.Front, card.Back
	if card.OriginalFront != nil && card.OriginalBack != nil {
		front, back = *card.OriginalFront, *card.OriginalBack
	}

	corrected, err := gen.CorrectCard(ctx, generation.CorrectionRequest{
		SystemPrompt: generation.CorrectionSystemPrompt(),
		UserPrompt:   generation.CorrectionPrompt(front, back, rejection),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	err = s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		card, err = cards.GetForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if card.Status != domain.CardStatusRejected {
			return fmt.Errorf("%w: %v", service.ErrInvalidState, service.ErrCardNotRejected)
		}
		if err := card.ReplaceContent(corrected.Front, corrected.Back); err != nil {
			return err
		}
		if err := cards.Update(ctx, card); err != nil {
			return err
		}

		rejection.MarkAutoCorrected()
		return s.rejections.WithTx(tx).Update(ctx, rejection)
	})
	if err != nil {
		return nil, err
	}

	log.Info("card auto-corrected",
		slog.String("card_id", cardID.String()),
		slog.String("rejection_type", string(rejection.Type)))
	return card, nil
}

// CardDetail is a card together with its full rejection history, newest
// first.
type CardDetail struct {
	Card       *domain.Card            `json:"card"`
	Rejections []*domain.CardRejection `json:"rejections,omitempty"`
}

// GetCard retrieves one card and its rejection history.
func (s *Service) GetCard(ctx context.Context, cardID uuid.UUID) (*CardDetail, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	rejections, err := s.rejections.ListByCardID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return &CardDetail{Card: card, Rejections: rejections}, nil
}

// ListCards retrieves a session's cards, optionally filtered by status.
func (s *Service) ListCards(
	ctx context.Context,
	sessionID uuid.UUID,
	status *domain.CardStatus,
) ([]*domain.Card, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.cards.ListBySession(ctx, sessionID, status)
}

// SessionStats reports a session's per-status card counts.
func (s *Service) SessionStats(ctx context.Context, sessionID uuid.UUID) (store.SessionCardStats, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return store.SessionCardStats{}, err
	}
	return s.cards.CountByStatus(ctx, sessionID)
}
