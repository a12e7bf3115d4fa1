package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/config"
	"github.com/quillback/mnemo-api/internal/content"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/events"
	"github.com/quillback/mnemo-api/internal/platform/logger"
	"github.com/quillback/mnemo-api/internal/store"
	"github.com/quillback/mnemo-api/internal/task"
)

// SessionService orchestrates the document-to-cards workflow: upload,
// background generation, continuation, progress, finalize, delete. It
// implements task.GenerationService so persisted generation tasks can call
// back into it after a restart.
type SessionService struct {
	sessions   store.SessionStore
	cards      store.CardStore
	images     store.CardImageStore
	prompts    store.PromptVersionStore
	tx         store.Transactor
	media      MediaStore
	providers  ProviderResolver
	extractor  content.Extractor // optional; nil when no PDF text extraction is wired
	emitter    events.EventEmitter
	suggestion SuggestionEngine
	genCfg     config.GenerationConfig
	llmCfg     config.LLMConfig
	logger     *slog.Logger
}

// Compile-time check: persisted generation tasks execute through this service.
var _ task.GenerationService = (*SessionService)(nil)

// SessionServiceParams collects the orchestrator's dependencies.
type SessionServiceParams struct {
	Sessions   store.SessionStore
	Cards      store.CardStore
	Images     store.CardImageStore
	Prompts    store.PromptVersionStore
	Tx         store.Transactor
	Media      MediaStore
	Providers  ProviderResolver
	Extractor  content.Extractor
	Emitter    events.EventEmitter
	Suggestion SuggestionEngine
	GenCfg     config.GenerationConfig
	LLMCfg     config.LLMConfig
	Logger     *slog.Logger
}

// NewSessionService creates the session orchestrator. Extractor and
// Suggestion may be nil; everything else is required.
func NewSessionService(p SessionServiceParams) (*SessionService, error) {
	switch {
	case p.Sessions == nil:
		return nil, errors.New("session store cannot be nil")
	case p.Cards == nil:
		return nil, errors.New("card store cannot be nil")
	case p.Images == nil:
		return nil, errors.New("card image store cannot be nil")
	case p.Prompts == nil:
		return nil, errors.New("prompt version store cannot be nil")
	case p.Tx == nil:
		return nil, errors.New("transactor cannot be nil")
	case p.Media == nil:
		return nil, errors.New("media store cannot be nil")
	case p.Providers == nil:
		return nil, errors.New("provider resolver cannot be nil")
	case p.Emitter == nil:
		return nil, errors.New("event emitter cannot be nil")
	case p.Logger == nil:
		return nil, errors.New("logger cannot be nil")
	}

	return &SessionService{
		sessions:   p.Sessions,
		cards:      p.Cards,
		images:     p.Images,
		prompts:    p.Prompts,
		tx:         p.Tx,
		media:      p.Media,
		providers:  p.Providers,
		extractor:  p.Extractor,
		emitter:    p.Emitter,
		suggestion: p.Suggestion,
		genCfg:     p.GenCfg,
		llmCfg:     p.LLMCfg,
		logger:     p.Logger.With(slog.String("component", "session_service")),
	}, nil
}

// UploadRequest carries one uploaded document.
type UploadRequest struct {
	Filename   string
	SourceType domain.SourceType
	Provider   domain.Provider
	File       io.Reader
}

// Upload stores the document and creates a pending session for it. The
// selected provider must be configured.
func (s *SessionService) Upload(ctx context.Context, req UploadRequest) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.providers.Provider(req.Provider); err != nil {
		return nil, err
	}

	session, err := domain.NewSession(req.Filename, "", req.SourceType, req.Provider)
	if err != nil {
		return nil, err
	}

	path, err := s.media.SaveUpload(ctx, session.ID, req.Filename, req.File)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	session.FilePath = path

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("source_type", string(session.SourceType)),
		slog.String("provider", string(session.Provider)))
	return session, nil
}

// StartGeneration moves a pending session into processing and enqueues the
// generation task. PDF sessions require either a provider with native PDF
// support or a wired text extractor.
func (s *SessionService) StartGeneration(ctx context.Context, sessionID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sessions := s.sessions.WithTx(tx)
		session, err := sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}

		if session.SourceType == domain.SourceTypePDF {
			gen, err := s.providers.Provider(session.Provider)
			if err != nil {
				return err
			}
			if !gen.SupportsNativePDF() && s.extractor == nil {
				return ErrPDFNotSupported
			}
		}

		if err := session.StartProcessing(); err != nil {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
		}
		return sessions.Update(ctx, session)
	})
	if err != nil {
		return err
	}

	event, err := task.NewSessionGenerationEvent(sessionID)
	if err != nil {
		return fmt.Errorf("failed to build generation event: %w", err)
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to enqueue generation: %w", err)
	}

	log.Info("generation started", slog.String("session_id", sessionID.String()))
	return nil
}

// ContinueGeneration enqueues another generation pass over a ready or
// reviewing session, optionally steered toward focus areas.
func (s *SessionService) ContinueGeneration(ctx context.Context, sessionID uuid.UUID, focusAreas []string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sessions := s.sessions.WithTx(tx)
		session, err := sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != domain.SessionStatusReady && session.Status != domain.SessionStatusReviewing {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
		}
		if err := session.TransitionTo(domain.SessionStatusProcessing); err != nil {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
		}
		return sessions.Update(ctx, session)
	})
	if err != nil {
		return err
	}

	event, err := task.NewContinueGenerationEvent(sessionID, focusAreas)
	if err != nil {
		return fmt.Errorf("failed to build continuation event: %w", err)
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to enqueue continuation: %w", err)
	}

	log.Info("continuation started",
		slog.String("session_id", sessionID.String()),
		slog.Int("focus_areas", len(focusAreas)))
	return nil
}

// Get retrieves a session by ID.
func (s *SessionService) Get(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

// List retrieves sessions newest first.
func (s *SessionService) List(ctx context.Context, limit, offset int) ([]*domain.Session, error) {
	return s.sessions.List(ctx, limit, offset)
}

// StatusReport is the progress-polling view of a session.
type StatusReport struct {
	SessionID       uuid.UUID              `json:"session_id"`
	Status          domain.SessionStatus   `json:"status"`
	Progress        int                    `json:"progress"`
	TotalChunks     int                    `json:"total_chunks"`
	ProcessedChunks int                    `json:"processed_chunks"`
	FailedChunks    int                    `json:"failed_chunks"`
	FailureReason   string                 `json:"failure_reason,omitempty"`
	CardStats       store.SessionCardStats `json:"card_stats"`
}

// Status reports a session's generation progress and card counts.
func (s *SessionService) Status(ctx context.Context, sessionID uuid.UUID) (*StatusReport, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	stats, err := s.cards.CountByStatus(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	return &StatusReport{
		SessionID:       session.ID,
		Status:          session.Status,
		Progress:        session.ProgressPercent(),
		TotalChunks:     session.TotalChunks,
		ProcessedChunks: session.ProcessedChunks,
		FailedChunks:    session.FailedChunks,
		FailureReason:   session.FailureReason,
		CardStats:       stats,
	}, nil
}

// Delete removes a session, its cards, rejections and image records (via
// cascade), and its stored files.
func (s *SessionService) Delete(ctx context.Context, sessionID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if err := s.media.RemoveSession(ctx, sessionID); err != nil {
		// The rows are already gone; losing the files only leaks disk.
		log.Warn("failed to remove session media",
			slog.String("session_id", sessionID.String()),
			slog.String("error", err.Error()))
	}

	log.Info("session deleted", slog.String("session_id", sessionID.String()))
	return nil
}

// FinalizeResult reports the outcome of finalizing a session.
type FinalizeResult struct {
	Session           *domain.Session        `json:"session"`
	Stats             store.SessionCardStats `json:"stats"`
	SuggestionCreated bool                   `json:"suggestion_created"`
	SuggestionID      uuid.UUID              `json:"suggestion_id,omitempty"`
}

// Finalize freezes a session's review phase. It requires zero pending
// cards, rolls the session's final approve/reject tallies into its prompt
// version's counters, and then asks the suggestion engine for a prompt
// improvement. A suggestion failure never fails an otherwise-valid
// finalize.
func (s *SessionService) Finalize(ctx context.Context, sessionID uuid.UUID) (*FinalizeResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var session *domain.Session
	var stats store.SessionCardStats

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sessions := s.sessions.WithTx(tx)

		var err error
		session, err = sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.IsFinalized() {
			return fmt.Errorf("%w: %w", ErrInvalidState, ErrSessionFinalized)
		}

		stats, err = s.cards.WithTx(tx).CountByStatus(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to count cards: %w", err)
		}
		if stats.Pending > 0 {
			return fmt.Errorf("%w: %w: %d pending", ErrInvalidState, ErrPendingCardsRemain, stats.Pending)
		}

		if err := session.MarkFinalized(); err != nil {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
		}
		if err := sessions.Update(ctx, session); err != nil {
			return err
		}

		if session.PromptVersionID != uuid.Nil {
			prompts := s.prompts.WithTx(tx)
			pv, err := prompts.GetByID(ctx, session.PromptVersionID)
			if err != nil {
				return fmt.Errorf("failed to load prompt version: %w", err)
			}
			pv.RecordReviewOutcomes(stats.Approved, stats.Rejected)
			if err := prompts.Update(ctx, pv); err != nil {
				return fmt.Errorf("failed to update prompt counters: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &FinalizeResult{Session: session, Stats: stats}

	if s.suggestion != nil {
		suggestion, err := s.suggestion.AnalyzeSession(ctx, session)
		switch {
		case err != nil:
			log.Warn("prompt suggestion failed",
				slog.String("session_id", sessionID.String()),
				slog.String("error", err.Error()))
		case suggestion != nil:
			result.SuggestionCreated = true
			result.SuggestionID = suggestion.ID
		}
	}

	log.Info("session finalized",
		slog.String("session_id", sessionID.String()),
		slog.Int("approved", stats.Approved),
		slog.Int("rejected", stats.Rejected),
		slog.Bool("suggestion_created", result.SuggestionCreated))
	return result, nil
}

// sessionMetadata is the JSONB document sidecar on a session: extraction
// facts plus continuation counters.
type sessionMetadata struct {
	Title              string `json:"title,omitempty"`
	PageCount          int    `json:"page_count,omitempty"`
	BatchStrategy      string `json:"batch_strategy,omitempty"`
	ContinueCount      int    `json:"continue_count,omitempty"`
	ContinueCardsAdded int    `json:"continue_cards_added,omitempty"`
}

func readMetadata(session *domain.Session) sessionMetadata {
	var meta sessionMetadata
	if len(session.Metadata) > 0 {
		// Unknown or legacy keys are dropped on the next write.
		_ = json.Unmarshal(session.Metadata, &meta)
	}
	return meta
}

func writeMetadata(session *domain.Session, meta sessionMetadata) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	session.Metadata = raw
}
