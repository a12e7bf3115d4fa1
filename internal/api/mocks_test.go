package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/service"
	"github.com/quillback/mnemo-api/internal/service/promptevo"
	"github.com/quillback/mnemo-api/internal/service/review"
	"github.com/quillback/mnemo-api/internal/store"
)

// fakeSessionService implements SessionService with per-method hooks.
type fakeSessionService struct {
	uploadFn   func(ctx context.Context, req service.UploadRequest) (*domain.Session, error)
	startFn    func(ctx context.Context, sessionID uuid.UUID) error
	continueFn func(ctx context.Context, sessionID uuid.UUID, focusAreas []string) error
	getFn      func(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	listFn     func(ctx context.Context, limit, offset int) ([]*domain.Session, error)
	statusFn   func(ctx context.Context, sessionID uuid.UUID) (*service.StatusReport, error)
	deleteFn   func(ctx context.Context, sessionID uuid.UUID) error
	finalizeFn func(ctx context.Context, sessionID uuid.UUID) (*service.FinalizeResult, error)
	exportFn   func(ctx context.Context, sessionID uuid.UUID) (string, []byte, error)

	uploads    []service.UploadRequest
	started    []uuid.UUID
	focusAreas [][]string
	listCalls  [][2]int
	deleted    []uuid.UUID
}

func (f *fakeSessionService) Upload(ctx context.Context, req service.UploadRequest) (*domain.Session, error) {
	f.uploads = append(f.uploads, req)
	if f.uploadFn != nil {
		return f.uploadFn(ctx, req)
	}
	return domain.NewSession(req.Filename, "/media/uploads/"+req.Filename, req.SourceType, req.Provider)
}

func (f *fakeSessionService) StartGeneration(ctx context.Context, sessionID uuid.UUID) error {
	f.started = append(f.started, sessionID)
	if f.startFn != nil {
		return f.startFn(ctx, sessionID)
	}
	return nil
}

func (f *fakeSessionService) ContinueGeneration(ctx context.Context, sessionID uuid.UUID, focusAreas []string) error {
	f.focusAreas = append(f.focusAreas, focusAreas)
	if f.continueFn != nil {
		return f.continueFn(ctx, sessionID, focusAreas)
	}
	return nil
}

func (f *fakeSessionService) Get(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	if f.getFn != nil {
		return f.getFn(ctx, sessionID)
	}
	return nil, store.ErrSessionNotFound
}

func (f *fakeSessionService) List(ctx context.Context, limit, offset int) ([]*domain.Session, error) {
	f.listCalls = append(f.listCalls, [2]int{limit, offset})
	if f.listFn != nil {
		return f.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (f *fakeSessionService) Status(ctx context.Context, sessionID uuid.UUID) (*service.StatusReport, error) {
	if f.statusFn != nil {
		return f.statusFn(ctx, sessionID)
	}
	return &service.StatusReport{SessionID: sessionID, Status: domain.SessionStatusProcessing}, nil
}

func (f *fakeSessionService) Delete(ctx context.Context, sessionID uuid.UUID) error {
	f.deleted = append(f.deleted, sessionID)
	if f.deleteFn != nil {
		return f.deleteFn(ctx, sessionID)
	}
	return nil
}

func (f *fakeSessionService) Finalize(ctx context.Context, sessionID uuid.UUID) (*service.FinalizeResult, error) {
	if f.finalizeFn != nil {
		return f.finalizeFn(ctx, sessionID)
	}
	return &service.FinalizeResult{}, nil
}

func (f *fakeSessionService) ExportCSV(ctx context.Context, sessionID uuid.UUID) (string, []byte, error) {
	if f.exportFn != nil {
		return f.exportFn(ctx, sessionID)
	}
	return "session_cards.csv", []byte("front,back,tags\n"), nil
}

// fakeReviewService implements ReviewService with per-method hooks.
type fakeReviewService struct {
	approveFn      func(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
	rejectFn       func(ctx context.Context, cardID uuid.UUID, reason string, rejectionType domain.RejectionType) (*domain.Card, error)
	editFn         func(ctx context.Context, cardID uuid.UUID, front, back string, tags []string) (*domain.Card, error)
	batchApproveFn func(ctx context.Context, cardIDs []uuid.UUID) (*review.BatchResult, error)
	batchRejectFn  func(ctx context.Context, cardIDs []uuid.UUID, reason string, rejectionType domain.RejectionType) (*review.BatchResult, error)
	autoCorrectFn  func(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
	getCardFn      func(ctx context.Context, cardID uuid.UUID) (*review.CardDetail, error)
	listCardsFn    func(ctx context.Context, sessionID uuid.UUID, status *domain.CardStatus) ([]*domain.Card, error)
	statsFn        func(ctx context.Context, sessionID uuid.UUID) (store.SessionCardStats, error)

	rejectReasons []string
	rejectTypes   []domain.RejectionType
	listFilters   []*domain.CardStatus
}

func (f *fakeReviewService) Approve(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	if f.approveFn != nil {
		return f.approveFn(ctx, cardID)
	}
	return nil, store.ErrCardNotFound
}

func (f *fakeReviewService) Reject(ctx context.Context, cardID uuid.UUID, reason string, rejectionType domain.RejectionType) (*domain.Card, error) {
	f.rejectReasons = append(f.rejectReasons, reason)
	f.rejectTypes = append(f.rejectTypes, rejectionType)
	if f.rejectFn != nil {
		return f.rejectFn(ctx, cardID, reason, rejectionType)
	}
	return nil, store.ErrCardNotFound
}

func (f *fakeReviewService) Edit(ctx context.Context, cardID uuid.UUID, front, back string, tags []string) (*domain.Card, error) {
	if f.editFn != nil {
		return f.editFn(ctx, cardID, front, back, tags)
	}
	return nil, store.ErrCardNotFound
}

func (f *fakeReviewService) BatchApprove(ctx context.Context, cardIDs []uuid.UUID) (*review.BatchResult, error) {
	if f.batchApproveFn != nil {
		return f.batchApproveFn(ctx, cardIDs)
	}
	return &review.BatchResult{Processed: len(cardIDs)}, nil
}

func (f *fakeReviewService) BatchReject(ctx context.Context, cardIDs []uuid.UUID, reason string, rejectionType domain.RejectionType) (*review.BatchResult, error) {
	f.rejectReasons = append(f.rejectReasons, reason)
	f.rejectTypes = append(f.rejectTypes, rejectionType)
	if f.batchRejectFn != nil {
		return f.batchRejectFn(ctx, cardIDs, reason, rejectionType)
	}
	return &review.BatchResult{Processed: len(cardIDs)}, nil
}

func (f *fakeReviewService) AutoCorrect(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	if f.autoCorrectFn != nil {
		return f.autoCorrectFn(ctx, cardID)
	}
	return nil, store.ErrCardNotFound
}

func (f *fakeReviewService) GetCard(ctx context.Context, cardID uuid.UUID) (*review.CardDetail, error) {
	if f.getCardFn != nil {
		return f.getCardFn(ctx, cardID)
	}
	return nil, store.ErrCardNotFound
}

func (f *fakeReviewService) ListCards(ctx context.Context, sessionID uuid.UUID, status *domain.CardStatus) ([]*domain.Card, error) {
	f.listFilters = append(f.listFilters, status)
	if f.listCardsFn != nil {
		return f.listCardsFn(ctx, sessionID, status)
	}
	return nil, nil
}

func (f *fakeReviewService) SessionStats(ctx context.Context, sessionID uuid.UUID) (store.SessionCardStats, error) {
	if f.statsFn != nil {
		return f.statsFn(ctx, sessionID)
	}
	return store.SessionCardStats{}, nil
}

// fakePromptService implements PromptService with per-method hooks.
type fakePromptService struct {
	activeFn          func(ctx context.Context, promptType domain.PromptType) (*domain.PromptVersion, error)
	historyFn         func(ctx context.Context, promptType domain.PromptType) ([]*domain.PromptVersion, error)
	listSuggestionsFn func(ctx context.Context, status *domain.SuggestionStatus) ([]*domain.PromptSuggestion, error)
	approveFn         func(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptVersion, error)
	rejectFn          func(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptSuggestion, error)
	analyticsFn       func(ctx context.Context) ([]promptevo.TypeAnalytics, error)

	statusFilters []*domain.SuggestionStatus
}

func (f *fakePromptService) ActivePrompt(ctx context.Context, promptType domain.PromptType) (*domain.PromptVersion, error) {
	if f.activeFn != nil {
		return f.activeFn(ctx, promptType)
	}
	return nil, store.ErrPromptVersionNotFound
}

func (f *fakePromptService) History(ctx context.Context, promptType domain.PromptType) ([]*domain.PromptVersion, error) {
	if f.historyFn != nil {
		return f.historyFn(ctx, promptType)
	}
	return nil, nil
}

func (f *fakePromptService) ListSuggestions(ctx context.Context, status *domain.SuggestionStatus) ([]*domain.PromptSuggestion, error) {
	f.statusFilters = append(f.statusFilters, status)
	if f.listSuggestionsFn != nil {
		return f.listSuggestionsFn(ctx, status)
	}
	return nil, nil
}

func (f *fakePromptService) ApproveSuggestion(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptVersion, error) {
	if f.approveFn != nil {
		return f.approveFn(ctx, suggestionID)
	}
	return nil, store.ErrSuggestionNotFound
}

func (f *fakePromptService) RejectSuggestion(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptSuggestion, error) {
	if f.rejectFn != nil {
		return f.rejectFn(ctx, suggestionID)
	}
	return nil, store.ErrSuggestionNotFound
}

func (f *fakePromptService) Analytics(ctx context.Context) ([]promptevo.TypeAnalytics, error) {
	if f.analyticsFn != nil {
		return f.analyticsFn(ctx)
	}
	return nil, nil
}
