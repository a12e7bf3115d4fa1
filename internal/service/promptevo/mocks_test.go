package promptevo

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/generation"
	"github.com/quillback/mnemo-api/internal/service"
	"github.com/quillback/mnemo-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTransactor struct{}

func (fakeTransactor) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

type fakePromptStore struct {
	mu       sync.Mutex
	versions map[uuid.UUID]*domain.PromptVersion
}

func newFakePromptStore() *fakePromptStore {
	return &fakePromptStore{versions: make(map[uuid.UUID]*domain.PromptVersion)}
}

func (f *fakePromptStore) Create(ctx context.Context, v *domain.PromptVersion) error {
	if err := v.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *v
	f.versions[v.ID] = &cp
	return nil
}

func (f *fakePromptStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PromptVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.versions[id]
	if !ok {
		return nil, store.ErrPromptVersionNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakePromptStore) GetActive(ctx context.Context, t domain.PromptType) (*domain.PromptVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.Type == t && v.IsActive {
			cp := *v
			return &cp, nil
		}
	}
	return nil, store.ErrPromptVersionNotFound
}

func (f *fakePromptStore) MaxVersion(ctx context.Context, t domain.PromptType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, v := range f.versions {
		if v.Type == t && v.Version > max {
			max = v.Version
		}
	}
	return max, nil
}

func (f *fakePromptStore) DeactivateActive(ctx context.Context, t domain.PromptType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.versions {
		if v.Type == t && v.IsActive {
			v.IsActive = false
		}
	}
	return nil
}

func (f *fakePromptStore) Update(ctx context.Context, v *domain.PromptVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.versions[v.ID]; !ok {
		return store.ErrPromptVersionNotFound
	}
	cp := *v
	f.versions[v.ID] = &cp
	return nil
}

func (f *fakePromptStore) ListByType(ctx context.Context, t domain.PromptType) ([]*domain.PromptVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PromptVersion
	for _, v := range f.versions {
		if v.Type == t {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (f *fakePromptStore) WithTx(tx *sql.Tx) store.PromptVersionStore { return f }

type fakeSuggestionStore struct {
	mu          sync.Mutex
	suggestions map[uuid.UUID]*domain.PromptSuggestion
}

func newFakeSuggestionStore() *fakeSuggestionStore {
	return &fakeSuggestionStore{suggestions: make(map[uuid.UUID]*domain.PromptSuggestion)}
}

func (f *fakeSuggestionStore) Create(ctx context.Context, s *domain.PromptSuggestion) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.suggestions[s.ID] = &cp
	return nil
}

func (f *fakeSuggestionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PromptSuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.suggestions[id]
	if !ok {
		return nil, store.ErrSuggestionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSuggestionStore) Update(ctx context.Context, s *domain.PromptSuggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.suggestions[s.ID]; !ok {
		return store.ErrSuggestionNotFound
	}
	cp := *s
	f.suggestions[s.ID] = &cp
	return nil
}

func (f *fakeSuggestionStore) ListByStatus(ctx context.Context, status *domain.SuggestionStatus) ([]*domain.PromptSuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PromptSuggestion
	for _, s := range f.suggestions {
		if status != nil && s.Status != *status {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSuggestionStore) WithTx(tx *sql.Tx) store.PromptSuggestionStore { return f }

type fakeCardStore struct {
	mu    sync.Mutex
	cards []*domain.Card
}

func (f *fakeCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards = append(f.cards, cards...)
	return nil
}

func (f *fakeCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return nil, store.ErrCardNotFound
}

func (f *fakeCardStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return nil, store.ErrCardNotFound
}

func (f *fakeCardStore) Update(ctx context.Context, c *domain.Card) error { return nil }

func (f *fakeCardStore) ListBySession(ctx context.Context, sessionID uuid.UUID, status *domain.CardStatus) ([]*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Card
	for _, c := range f.cards {
		if c.SessionID != sessionID {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCardStore) CountByStatus(ctx context.Context, sessionID uuid.UUID) (store.SessionCardStats, error) {
	return store.SessionCardStats{}, nil
}

func (f *fakeCardStore) DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeCardStore) WithTx(tx *sql.Tx) store.CardStore { return f }

type fakeRejectionStore struct {
	mu        sync.Mutex
	bySession map[uuid.UUID][]*domain.CardRejection
}

func newFakeRejectionStore() *fakeRejectionStore {
	return &fakeRejectionStore{bySession: make(map[uuid.UUID][]*domain.CardRejection)}
}

func (f *fakeRejectionStore) Create(ctx context.Context, r *domain.CardRejection) error { return nil }

func (f *fakeRejectionStore) GetLatestByCardID(ctx context.Context, cardID uuid.UUID) (*domain.CardRejection, error) {
	return nil, store.ErrRejectionNotFound
}

func (f *fakeRejectionStore) ListByCardID(ctx context.Context, cardID uuid.UUID) ([]*domain.CardRejection, error) {
	return nil, nil
}

func (f *fakeRejectionStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.CardRejection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bySession[sessionID], nil
}

func (f *fakeRejectionStore) Update(ctx context.Context, r *domain.CardRejection) error { return nil }

func (f *fakeRejectionStore) WithTx(tx *sql.Tx) store.RejectionStore { return f }

type fakeGenerator struct {
	improveFn func(ctx context.Context, req generation.ImprovementRequest) (generation.PromptImprovement, error)
	requests  []generation.ImprovementRequest
}

func (f *fakeGenerator) GenerateCards(ctx context.Context, req generation.CardRequest) ([]generation.CandidateCard, error) {
	return nil, nil
}

func (f *fakeGenerator) CorrectCard(ctx context.Context, req generation.CorrectionRequest) (generation.CandidateCard, error) {
	return generation.CandidateCard{}, nil
}

func (f *fakeGenerator) ImprovePrompts(ctx context.Context, req generation.ImprovementRequest) (generation.PromptImprovement, error) {
	f.requests = append(f.requests, req)
	if f.improveFn != nil {
		return f.improveFn(ctx, req)
	}
	return generation.PromptImprovement{
		Reasoning:                   "cards were too ambiguous",
		SuggestedSystemPrompt:       "revised system prompt",
		SuggestedUserPromptTemplate: "revised template with {content}",
	}, nil
}

func (f *fakeGenerator) SupportsNativePDF() bool { return true }

type fixture struct {
	svc         *Service
	prompts     *fakePromptStore
	suggestions *fakeSuggestionStore
	cards       *fakeCardStore
	rejections  *fakeRejectionStore
	gen         *fakeGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		prompts:     newFakePromptStore(),
		suggestions: newFakeSuggestionStore(),
		cards:       &fakeCardStore{},
		rejections:  newFakeRejectionStore(),
		gen:         &fakeGenerator{},
	}

	svc, err := NewService(
		f.prompts,
		f.suggestions,
		f.cards,
		f.rejections,
		fakeTransactor{},
		service.ProviderRegistry{domain.ProviderGemini: f.gen},
		testLogger(),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// seedActivePrompt installs an active prompt version of the given type.
func (f *fixture) seedActivePrompt(t *testing.T, promptType domain.PromptType, version int) *domain.PromptVersion {
	t.Helper()
	pv, err := domain.NewPromptVersion(promptType, "system prompt", "template {content}", version, uuid.Nil)
	require.NoError(t, err)
	pv.Activate()
	require.NoError(t, f.prompts.Create(context.Background(), pv))
	return pv
}

// seedRejection appends a rejection to a session's analysis corpus.
func (f *fixture) seedRejection(t *testing.T, sessionID uuid.UUID, reason string, rt domain.RejectionType) {
	t.Helper()
	r, err := domain.NewCardRejection(uuid.New(), reason, rt)
	require.NoError(t, err)
	f.rejections.mu.Lock()
	f.rejections.bySession[sessionID] = append(f.rejections.bySession[sessionID], r)
	f.rejections.mu.Unlock()
}

func testSession(t *testing.T) *domain.Session {
	t.Helper()
	session, err := domain.NewSession("notes.md", "/media/uploads/notes.md", domain.SourceTypeMarkdown, domain.ProviderGemini)
	require.NoError(t, err)
	session.Status = domain.SessionStatusFinalized
	return session
}
