package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/config"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/events"
	"github.com/quillback/mnemo-api/internal/generation"
	"github.com/quillback/mnemo-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTransactor runs the function directly; the fake stores ignore the
// transaction handle.
type fakeTransactor struct{}

func (fakeTransactor) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (f *fakeSessionStore) Create(ctx context.Context, s *domain.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeSessionStore) Update(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; !ok {
		return store.ErrSessionNotFound
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) List(ctx context.Context, limit, offset int) ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSessionStore) MarkReviewing(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return store.ErrSessionNotFound
	}
	if s.Status == domain.SessionStatusReady {
		s.Status = domain.SessionStatusReviewing
	}
	return nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return store.ErrSessionNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) WithTx(tx *sql.Tx) store.SessionStore { return f }

type fakeCardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*domain.Card
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[uuid.UUID]*domain.Card)}
}

func (f *fakeCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range cards {
		cp := *c
		f.cards[c.ID] = &cp
	}
	return nil
}

func (f *fakeCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCardStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeCardStore) Update(ctx context.Context, c *domain.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cards[c.ID]; !ok {
		return store.ErrCardNotFound
	}
	cp := *c
	f.cards[c.ID] = &cp
	return nil
}

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
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChunkIndex != out[j].ChunkIndex {
			return out[i].ChunkIndex < out[j].ChunkIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeCardStore) CountByStatus(ctx context.Context, sessionID uuid.UUID) (store.SessionCardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats store.SessionCardStats
	for _, c := range f.cards {
		if c.SessionID != sessionID {
			continue
		}
		stats.Total++
		switch c.Status {
		case domain.CardStatusPending:
			stats.Pending++
		case domain.CardStatusApproved:
			stats.Approved++
		case domain.CardStatusRejected:
			stats.Rejected++
		case domain.CardStatusEdited:
			stats.Edited++
		}
	}
	return stats, nil
}

func (f *fakeCardStore) DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, c := range f.cards {
		if c.SessionID == sessionID {
			delete(f.cards, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeCardStore) WithTx(tx *sql.Tx) store.CardStore { return f }

type fakeImageStore struct {
	mu     sync.Mutex
	images []*domain.CardImage
}

func (f *fakeImageStore) CreateMultiple(ctx context.Context, images []*domain.CardImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, images...)
	return nil
}

func (f *fakeImageStore) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.CardImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.CardImage
	for _, img := range f.images {
		if img.CardID == cardID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (f *fakeImageStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.CardImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.CardImage
	for _, img := range f.images {
		if img.SessionID == sessionID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (f *fakeImageStore) WithTx(tx *sql.Tx) store.CardImageStore { return f }

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

// fakeMedia keeps uploaded bytes in memory keyed by a synthetic path.
type fakeMedia struct {
	mu       sync.Mutex
	files    map[string][]byte
	removals []uuid.UUID
	// uploadPath overrides the synthetic path, so tests can hand the
	// pipeline a real on-disk markdown file.
	uploadPath string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{files: make(map[string][]byte)}
}

func (f *fakeMedia) SaveUpload(ctx context.Context, sessionID uuid.UUID, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	path := f.uploadPath
	if path == "" {
		path = "/media/uploads/" + sessionID.String() + "_" + filename
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
	return path, nil
}

func (f *fakeMedia) SaveImage(ctx context.Context, sessionID uuid.UUID, filename string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	name := sessionID.String() + "_" + filename
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files["/media/images/"+name] = data
	return name, int64(len(data)), nil
}

func (f *fakeMedia) ImagePath(storedFilename string) string {
	return "/media/images/" + storedFilename
}

func (f *fakeMedia) Open(path string) (io.ReadCloser, error) {
	f.mu.Lock()
	data, ok := f.files[path]
	f.mu.Unlock()
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeMedia) RemoveSession(ctx context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removals = append(f.removals, sessionID)
	return nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (f *fakeEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

// fakeGenerator scripts provider behavior per call.
type fakeGenerator struct {
	mu           sync.Mutex
	nativePDF    bool
	generateFn   func(ctx context.Context, req generation.CardRequest) ([]generation.CandidateCard, error)
	correctFn    func(ctx context.Context, req generation.CorrectionRequest) (generation.CandidateCard, error)
	improveFn    func(ctx context.Context, req generation.ImprovementRequest) (generation.PromptImprovement, error)
	cardRequests []generation.CardRequest
}

func (f *fakeGenerator) GenerateCards(ctx context.Context, req generation.CardRequest) ([]generation.CandidateCard, error) {
	f.mu.Lock()
	f.cardRequests = append(f.cardRequests, req)
	f.mu.Unlock()
	if f.generateFn != nil {
		return f.generateFn(ctx, req)
	}
	return nil, nil
}

func (f *fakeGenerator) CorrectCard(ctx context.Context, req generation.CorrectionRequest) (generation.CandidateCard, error) {
	if f.correctFn != nil {
		return f.correctFn(ctx, req)
	}
	return generation.CandidateCard{}, nil
}

func (f *fakeGenerator) ImprovePrompts(ctx context.Context, req generation.ImprovementRequest) (generation.PromptImprovement, error) {
	if f.improveFn != nil {
		return f.improveFn(ctx, req)
	}
	return generation.PromptImprovement{}, nil
}

func (f *fakeGenerator) SupportsNativePDF() bool { return f.nativePDF }

type fakeSuggestionEngine struct {
	suggestion *domain.PromptSuggestion
	err        error
	calls      int
}

func (f *fakeSuggestionEngine) AnalyzeSession(ctx context.Context, session *domain.Session) (*domain.PromptSuggestion, error) {
	f.calls++
	return f.suggestion, f.err
}

// serviceFixture bundles a SessionService with all its fakes.
type serviceFixture struct {
	svc        *SessionService
	sessions   *fakeSessionStore
	cards      *fakeCardStore
	images     *fakeImageStore
	prompts    *fakePromptStore
	media      *fakeMedia
	gen        *fakeGenerator
	emitter    *fakeEmitter
	suggestion *fakeSuggestionEngine
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		sessions:   newFakeSessionStore(),
		cards:      newFakeCardStore(),
		images:     &fakeImageStore{},
		prompts:    newFakePromptStore(),
		media:      newFakeMedia(),
		gen:        &fakeGenerator{},
		emitter:    &fakeEmitter{},
		suggestion: &fakeSuggestionEngine{},
	}

	svc, err := NewSessionService(SessionServiceParams{
		Sessions:   f.sessions,
		Cards:      f.cards,
		Images:     f.images,
		Prompts:    f.prompts,
		Tx:         fakeTransactor{},
		Media:      f.media,
		Providers:  ProviderRegistry{domain.ProviderGemini: f.gen},
		Emitter:    f.emitter,
		Suggestion: f.suggestion,
		GenCfg: config.GenerationConfig{
			ChunkSize:       4000,
			PDFBatchSize:    10,
			PDFBatchOverlap: 1,
		},
		LLMCfg: config.LLMConfig{ChunkTimeoutSeconds: 30},
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("failed to build session service: %v", err)
	}
	f.svc = svc
	return f
}

// seedGenerationPrompt installs an active generation prompt version.
func (f *serviceFixture) seedGenerationPrompt(t *testing.T) *domain.PromptVersion {
	t.Helper()
	pv, err := domain.NewPromptVersion(
		domain.PromptTypeGeneration,
		generation.DefaultGenerationSystemPrompt,
		generation.DefaultGenerationUserTemplate,
		1,
		uuid.Nil,
	)
	if err != nil {
		t.Fatalf("failed to build prompt version: %v", err)
	}
	pv.Activate()
	if err := f.prompts.Create(context.Background(), pv); err != nil {
		t.Fatalf("failed to seed prompt version: %v", err)
	}
	return pv
}
