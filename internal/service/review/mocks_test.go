package review

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

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

type fakeCardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*domain.Card
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[uuid.UUID]*domain.Card)}
}

func (f *fakeCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
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
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
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
	return 0, nil
}

func (f *fakeCardStore) WithTx(tx *sql.Tx) store.CardStore { return f }

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (f *fakeSessionStore) Create(ctx context.Context, s *domain.Session) error {
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
	return nil, nil
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
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) WithTx(tx *sql.Tx) store.SessionStore { return f }

type fakeRejectionStore struct {
	mu         sync.Mutex
	rejections map[uuid.UUID]*domain.CardRejection
}

func newFakeRejectionStore() *fakeRejectionStore {
	return &fakeRejectionStore{rejections: make(map[uuid.UUID]*domain.CardRejection)}
}

func (f *fakeRejectionStore) Create(ctx context.Context, r *domain.CardRejection) error {
	if err := r.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.rejections[r.ID] = &cp
	return nil
}

func (f *fakeRejectionStore) GetLatestByCardID(ctx context.Context, cardID uuid.UUID) (*domain.CardRejection, error) {
	all, _ := f.ListByCardID(ctx, cardID)
	if len(all) == 0 {
		return nil, store.ErrRejectionNotFound
	}
	return all[0], nil
}

func (f *fakeRejectionStore) ListByCardID(ctx context.Context, cardID uuid.UUID) ([]*domain.CardRejection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.CardRejection
	for _, r := range f.rejections {
		if r.CardID == cardID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRejectionStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.CardRejection, error) {
	return nil, nil
}

func (f *fakeRejectionStore) Update(ctx context.Context, r *domain.CardRejection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rejections[r.ID]; !ok {
		return store.ErrRejectionNotFound
	}
	cp := *r
	f.rejections[r.ID] = &cp
	return nil
}

func (f *fakeRejectionStore) WithTx(tx *sql.Tx) store.RejectionStore { return f }

type fakeGenerator struct {
	correctFn func(ctx context.Context, req generation.CorrectionRequest) (generation.CandidateCard, error)
	requests  []generation.CorrectionRequest
}

func (f *fakeGenerator) GenerateCards(ctx context.Context, req generation.CardRequest) ([]generation.CandidateCard, error) {
	return nil, nil
}

func (f *fakeGenerator) CorrectCard(ctx context.Context, req generation.CorrectionRequest) (generation.CandidateCard, error) {
	f.requests = append(f.requests, req)
	if f.correctFn != nil {
		return f.correctFn(ctx, req)
	}
	return generation.CandidateCard{Front: "Corrected front?", Back: "Corrected back."}, nil
}

func (f *fakeGenerator) ImprovePrompts(ctx context.Context, req generation.ImprovementRequest) (generation.PromptImprovement, error) {
	return generation.PromptImprovement{}, nil
}

func (f *fakeGenerator) SupportsNativePDF() bool { return true }

// fixture bundles a review Service with its fakes and one seeded session.
type fixture struct {
	svc        *Service
	cards      *fakeCardStore
	sessions   *fakeSessionStore
	rejections *fakeRejectionStore
	gen        *fakeGenerator
	session    *domain.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		cards:      newFakeCardStore(),
		sessions:   newFakeSessionStore(),
		rejections: newFakeRejectionStore(),
		gen:        &fakeGenerator{},
	}

	svc, err := NewService(
		f.cards,
		f.sessions,
		f.rejections,
		fakeTransactor{},
		service.ProviderRegistry{domain.ProviderGemini: f.gen},
		testLogger(),
	)
	require.NoError(t, err)
	f.svc = svc

	session, err := domain.NewSession("notes.md", "/media/uploads/notes.md", domain.SourceTypeMarkdown, domain.ProviderGemini)
	require.NoError(t, err)
	session.Status = domain.SessionStatusReady
	require.NoError(t, f.sessions.Create(context.Background(), session))
	f.session = session
	return f
}

// seedCard inserts a pending card for the fixture session.
func (f *fixture) seedCard(t *testing.T, front, back string) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(f.session.ID, front, back, []string{"tag"}, 0)
	require.NoError(t, err)
	require.NoError(t, f.cards.CreateMultiple(context.Background(), []*domain.Card{card}))
	return card
}

// rejectCard takes a seeded card through a real Reject call.
func (f *fixture) rejectCard(t *testing.T, cardID uuid.UUID, reason string, rt domain.RejectionType) *domain.Card {
	t.Helper()
	card, err := f.svc.Reject(context.Background(), cardID, reason, rt)
	require.NoError(t, err)
	return card
}

// withinRecent asserts a timestamp landed in the last minute.
func withinRecent(t *testing.T, ts *time.Time) {
	t.Helper()
	require.NotNil(t, ts)
	require.WithinDuration(t, time.Now(), *ts, time.Minute)
}
