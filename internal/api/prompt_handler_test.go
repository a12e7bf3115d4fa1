package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/service"
	"github.com/quillback/mnemo-api/internal/service/promptevo"
)

func promptRouter(h *PromptHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/prompts/active", h.Active)
	r.Get("/prompts/history", h.History)
	r.Get("/prompts/suggestions", h.ListSuggestions)
	r.Post("/prompts/suggestions/{id}/approve", h.ApproveSuggestion)
	r.Post("/prompts/suggestions/{id}/reject", h.RejectSuggestion)
	r.Get("/prompts/analytics", h.Analytics)
	return r
}

func testPromptVersion(t *testing.T, promptType domain.PromptType, version int) *domain.PromptVersion {
	t.Helper()
	pv, err := domain.NewPromptVersion(promptType, "system prompt", "template with {content}", version, uuid.Nil)
	require.NoError(t, err)
	pv.IsActive = true
	return pv
}

func TestPromptHandler_Active(t *testing.T) {
	t.Run("without filter returns every type", func(t *testing.T) {
		fake := &fakePromptService{
			activeFn: func(ctx context.Context, promptType domain.PromptType) (*domain.PromptVersion, error) {
				return testPromptVersion(t, promptType, 1), nil
			},
		}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodGet, "/prompts/active", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var versions []*domain.PromptVersion
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
		require.Len(t, versions, 2)
		assert.Equal(t, domain.PromptTypeGeneration, versions[0].Type)
		assert.Equal(t, domain.PromptTypeValidation, versions[1].Type)
	})

	t.Run("with filter returns one version", func(t *testing.T) {
		fake := &fakePromptService{
			activeFn: func(ctx context.Context, promptType domain.PromptType) (*domain.PromptVersion, error) {
				return testPromptVersion(t, promptType, 3), nil
			},
		}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodGet, "/prompts/active?type=generation", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var version domain.PromptVersion
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &version))
		assert.Equal(t, 3, version.Version)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		fake := &fakePromptService{}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodGet, "/prompts/active?type=summarization", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPromptHandler_History(t *testing.T) {
	t.Run("type is required", func(t *testing.T) {
		fake := &fakePromptService{}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodGet, "/prompts/history", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("versions come back newest first", func(t *testing.T) {
		v2 := testPromptVersion(t, domain.PromptTypeGeneration, 2)
		v1 := testPromptVersion(t, domain.PromptTypeGeneration, 1)
		v1.IsActive = false
		fake := &fakePromptService{
			historyFn: func(ctx context.Context, promptType domain.PromptType) ([]*domain.PromptVersion, error) {
				return []*domain.PromptVersion{v2, v1}, nil
			},
		}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodGet, "/prompts/history?type=generation", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var versions []*domain.PromptVersion
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
		require.Len(t, versions, 2)
		assert.Equal(t, 2, versions[0].Version)
		assert.Equal(t, 1, versions[1].Version)
	})
}

func TestPromptHandler_ListSuggestions(t *testing.T) {
	t.Run("status filter travels to the service", func(t *testing.T) {
		fake := &fakePromptService{}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodGet, "/prompts/suggestions?status=pending", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, fake.statusFilters, 1)
		require.NotNil(t, fake.statusFilters[0])
		assert.Equal(t, domain.SuggestionStatusPending, *fake.statusFilters[0])
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		fake := &fakePromptService{}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodGet, "/prompts/suggestions?status=stale", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, fake.statusFilters)
	})
}

func TestPromptHandler_ApproveSuggestion(t *testing.T) {
	t.Run("returns the newly activated version", func(t *testing.T) {
		fake := &fakePromptService{
			approveFn: func(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptVersion, error) {
				return testPromptVersion(t, domain.PromptTypeGeneration, 4), nil
			},
		}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/prompts/suggestions/%s/approve", uuid.New()), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var version domain.PromptVersion
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &version))
		assert.Equal(t, 4, version.Version)
		assert.True(t, version.IsActive)
	})

	t.Run("already decided maps to conflict", func(t *testing.T) {
		fake := &fakePromptService{
			approveFn: func(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptVersion, error) {
				return nil, fmt.Errorf("%w: suggestion already rejected", service.ErrInvalidState)
			},
		}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/prompts/suggestions/%s/approve", uuid.New()), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown suggestion maps to not found", func(t *testing.T) {
		fake := &fakePromptService{}
		router := promptRouter(NewPromptHandler(fake))

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/prompts/suggestions/%s/approve", uuid.New()), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPromptHandler_RejectSuggestion(t *testing.T) {
	suggestion, err := domain.NewPromptSuggestion(
		uuid.New(), uuid.New(),
		"suggested system prompt", "suggested template with {content}",
		"cards were too vague", domain.RejectionPatterns{},
	)
	require.NoError(t, err)
	require.NoError(t, suggestion.Reject())

	fake := &fakePromptService{
		rejectFn: func(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptSuggestion, error) {
			return suggestion, nil
		},
	}
	router := promptRouter(NewPromptHandler(fake))

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/prompts/suggestions/%s/reject", suggestion.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got domain.PromptSuggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.SuggestionStatusRejected, got.Status)
}

func TestPromptHandler_Analytics(t *testing.T) {
	fake := &fakePromptService{
		analyticsFn: func(ctx context.Context) ([]promptevo.TypeAnalytics, error) {
			return []promptevo.TypeAnalytics{
				{Type: domain.PromptTypeGeneration, ActiveVersion: 2, VersionCount: 2},
				{Type: domain.PromptTypeValidation, ActiveVersion: 1, VersionCount: 1},
			}, nil
		},
	}
	router := promptRouter(NewPromptHandler(fake))

	req := httptest.NewRequest(http.MethodGet, "/prompts/analytics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var report []promptevo.TypeAnalytics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report, 2)
	assert.Equal(t, 2, report[0].ActiveVersion)
}
