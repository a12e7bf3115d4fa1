package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/quillback/mnemo-api/internal/api/shared"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/service/promptevo"
)

// PromptService is the prompt evolution surface the handler needs.
type PromptService interface {
	ActivePrompt(ctx context.Context, promptType domain.PromptType) (*domain.PromptVersion, error)
	History(ctx context.Context, promptType domain.PromptType) ([]*domain.PromptVersion, error)
	ListSuggestions(ctx context.Context, status *domain.SuggestionStatus) ([]*domain.PromptSuggestion, error)
	ApproveSuggestion(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptVersion, error)
	RejectSuggestion(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptSuggestion, error)
	Analytics(ctx context.Context) ([]promptevo.TypeAnalytics, error)
}

// PromptHandler handles prompt version and suggestion HTTP requests.
type PromptHandler struct {
	prompts PromptService
}

// NewPromptHandler creates a new PromptHandler.
func NewPromptHandler(prompts PromptService) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

// Active handles GET /prompts/active. Without a ?type= filter it returns
// the active version of every prompt type.
func (h *PromptHandler) Active(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("type"); raw != "" {
		promptType, err := parsePromptType(raw)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}

		version, err := h.prompts.ActivePrompt(r.Context(), promptType)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, version)
		return
	}

	active := make([]*domain.PromptVersion, 0, 2)
	for _, promptType := range []domain.PromptType{domain.PromptTypeGeneration, domain.PromptTypeValidation} {
		version, err := h.prompts.ActivePrompt(r.Context(), promptType)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		active = append(active, version)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, active)
}

// History handles GET /prompts/history?type=.
func (h *PromptHandler) History(w http.ResponseWriter, r *http.Request) {
	promptType, err := parsePromptType(r.URL.Query().Get("type"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	versions, err := h.prompts.History(r.Context(), promptType)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, versions)
}

// ListSuggestions handles GET /prompts/suggestions with an optional
// ?status= filter.
func (h *PromptHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	var statusFilter *domain.SuggestionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.SuggestionStatus(raw)
		switch status {
		case domain.SuggestionStatusPending, domain.SuggestionStatusApproved, domain.SuggestionStatusRejected:
			statusFilter = &status
		default:
			HandleAPIError(w, r, domain.NewValidationError("status", "is not a valid suggestion status", domain.ErrInvalidSuggestionStatus), "")
			return
		}
	}

	suggestions, err := h.prompts.ListSuggestions(r.Context(), statusFilter)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, suggestions)
}

// ApproveSuggestion handles POST /prompts/suggestions/{id}/approve. It
// responds with the newly activated prompt version.
func (h *PromptHandler) ApproveSuggestion(w http.ResponseWriter, r *http.Request) {
	suggestionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	version, err := h.prompts.ApproveSuggestion(r.Context(), suggestionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, version)
}

// RejectSuggestion handles POST /prompts/suggestions/{id}/reject.
func (h *PromptHandler) RejectSuggestion(w http.ResponseWriter, r *http.Request) {
	suggestionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	suggestion, err := h.prompts.RejectSuggestion(r.Context(), suggestionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, suggestion)
}

// Analytics handles GET /prompts/analytics.
func (h *PromptHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.prompts.Analytics(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// parsePromptType validates a prompt type query parameter.
func parsePromptType(raw string) (domain.PromptType, error) {
	promptType := domain.PromptType(raw)
	switch promptType {
	case domain.PromptTypeGeneration, domain.PromptTypeValidation:
		return promptType, nil
	default:
		return "", domain.NewValidationError("type", "must be generation or validation", domain.ErrValidation)
	}
}
