package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/quillback/mnemo-api/internal/api/shared"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/service/review"
	"github.com/quillback/mnemo-api/internal/store"
)

// ReviewService is the card review surface the handler needs.
type ReviewService interface {
	Approve(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
	Reject(ctx context.Context, cardID uuid.UUID, reason string, rejectionType domain.RejectionType) (*domain.Card, error)
	Edit(ctx context.Context, cardID uuid.UUID, front, back string, tags []string) (*domain.Card, error)
	BatchApprove(ctx context.Context, cardIDs []uuid.UUID) (*review.BatchResult, error)
	BatchReject(ctx context.Context, cardIDs []uuid.UUID, reason string, rejectionType domain.RejectionType) (*review.BatchResult, error)
	AutoCorrect(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
	GetCard(ctx context.Context, cardID uuid.UUID) (*review.CardDetail, error)
	ListCards(ctx context.Context, sessionID uuid.UUID, status *domain.CardStatus) ([]*domain.Card, error)
	SessionStats(ctx context.Context, sessionID uuid.UUID) (store.SessionCardStats, error)
}

// CardHandler handles card review HTTP requests.
type CardHandler struct {
	reviews   ReviewService
	validator *validator.Validate
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(reviews ReviewService) *CardHandler {
	return &CardHandler{
		reviews:   reviews,
		validator: validator.New(),
	}
}

// ListSessionCards handles GET /sessions/{id}/cards with an optional
// ?status= filter.
func (h *CardHandler) ListSessionCards(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var statusFilter *domain.CardStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.CardStatus(raw)
		switch status {
		case domain.CardStatusPending, domain.CardStatusApproved,
			domain.CardStatusRejected, domain.CardStatusEdited:
			statusFilter = &status
		default:
			HandleAPIError(w, r, domain.NewValidationError("status", "is not a valid card status", domain.ErrInvalidCardStatus), "")
			return
		}
	}

	cards, err := h.reviews.ListCards(r.Context(), sessionID, statusFilter)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cards)
}

// GetCard handles GET /cards/{id}. The response includes the card's
// rejection history.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	detail, err := h.reviews.GetCard(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detail)
}

// Approve handles PATCH /cards/{id}/approve.
func (h *CardHandler) Approve(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	card, err := h.reviews.Approve(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// Reject handles PATCH /cards/{id}/reject.
func (h *CardHandler) Reject(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req RejectCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	card, err := h.reviews.Reject(r.Context(), cardID, req.Reason, domain.RejectionType(req.Type))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// Edit handles PATCH /cards/{id}.
func (h *CardHandler) Edit(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req EditCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	card, err := h.reviews.Edit(r.Context(), cardID, req.Front, req.Back, req.Tags)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// AutoCorrect handles POST /cards/{id}/auto-correct.
func (h *CardHandler) AutoCorrect(w http.ResponseWriter, r *http.Request) {
	cardID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	card, err := h.reviews.AutoCorrect(r.Context(), cardID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, card)
}

// BatchApprove handles POST /cards/batch-approve.
func (h *CardHandler) BatchApprove(w http.ResponseWriter, r *http.Request) {
	var req BatchApproveRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.reviews.BatchApprove(r.Context(), req.CardIDs)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// BatchReject handles POST /cards/batch-reject.
func (h *CardHandler) BatchReject(w http.ResponseWriter, r *http.Request) {
	var req BatchRejectRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.reviews.BatchReject(r.Context(), req.CardIDs, req.Reason, domain.RejectionType(req.Type))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
