package api

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/quillback/mnemo-api/internal/api/shared"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/service"
)

// maxUploadBytes bounds the multipart form memory for document uploads.
const maxUploadBytes = 50 << 20

// defaultListLimit is used when a list request does not specify a limit.
const defaultListLimit = 50

// SessionService is the session orchestration surface the handler needs.
type SessionService interface {
	Upload(ctx context.Context, req service.UploadRequest) (*domain.Session, error)
	StartGeneration(ctx context.Context, sessionID uuid.UUID) error
	ContinueGeneration(ctx context.Context, sessionID uuid.UUID, focusAreas []string) error
	Get(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Session, error)
	Status(ctx context.Context, sessionID uuid.UUID) (*service.StatusReport, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
	Finalize(ctx context.Context, sessionID uuid.UUID) (*service.FinalizeResult, error)
	ExportCSV(ctx context.Context, sessionID uuid.UUID) (string, []byte, error)
}

// SessionHandler handles session-related HTTP requests.
type SessionHandler struct {
	sessions  SessionService
	validator *validator.Validate
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		validator: validator.New(),
	}
}

// Upload handles POST /sessions. It accepts a multipart form with a "file"
// part and an optional "provider" field.
func (h *SessionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing file upload")
		return
	}
	defer func() { _ = file.Close() }()

	sourceType, err := sourceTypeForFilename(header.Filename)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	provider := domain.Provider(r.FormValue("provider"))
	if provider == "" {
		provider = domain.ProviderGemini
	}

	session, err := h.sessions.Upload(r.Context(), service.UploadRequest{
		Filename:   header.Filename,
		SourceType: sourceType,
		Provider:   provider,
		File:       file,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, session)
}

// StartGeneration handles POST /sessions/{id}/generate.
func (h *SessionHandler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.sessions.StartGeneration(r.Context(), sessionID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status, err := h.sessions.Status(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Processing happens asynchronously.
	shared.RespondWithJSON(w, r, http.StatusAccepted, status)
}

// ContinueGeneration handles POST /sessions/{id}/continue.
func (h *SessionHandler) ContinueGeneration(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req ContinueSessionRequest
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	if err := h.sessions.ContinueGeneration(r.Context(), sessionID, req.FocusAreas); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status, err := h.sessions.Status(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, status)
}

// List handles GET /sessions with optional limit/offset query parameters.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)

	sessions, err := h.sessions.List(r.Context(), limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessions)
}

// Get handles GET /sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	session, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, session)
}

// Status handles GET /sessions/{id}/status.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status, err := h.sessions.Status(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// Finalize handles POST /sessions/{id}/finalize.
func (h *SessionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.sessions.Finalize(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Delete handles DELETE /sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportCSV handles GET /sessions/{id}/export/csv. It streams the CSV as a
// file attachment.
func (h *SessionHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	filename, data, err := h.sessions.ExportCSV(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// sourceTypeForFilename maps an upload's extension to its source type.
func sourceTypeForFilename(filename string) (domain.SourceType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return domain.SourceTypePDF, nil
	case ".md", ".markdown":
		return domain.SourceTypeMarkdown, nil
	default:
		return "", domain.NewValidationError("file", "must be a .pdf, .md, or .markdown document", domain.ErrInvalidSourceType)
	}
}

// queryInt parses a non-negative integer query parameter, falling back to
// the default on absence or garbage.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
