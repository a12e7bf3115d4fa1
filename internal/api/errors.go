package api

import (
	"errors"
	"net/http"

	"github.com/quillback/mnemo-api/internal/api/shared"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/generation"
	"github.com/quillback/mnemo-api/internal/service"
	"github.com/quillback/mnemo-api/internal/service/auth"
	"github.com/quillback/mnemo-api/internal/store"
	"github.com/quillback/mnemo-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors: every store sentinel wraps store.ErrNotFound
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors: illegal state transitions and duplicates
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrSessionFinalized),
		errors.Is(err, service.ErrPendingCardsRemain),
		errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	// Bad request errors: domain validation and request-level rule failures
	case errors.Is(err, service.ErrNoExportableCards),
		errors.Is(err, service.ErrProviderNotConfigured),
		errors.Is(err, service.ErrPDFNotSupported),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		isDomainValidationError(err):
		return http.StatusBadRequest

	// Upstream LLM failures
	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrTransientFailure),
		errors.Is(err, generation.ErrInvalidResponse):
		return http.StatusBadGateway

	// Task queue saturation
	case errors.Is(err, task.ErrQueueFull):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// isDomainValidationError reports whether the error is one of the domain
// package's input validation sentinels.
func isDomainValidationError(err error) bool {
	for _, sentinel := range []error{
		domain.ErrInvalidSessionStatus,
		domain.ErrInvalidSourceType,
		domain.ErrInvalidProvider,
		domain.ErrEmptyCardFront,
		domain.ErrEmptyCardBack,
		domain.ErrInvalidCardStatus,
		domain.ErrInvalidCardTransition,
		domain.ErrEmptyRejectionReason,
		domain.ErrInvalidRejectionType,
		domain.ErrInvalidSuggestionStatus,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, store.ErrRejectionNotFound):
		return "Card has no rejection to correct from"

	case errors.Is(err, store.ErrPromptVersionNotFound):
		return "Prompt version not found"

	case errors.Is(err, store.ErrSuggestionNotFound):
		return "Prompt suggestion not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, service.ErrPendingCardsRemain):
		return "All cards must be reviewed before finalizing"

	case errors.Is(err, service.ErrSessionFinalized):
		return "Session is already finalized"

	case errors.Is(err, service.ErrCardNotRejected):
		return "Only rejected cards can be auto-corrected"

	case errors.Is(err, service.ErrNoExportableCards):
		return "Session has no approved or edited cards to export"

	case errors.Is(err, service.ErrProviderNotConfigured):
		return "The requested LLM provider is not configured"

	case errors.Is(err, service.ErrPDFNotSupported):
		return "PDF processing is not available for this provider"

	case errors.Is(err, service.ErrEmptyBatch):
		return "Batch requires at least one card ID"

	case errors.Is(err, service.ErrInvalidState):
		return "Operation not allowed in the current state"

	case errors.Is(err, task.ErrQueueFull):
		return "Server is busy, try again later"

	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrTransientFailure),
		errors.Is(err, generation.ErrInvalidResponse):
		return "Card generation failed"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	case isDomainValidationError(err),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return err.Error()

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps an internal error to a status code and safe message
// and writes the JSON error response, logging the underlying error. An
// explicit userMessage overrides the mapped safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}
