package service

import "errors"

// Sentinel errors shared across the service layer. The API layer maps these
// to HTTP statuses with errors.Is: not-found sentinels live in the store
// package, validation failures come from the domain package or the
// sentinels below, invalid-state failures wrap ErrInvalidState, and
// provider failures carry the generation package's sentinels.
var (
	// ErrInvalidState indicates an operation that is not permitted in the
	// entity's current status (finalizing with pending cards, approving a
	// reviewed suggestion, auto-correcting a non-rejected card). Maps to
	// HTTP 409.
	ErrInvalidState = errors.New("operation not permitted in current state")

	// ErrPendingCardsRemain is returned by Finalize while the session
	// still has unreviewed cards. Always wrapped in ErrInvalidState.
	ErrPendingCardsRemain = errors.New("session has pending cards awaiting review")

	// ErrSessionFinalized is returned when a mutation targets a session
	// that has already been finalized. Always wrapped in ErrInvalidState.
	ErrSessionFinalized = errors.New("session is already finalized")

	// ErrCardNotRejected is returned by AutoCorrect when the card is not
	// currently rejected.
	ErrCardNotRejected = errors.New("card is not in rejected status")

	// ErrNoExportableCards is returned by CSV export when the session has
	// no approved or edited cards. Maps to HTTP 400.
	ErrNoExportableCards = errors.New("session has no exportable cards")

	// ErrProviderNotConfigured is returned when a session selects an LLM
	// provider whose credentials are not configured. Maps to HTTP 400.
	ErrProviderNotConfigured = errors.New("llm provider is not configured")

	// ErrPDFNotSupported is returned when generation is started for a PDF
	// session whose provider cannot attach documents natively and no text
	// extractor is available.
	ErrPDFNotSupported = errors.New("pdf processing is not available for this provider")

	// ErrEmptyBatch is returned when a batch review call carries no card IDs.
	ErrEmptyBatch = errors.New("batch cannot be empty")
)
