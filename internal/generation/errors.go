package generation

import "errors"

// Sentinel errors shared by all Generator implementations. Callers decide
// retry behavior by checking ErrTransientFailure; everything else is
// terminal for the chunk being processed.
var (
	ErrGenerationFailed = errors.New("failed to generate cards from text")
	ErrInvalidResponse  = errors.New("invalid response from language model")
	ErrContentBlocked   = errors.New("content blocked by language model safety filters")
	ErrTransientFailure = errors.New("transient error during card generation")
	ErrInvalidConfig    = errors.New("invalid generator configuration")
)
