package generation

import (
	"context"
)

// CandidateCard is one card candidate parsed from a provider response.
// Candidates are plain data; validation and persistence happen in the
// generation pipeline, which drops candidates with an empty front or back.
type CandidateCard struct {
	Front  string   `json:"front"`
	Back   string   `json:"back"`
	Tags   []string `json:"tags,omitempty"`
	Images []string `json:"images,omitempty"`
}

// IsUsable reports whether the candidate carries enough content to become
// a card.
func (c CandidateCard) IsUsable() bool {
	return c.Front != "" && c.Back != ""
}

// InlineImage is an image attached to a provider request alongside the
// prompt text.
type InlineImage struct {
	Filename  string
	MediaType string
	Data      []byte
}

// CardRequest carries everything a provider needs to generate cards for
// one chunk: the rendered prompts plus optional document attachments.
// Exactly one of PDF or Images is set for attachment-carrying requests;
// plain text chunks set neither.
type CardRequest struct {
	SystemPrompt string
	UserPrompt   string

	// PDF holds raw document bytes for providers with native PDF support.
	PDF []byte

	// Images holds inline images referenced by the chunk text.
	Images []InlineImage
}

// CorrectionRequest asks the provider for exactly one improved card. The
// prompts are fully rendered by the caller.
type CorrectionRequest struct {
	SystemPrompt string
	UserPrompt   string
}

// ImprovementRequest asks the provider to analyze review feedback and
// propose revised prompts. The prompts are fully rendered by the caller.
type ImprovementRequest struct {
	SystemPrompt string
	UserPrompt   string
}

// PromptImprovement is the provider's proposed prompt revision.
type PromptImprovement struct {
	Reasoning                   string `json:"reasoning"`
	SuggestedSystemPrompt       string `json:"suggested_system_prompt"`
	SuggestedUserPromptTemplate string `json:"suggested_user_prompt_template"`
}

// Generator defines the interface for LLM-backed content generation.
// This interface is the boundary between the application core and external
// LLM services; implementations live under internal/platform.
type Generator interface {
	// GenerateCards produces card candidates for one chunk. A response
	// with zero candidates is not an error.
	GenerateCards(ctx context.Context, req CardRequest) ([]CandidateCard, error)

	// CorrectCard produces exactly one improved candidate for a rejected
	// card. Implementations must not retry silently; a failed call leaves
	// the card to the caller untouched.
	CorrectCard(ctx context.Context, req CorrectionRequest) (CandidateCard, error)

	// ImprovePrompts analyzes review feedback and proposes a prompt
	// revision.
	ImprovePrompts(ctx context.Context, req ImprovementRequest) (PromptImprovement, error)

	// SupportsNativePDF reports whether the provider accepts raw PDF
	// bytes. When false, callers fall back to extracted text chunks.
	SupportsNativePDF() bool
}
