package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripCodeFence removes a markdown code fence wrapping an LLM response.
// Models frequently wrap JSON in ```json blocks despite instructions.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// ParseCards decodes a card generation response. An empty cards array is
// valid; a response that cannot be decoded is ErrInvalidResponse.
func ParseCards(raw string) ([]CandidateCard, error) {
	var payload struct {
		Cards []CandidateCard `json:"cards"`
	}

	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return payload.Cards, nil
}

// ParseCorrection decodes an auto-correction response into a single
// candidate. A candidate missing front or back is ErrInvalidResponse.
func ParseCorrection(raw string) (CandidateCard, error) {
	var candidate CandidateCard
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &candidate); err != nil {
		return CandidateCard{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if !candidate.IsUsable() {
		return CandidateCard{}, fmt.Errorf("%w: correction missing front or back", ErrInvalidResponse)
	}

	return candidate, nil
}

// ParseImprovement decodes a prompt improvement response. The suggested
// user template must carry the {content} placeholder; a revision that
// drops it is ErrInvalidResponse.
func ParseImprovement(raw string) (PromptImprovement, error) {
	var improvement PromptImprovement
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &improvement); err != nil {
		return PromptImprovement{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if improvement.SuggestedSystemPrompt == "" || improvement.SuggestedUserPromptTemplate == "" {
		return PromptImprovement{}, fmt.Errorf("%w: improvement missing suggested prompts", ErrInvalidResponse)
	}

	if !strings.Contains(improvement.SuggestedUserPromptTemplate, "{content}") {
		return PromptImprovement{}, fmt.Errorf(
			"%w: suggested template dropped the {content} placeholder", ErrInvalidResponse)
	}

	return improvement, nil
}
