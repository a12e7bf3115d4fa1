// Package gemini implements the generation.Generator interface against
// Google's Gemini API. Gemini accepts PDF bytes and images inline, so this
// provider reports native PDF support and attaches document content directly
// to generation requests.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/quillback/mnemo-api/internal/config"
	"github.com/quillback/mnemo-api/internal/generation"
	"google.golang.org/genai"
)

// ErrEmptyPrompt is returned when a request carries no user prompt.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// Generator calls the Gemini API and parses its JSON responses into
// generation candidates.
type Generator struct {
	logger *slog.Logger
	cfg    config.LLMConfig
	client *genai.Client
	model  string
}

// compile-time check
var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed generator. The API key and model name
// must be set; client construction itself does not hit the network.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.GeminiModel == "" {
		return nil, fmt.Errorf("%w: gemini model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger: logger.With("component", "gemini_generator"),
		cfg:    cfg,
		client: client,
		model:  cfg.GeminiModel,
	}, nil
}

// SupportsNativePDF reports that Gemini accepts PDF bytes directly.
func (g *Generator) SupportsNativePDF() bool { return true }

// GenerateCards sends the rendered prompt, plus any PDF bytes and inline
// images, to Gemini and parses the response into candidate cards.
func (g *Generator) GenerateCards(ctx context.Context, req generation.CardRequest) ([]generation.CandidateCard, error) {
	if req.UserPrompt == "" {
		return nil, ErrEmptyPrompt
	}

	var parts []*genai.Part
	if len(req.PDF) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.PDF, "application/pdf"))
	}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MediaType))
	}
	parts = append(parts, genai.NewPartFromText(req.UserPrompt))

	text, err := g.generateWithRetry(ctx, req.SystemPrompt, parts)
	if err != nil {
		return nil, err
	}

	cards, err := generation.ParseCards(text)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "generated candidate cards",
		"card_count", len(cards),
		"pdf_bytes", len(req.PDF),
		"image_count", len(req.Images))
	return cards, nil
}

// CorrectCard asks Gemini to rewrite a rejected card and parses the single
// corrected candidate from the response.
func (g *Generator) CorrectCard(ctx context.Context, req generation.CorrectionRequest) (generation.CandidateCard, error) {
	if req.UserPrompt == "" {
		return generation.CandidateCard{}, ErrEmptyPrompt
	}

	parts := []*genai.Part{genai.NewPartFromText(req.UserPrompt)}
	text, err := g.generateWithRetry(ctx, req.SystemPrompt, parts)
	if err != nil {
		return generation.CandidateCard{}, err
	}

	return generation.ParseCorrection(text)
}

// ImprovePrompts asks Gemini to analyze review outcomes and propose revised
// prompt texts.
func (g *Generator) ImprovePrompts(ctx context.Context, req generation.ImprovementRequest) (generation.PromptImprovement, error) {
	if req.UserPrompt == "" {
		return generation.PromptImprovement{}, ErrEmptyPrompt
	}

	parts := []*genai.Part{genai.NewPartFromText(req.UserPrompt)}
	text, err := g.generateWithRetry(ctx, req.SystemPrompt, parts)
	if err != nil {
		return generation.PromptImprovement{}, err
	}

	return generation.ParseImprovement(text)
}

// generateWithRetry calls the Gemini API with exponential backoff and
// jitter. API transport errors are treated as transient and retried up to
// cfg.MaxRetries times; safety blocks and malformed responses are permanent
// and returned immediately.
func (g *Generator) generateWithRetry(ctx context.Context, systemPrompt string, parts []*genai.Part) (string, error) {
	maxRetries := g.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelaySeconds := g.cfg.RetryDelaySeconds
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	var genCfg *genai.GenerateContentConfig
	if systemPrompt != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		text, transient, err := g.generateOnce(ctx, contents, genCfg)
		if err == nil {
			return text, nil
		}
		lastErr = err

		g.logger.WarnContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"transient", transient,
			"error", err)

		if !transient || attempt >= maxRetries {
			break
		}

		// delay = base * 2^attempt * jitter in [0.5, 1.0)
		delaySeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt)) * (0.5 + rng.Float64()*0.5)
		if delaySeconds > 0 {
			select {
			case <-time.After(time.Duration(delaySeconds * float64(time.Second))):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
			}
		}
	}

	if errors.Is(lastErr, generation.ErrContentBlocked) || errors.Is(lastErr, generation.ErrInvalidResponse) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, lastErr)
}

// generateOnce performs a single API call and classifies the failure mode.
func (g *Generator) generateOnce(
	ctx context.Context,
	contents []*genai.Content,
	genCfg *genai.GenerateContentConfig,
) (text string, transient bool, err error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		return "", true, err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", false, fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", false, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	for _, part := range candidate.Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", false, fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return text, false, nil
}
