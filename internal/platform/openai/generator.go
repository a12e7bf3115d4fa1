// Package openai implements the generation.Generator interface over any
// OpenAI-compatible chat-completions endpoint. It does not support native
// PDF attachment; PDF sessions fall back to extracted text upstream.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/quillback/mnemo-api/internal/config"
	"github.com/quillback/mnemo-api/internal/generation"
)

// ErrEmptyPrompt is returned when a request carries no user prompt.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// Generator calls a chat-completions API and parses its JSON responses into
// generation candidates.
type Generator struct {
	logger     *slog.Logger
	cfg        config.LLMConfig
	httpClient *http.Client
	baseURL    string
	model      string
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a chat-completions-backed generator. The API key,
// base URL, and model name must be set.
func NewGenerator(logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.OpenAIBaseURL == "" {
		return nil, fmt.Errorf("%w: openai base URL cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.OpenAIModel == "" {
		return nil, fmt.Errorf("%w: openai model name cannot be empty", generation.ErrInvalidConfig)
	}

	timeout := time.Duration(cfg.ChunkTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Generator{
		logger:     logger.With("component", "openai_generator"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		model:      cfg.OpenAIModel,
	}, nil
}

// SupportsNativePDF reports that chat-completions requests carry text only.
func (g *Generator) SupportsNativePDF() bool { return false }

// GenerateCards sends the rendered prompt to the chat-completions endpoint
// and parses the response into candidate cards. PDF bytes and inline images
// on the request are ignored; callers route documents through text
// extraction for this provider.
func (g *Generator) GenerateCards(ctx context.Context, req generation.CardRequest) ([]generation.CandidateCard, error) {
	if req.UserPrompt == "" {
		return nil, ErrEmptyPrompt
	}

	text, err := g.completeWithRetry(ctx, req.SystemPrompt, req.UserPrompt)
	if err != nil {
		return nil, err
	}

	cards, err := generation.ParseCards(text)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "generated candidate cards", "card_count", len(cards))
	return cards, nil
}

// CorrectCard asks the model to rewrite a rejected card.
func (g *Generator) CorrectCard(ctx context.Context, req generation.CorrectionRequest) (generation.CandidateCard, error) {
	if req.UserPrompt == "" {
		return generation.CandidateCard{}, ErrEmptyPrompt
	}

	text, err := g.completeWithRetry(ctx, req.SystemPrompt, req.UserPrompt)
	if err != nil {
		return generation.CandidateCard{}, err
	}
	return generation.ParseCorrection(text)
}

// ImprovePrompts asks the model to propose revised prompt texts.
func (g *Generator) ImprovePrompts(ctx context.Context, req generation.ImprovementRequest) (generation.PromptImprovement, error) {
	if req.UserPrompt == "" {
		return generation.PromptImprovement{}, ErrEmptyPrompt
	}

	text, err := g.completeWithRetry(ctx, req.SystemPrompt, req.UserPrompt)
	if err != nil {
		return generation.PromptImprovement{}, err
	}
	return generation.ParseImprovement(text)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// completeWithRetry calls the chat-completions endpoint with exponential
// backoff and jitter. Network errors, HTTP 429, and HTTP 5xx are transient;
// other HTTP failures and malformed response envelopes are permanent.
func (g *Generator) completeWithRetry(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	maxRetries := g.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		text, transient, err := g.completeOnce(ctx, systemPrompt, userPrompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		g.logger.WarnContext(ctx, "chat completion failed",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"transient", transient,
			"error", err)

		if !transient || attempt >= maxRetries {
			break
		}

		delaySeconds := float64(g.cfg.RetryDelaySeconds) * math.Pow(2, float64(attempt)) * (0.5 + rng.Float64()*0.5)
		if delaySeconds > 0 {
			select {
			case <-time.After(time.Duration(delaySeconds * float64(time.Second))):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
			}
		}
	}

	if errors.Is(lastErr, generation.ErrInvalidResponse) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, lastErr)
}

func (g *Generator) completeOnce(ctx context.Context, systemPrompt, userPrompt string) (text string, transient bool, err error) {
	var messages []chatMessage
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	raw, err := json.Marshal(chatRequest{Model: g.model, Messages: messages})
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	url := g.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.OpenAIAPIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("chat completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("chat completion http %d: %s", resp.StatusCode, truncate(respRaw, 512))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("%w: chat completion http %d: %s",
			generation.ErrInvalidResponse, resp.StatusCode, truncate(respRaw, 512))
	}

	var decoded chatResponse
	if err := json.Unmarshal(respRaw, &decoded); err != nil {
		return "", false, fmt.Errorf("%w: unmarshal response: %v", generation.ErrInvalidResponse, err)
	}
	if len(decoded.Choices) == 0 {
		return "", false, fmt.Errorf("%w: response missing choices", generation.ErrInvalidResponse)
	}
	if decoded.Choices[0].Message.Content == "" {
		return "", false, fmt.Errorf("%w: empty message content", generation.ErrInvalidResponse)
	}

	return decoded.Choices[0].Message.Content, false, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
