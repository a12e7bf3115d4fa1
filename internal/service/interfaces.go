package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/generation"
)

// ProviderResolver yields the generator for a session's configured LLM
// provider. Returns ErrProviderNotConfigured when the provider's
// credentials are missing.
type ProviderResolver interface {
	Provider(p domain.Provider) (generation.Generator, error)
}

// ProviderRegistry is a map-backed ProviderResolver assembled at startup
// with whichever providers have credentials configured.
type ProviderRegistry map[domain.Provider]generation.Generator

// Provider implements ProviderResolver.
func (r ProviderRegistry) Provider(p domain.Provider) (generation.Generator, error) {
	gen, ok := r[p]
	if !ok {
		return nil, ErrProviderNotConfigured
	}
	return gen, nil
}

// MediaStore stores uploaded documents and extracted images. Implemented by
// the filesystem store in internal/platform/media.
type MediaStore interface {
	SaveUpload(ctx context.Context, sessionID uuid.UUID, filename string, r io.Reader) (string, error)
	SaveImage(ctx context.Context, sessionID uuid.UUID, filename string, r io.Reader) (string, int64, error)
	ImagePath(storedFilename string) string
	Open(path string) (io.ReadCloser, error)
	RemoveSession(ctx context.Context, sessionID uuid.UUID) error
}

// SuggestionEngine mines a finalized session's review history for a prompt
// improvement suggestion. Implemented by promptevo.Service; a nil
// suggestion with a nil error means the session had nothing to learn from.
type SuggestionEngine interface {
	AnalyzeSession(ctx context.Context, session *domain.Session) (*domain.PromptSuggestion, error)
}
