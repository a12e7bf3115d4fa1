// Package promptevo evolves generation prompts from review outcomes: it
// mines a finalized session's rejection history into a summary, asks the
// LLM for a revised prompt, and manages the resulting suggestions and the
// versioned prompt lineage they feed.
package promptevo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/generation"
	"github.com/quillback/mnemo-api/internal/platform/logger"
	"github.com/quillback/mnemo-api/internal/service"
	"github.com/quillback/mnemo-api/internal/store"
)

// maxSampleReasons caps the rejection reasons quoted per type in a
// pattern summary.
const maxSampleReasons = 3

// maxExampleCards caps the example cards per status fed to the model.
const maxExampleCards = 5

// Service implements prompt evolution and prompt/suggestion management.
type Service struct {
	prompts     store.PromptVersionStore
	suggestions store.PromptSuggestionStore
	cards       store.CardStore
	rejections  store.RejectionStore
	tx          store.Transactor
	providers   service.ProviderResolver
	logger      *slog.Logger
}

// The session orchestrator triggers evolution through this interface.
var _ service.SuggestionEngine = (*Service)(nil)

// NewService creates the prompt evolution service.
func NewService(
	prompts store.PromptVersionStore,
	suggestions store.PromptSuggestionStore,
	cards store.CardStore,
	rejections store.RejectionStore,
	tx store.Transactor,
	providers service.ProviderResolver,
	log *slog.Logger,
) (*Service, error) {
	switch {
	case prompts == nil:
		return nil, errors.New("prompt version store cannot be nil")
	case suggestions == nil:
		return nil, errors.New("suggestion store cannot be nil")
	case cards == nil:
		return nil, errors.New("card store cannot be nil")
	case rejections == nil:
		return nil, errors.New("rejection store cannot be nil")
	case tx == nil:
		return nil, errors.New("transactor cannot be nil")
	case providers == nil:
		return nil, errors.New("provider resolver cannot be nil")
	case log == nil:
		return nil, errors.New("logger cannot be nil")
	}

	return &Service{
		prompts:     prompts,
		suggestions: suggestions,
		cards:       cards,
		rejections:  rejections,
		tx:          tx,
		providers:   providers,
		logger:      log.With(slog.String("component", "prompt_evolution_service")),
	}, nil
}

// AnalyzeSession mines a finalized session's rejections for a prompt
// improvement. A session with no rejections yields (nil, nil): there is
// nothing to learn from.
func (s *Service) AnalyzeSession(ctx context.Context, session *domain.Session) (*domain.PromptSuggestion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("session_id", session.ID.String()))

	rejections, err := s.rejections.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if len(rejections) == 0 {
		log.Debug("no rejections, skipping prompt analysis")
		return nil, nil
	}
	patterns := summarizeRejections(rejections)

	active, err := s.prompts.GetActive(ctx, domain.PromptTypeGeneration)
	if err != nil {
		return nil, fmt.Errorf("failed to load active generation prompt: %w", err)
	}

	approved, rejected, edited, err := s.exampleCards(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	userPrompt, err := generation.ImprovementPrompt(active, patterns, approved, rejected, edited)
	if err != nil {
		return nil, fmt.Errorf("failed to build improvement prompt: %w", err)
	}

	gen, err := s.providers.Provider(session.Provider)
	if err != nil {
		return nil, err
	}

	improvement, err := gen.ImprovePrompts(ctx, generation.ImprovementRequest{
		SystemPrompt: generation.ImprovementSystemPrompt(),
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	suggestion, err := domain.NewPromptSuggestion(
		active.ID,
		session.ID,
		improvement.SuggestedSystemPrompt,
		improvement.SuggestedUserPromptTemplate,
		improvement.Reasoning,
		patterns,
	)
	if err != nil {
		return nil, err
	}
	if err := s.suggestions.Create(ctx, suggestion); err != nil {
		return nil, err
	}

	log.Info("prompt suggestion created",
		slog.String("suggestion_id", suggestion.ID.String()),
		slog.Int("total_rejections", patterns.TotalRejections))
	return suggestion, nil
}

// exampleCards gathers up to maxExampleCards cards per review outcome.
func (s *Service) exampleCards(ctx context.Context, sessionID uuid.UUID) (approved, rejected, edited []*domain.Card, err error) {
	for _, pick := range []struct {
		status domain.CardStatus
		dst    *[]*domain.Card
	}{
		{domain.CardStatusApproved, &approved},
		{domain.CardStatusRejected, &rejected},
		{domain.CardStatusEdited, &edited},
	} {
		status := pick.status
		cards, listErr := s.cards.ListBySession(ctx, sessionID, &status)
		if listErr != nil {
			return nil, nil, nil, listErr
		}
		if len(cards) > maxExampleCards {
			cards = cards[:maxExampleCards]
		}
		*pick.dst = cards
	}
	return approved, rejected, edited, nil
}

// ApproveSuggestion applies a pending suggestion: in one transaction it
// deactivates the active version of the type, inserts the suggested
// prompts as a new active version numbered max+1, and marks the suggestion
// approved.
func (s *Service) ApproveSuggestion(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptVersion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var created *domain.PromptVersion
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		suggestions := s.suggestions.WithTx(tx)
		prompts := s.prompts.WithTx(tx)

		suggestion, err := suggestions.GetByID(ctx, suggestionID)
		if err != nil {
			return err
		}
		if err := suggestion.Approve(); err != nil {
			return fmt.Errorf("%w: %v", service.ErrInvalidState, err)
		}

		base, err := prompts.GetByID(ctx, suggestion.PromptVersionID)
		if err != nil {
			return fmt.Errorf("failed to load base prompt version: %w", err)
		}

		maxVersion, err := prompts.MaxVersion(ctx, base.Type)
		if err != nil {
			return err
		}

		next, err := domain.NewPromptVersion(
			base.Type,
			suggestion.SuggestedSystemPrompt,
			suggestion.SuggestedUserPromptTemplate,
			maxVersion+1,
			base.ID,
		)
		if err != nil {
			return err
		}
		next.Activate()

		if err := prompts.DeactivateActive(ctx, base.Type); err != nil {
			return err
		}
		if err := prompts.Create(ctx, next); err != nil {
			return err
		}
		if err := suggestions.Update(ctx, suggestion); err != nil {
			return err
		}

		created = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("prompt suggestion approved",
		slog.String("suggestion_id", suggestionID.String()),
		slog.Int("new_version", created.Version))
	return created, nil
}

// RejectSuggestion discards a pending suggestion; prompt versions are
// untouched.
func (s *Service) RejectSuggestion(ctx context.Context, suggestionID uuid.UUID) (*domain.PromptSuggestion, error) {
	var suggestion *domain.PromptSuggestion
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		suggestions := s.suggestions.WithTx(tx)

		var err error
		suggestion, err = suggestions.GetByID(ctx, suggestionID)
		if err != nil {
			return err
		}
		if err := suggestion.Reject(); err != nil {
			return fmt.Errorf("%w: %v", service.ErrInvalidState, err)
		}
		return suggestions.Update(ctx, suggestion)
	})
	if err != nil {
		return nil, err
	}
	return suggestion, nil
}

// ListSuggestions retrieves suggestions, optionally filtered by status.
func (s *Service) ListSuggestions(
	ctx context.Context,
	status *domain.SuggestionStatus,
) ([]*domain.PromptSuggestion, error) {
	return s.suggestions.ListByStatus(ctx, status)
}

// ActivePrompt retrieves the active version of a prompt type.
func (s *Service) ActivePrompt(ctx context.Context, promptType domain.PromptType) (*domain.PromptVersion, error) {
	return s.prompts.GetActive(ctx, promptType)
}

// History retrieves all versions of a prompt type, newest first.
func (s *Service) History(ctx context.Context, promptType domain.PromptType) ([]*domain.PromptVersion, error) {
	return s.prompts.ListByType(ctx, promptType)
}

// TypeAnalytics is the per-type slice of an analytics report.
type TypeAnalytics struct {
	Type          domain.PromptType       `json:"prompt_type"`
	ActiveVersion int                     `json:"active_version"`
	VersionCount  int                     `json:"version_count"`
	Versions      []*domain.PromptVersion `json:"versions"`
}

// Analytics reports per-version counters and approval rates for both
// prompt types.
func (s *Service) Analytics(ctx context.Context) ([]TypeAnalytics, error) {
	report := make([]TypeAnalytics, 0, 2)
	for _, promptType := range []domain.PromptType{domain.PromptTypeGeneration, domain.PromptTypeValidation} {
		versions, err := s.prompts.ListByType(ctx, promptType)
		if err != nil {
			return nil, err
		}

		entry := TypeAnalytics{Type: promptType, VersionCount: len(versions), Versions: versions}
		for _, v := range versions {
			if v.IsActive {
				entry.ActiveVersion = v.Version
				break
			}
		}
		report = append(report, entry)
	}
	return report, nil
}

// Seed installs the default active version-1 prompts for any prompt type
// that has none. It is idempotent and safe to run at every startup.
func (s *Service) Seed(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	defaults := []struct {
		promptType domain.PromptType
		system     string
		template   string
	}{
		{domain.PromptTypeGeneration, generation.DefaultGenerationSystemPrompt, generation.DefaultGenerationUserTemplate},
		{domain.PromptTypeValidation, generation.DefaultValidationSystemPrompt, generation.DefaultValidationUserTemplate},
	}

	for _, d := range defaults {
		_, err := s.prompts.GetActive(ctx, d.promptType)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrPromptVersionNotFound) {
			return err
		}

		seed, err := domain.NewPromptVersion(d.promptType, d.system, d.template, 1, uuid.Nil)
		if err != nil {
			return fmt.Errorf("invalid default %s prompt: %w", d.promptType, err)
		}
		seed.Activate()
		if err := s.prompts.Create(ctx, seed); err != nil {
			return fmt.Errorf("failed to seed %s prompt: %w", d.promptType, err)
		}

		log.Info("seeded default prompt version",
			slog.String("prompt_type", string(d.promptType)),
			slog.String("version_id", seed.ID.String()))
	}
	return nil
}

// summarizeRejections builds the pattern summary fed to the model and
// stored with the suggestion.
func summarizeRejections(rejections []*domain.CardRejection) domain.RejectionPatterns {
	patterns := domain.RejectionPatterns{
		TotalRejections: len(rejections),
		TypeCounts:      make(map[string]int),
		SampleReasons:   make(map[string][]string),
	}
	for _, r := range rejections {
		t := string(r.Type)
		patterns.TypeCounts[t]++
		if len(patterns.SampleReasons[t]) < maxSampleReasons {
			patterns.SampleReasons[t] = append(patterns.SampleReasons[t], r.Reason)
		}
	}
	return patterns
}
