package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillback/mnemo-api/internal/config"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/events"
	"github.com/quillback/mnemo-api/internal/platform/gemini"
	"github.com/quillback/mnemo-api/internal/platform/media"
	"github.com/quillback/mnemo-api/internal/platform/openai"
	"github.com/quillback/mnemo-api/internal/platform/postgres"
	"github.com/quillback/mnemo-api/internal/service"
	"github.com/quillback/mnemo-api/internal/service/auth"
	"github.com/quillback/mnemo-api/internal/service/promptevo"
	"github.com/quillback/mnemo-api/internal/service/review"
	"github.com/quillback/mnemo-api/internal/store"
	"github.com/quillback/mnemo-api/internal/task"
)

// application holds the shared application dependencies to simplify wiring
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore       store.UserStore
	taskStore       task.TaskStore
	sessionStore    store.SessionStore
	cardStore       store.CardStore
	imageStore      store.CardImageStore
	promptStore     store.PromptVersionStore
	suggestionStore store.PromptSuggestionStore
	rejectionStore  store.RejectionStore
	transactor      store.Transactor

	// Auth
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier

	// Domain services
	mediaStore     *media.Store
	providers      service.ProviderRegistry
	sessionService *service.SessionService
	reviewService  *review.Service
	promptService  *promptevo.Service

	// Background processing
	eventEmitter events.EventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies
// initialized. It expects configuration, logger, and database connection to
// be established first; everything else is wired here.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: log,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	log.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, log)
	app.taskStore = postgres.NewPostgresTaskStore(db)
	app.sessionStore = postgres.NewPostgresSessionStore(db, log)
	app.cardStore = postgres.NewPostgresCardStore(db, log)
	app.imageStore = postgres.NewPostgresCardImageStore(db, log)
	app.promptStore = postgres.NewPostgresPromptVersionStore(db, log)
	app.suggestionStore = postgres.NewPostgresPromptSuggestionStore(db, log)
	app.rejectionStore = postgres.NewPostgresRejectionStore(db, log)
	app.transactor = store.NewDBTransactor(db)

	app.providers, err = buildProviderRegistry(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	app.mediaStore, err = media.NewStore(cfg.Media, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(log)

	app.promptService, err = promptevo.NewService(
		app.promptStore,
		app.suggestionStore,
		app.cardStore,
		app.rejectionStore,
		app.transactor,
		app.providers,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt evolution service: %w", err)
	}

	// Seed version 1 of each prompt type so generation can run against a
	// fresh database.
	if err := app.promptService.Seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed prompt versions: %w", err)
	}

	app.reviewService, err = review.NewService(
		app.cardStore,
		app.sessionStore,
		app.rejectionStore,
		app.transactor,
		app.providers,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create review service: %w", err)
	}

	app.sessionService, err = service.NewSessionService(service.SessionServiceParams{
		Sessions:   app.sessionStore,
		Cards:      app.cardStore,
		Images:     app.imageStore,
		Prompts:    app.promptStore,
		Tx:         app.transactor,
		Media:      app.mediaStore,
		Providers:  app.providers,
		Emitter:    app.eventEmitter,
		Suggestion: app.promptService,
		GenCfg:     cfg.Generation,
		LLMCfg:     cfg.LLM,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	if err := app.setupTaskProcessing(); err != nil {
		return nil, err
	}

	log.Info("Application initialized successfully")
	return app, nil
}

// buildProviderRegistry assembles a generator per configured provider.
// API keys are optional at startup; sessions requesting an unconfigured
// provider fail at upload time instead.
func buildProviderRegistry(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.ProviderRegistry, error) {
	registry := service.ProviderRegistry{}

	if cfg.LLM.GeminiAPIKey != "" {
		gen, err := gemini.NewGenerator(ctx, log.With("component", "gemini_generator"), cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini generator: %w", err)
		}
		registry[domain.ProviderGemini] = gen
	}

	if cfg.LLM.OpenAIAPIKey != "" {
		gen, err := openai.NewGenerator(log.With("component", "openai_generator"), cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai generator: %w", err)
		}
		registry[domain.ProviderOpenAI] = gen
	}

	if len(registry) == 0 {
		log.Warn("No LLM provider configured; uploads will be rejected until a key is set")
	} else {
		log.Info("LLM providers configured", "count", len(registry))
	}

	return registry, nil
}

// setupTaskProcessing starts the background task runner, registers the
// generation task resolvers on it for crash recovery, and subscribes the
// generation event handler to the emitter.
func (app *application) setupTaskProcessing() error {
	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		QueueSize:    app.config.Task.QueueSize,
		WorkerCount:  app.config.Task.WorkerCount,
		StuckTaskAge: time.Duration(app.config.Task.StuckTaskAgeMinutes) * time.Minute,
	}, app.logger)

	factory, err := task.NewGenerationTaskFactory(app.sessionService, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create generation task factory: %w", err)
	}
	factory.RegisterWith(app.taskRunner)

	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	handler := task.NewGenerationEventHandler(factory, app.taskRunner, app.logger)

	emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter)
	if !ok {
		return fmt.Errorf("unexpected event emitter type, cannot register generation handler")
	}
	emitter.RegisterHandler(handler)

	return nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
