package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/quillback/mnemo-api/internal/api"
	apimiddleware "github.com/quillback/mnemo-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)
	r.Use(cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.config.Auth,
	)
	sessionHandler := api.NewSessionHandler(app.sessionService)
	cardHandler := api.NewCardHandler(app.reviewService)
	promptHandler := api.NewPromptHandler(app.promptService)

	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Session lifecycle
			r.Post("/sessions", sessionHandler.Upload)
			r.Get("/sessions", sessionHandler.List)
			r.Get("/sessions/{id}", sessionHandler.Get)
			r.Get("/sessions/{id}/status", sessionHandler.Status)
			r.Post("/sessions/{id}/generate", sessionHandler.StartGeneration)
			r.Post("/sessions/{id}/continue", sessionHandler.ContinueGeneration)
			r.Post("/sessions/{id}/finalize", sessionHandler.Finalize)
			r.Delete("/sessions/{id}", sessionHandler.Delete)
			r.Get("/sessions/{id}/export/csv", sessionHandler.ExportCSV)

			// Card review
			r.Get("/sessions/{id}/cards", cardHandler.ListSessionCards)
			r.Get("/cards/{id}", cardHandler.GetCard)
			r.Patch("/cards/{id}/approve", cardHandler.Approve)
			r.Patch("/cards/{id}/reject", cardHandler.Reject)
			r.Patch("/cards/{id}", cardHandler.Edit)
			r.Post("/cards/{id}/auto-correct", cardHandler.AutoCorrect)
			r.Post("/cards/batch-approve", cardHandler.BatchApprove)
			r.Post("/cards/batch-reject", cardHandler.BatchReject)

			// Prompt evolution
			r.Get("/prompts/active", promptHandler.Active)
			r.Get("/prompts/history", promptHandler.History)
			r.Get("/prompts/suggestions", promptHandler.ListSuggestions)
			r.Post("/prompts/suggestions/{id}/approve", promptHandler.ApproveSuggestion)
			r.Post("/prompts/suggestions/{id}/reject", promptHandler.RejectSuggestion)
			r.Get("/prompts/analytics", promptHandler.Analytics)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
