package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	r.Get("/health", h.handleHealth)

	// Auth routes (public)
	r.Post("/admin/login", h.handleLogin)
	r.Post("/admin/logout", h.handleLogout)
	r.Post("/api/judge/login", h.handleJudgeLogin)
	r.Post("/api/judge/logout", h.handleJudgeLogout)

	// Judge API (protected by the judge session)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireJudgeAPI)

		// The event stream is long-lived and must not be cut by the timeout
		if h.Events != nil {
			r.Get("/ws", h.Events.ServeWs)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/api/judge/me", h.handleJudgeMe)
			r.Get("/api/judge/settings", h.handleClientSettings)
			r.Get("/api/judge/galas", h.handleListGalas)
			r.Post("/api/judge/galas/{galaID}/submit", h.handleSubmit)

			r.Route("/api/judge/galas/{galaID}/categories/{categoryID}/participants", func(r chi.Router) {
				r.Get("/", h.handleCategoryParticipants)
				r.Get("/{participantID}", h.handleParticipantQuestions)
				r.Patch("/{participantID}/questions/{questionID}", h.handleWriteNote)
				r.Post("/{participantID}/favorite", h.handleSetFavorite)
				r.Delete("/{participantID}/favorite", h.handleClearFavorite)
			})
		})
	})

	// Admin API (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuthAPI)

		if h.Events != nil {
			r.Get("/api/admin/ws", h.Events.ServeAdminWs)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Galas
			r.Get("/api/admin/galas", h.handleAdminListGalas)
			r.Post("/api/admin/galas/{galaID}/lock", h.handleLockGala)
			r.Delete("/api/admin/galas/{galaID}/lock", h.handleUnlockGala)

			// Submissions
			r.Get("/api/admin/galas/{galaID}/submissions", h.handleListSubmissions)
			r.Delete("/api/admin/galas/{galaID}/submissions/{judgeID}", h.handleResetSubmission)

			// Judges
			r.Get("/api/admin/judges", h.handleListJudges)
			r.Post("/api/admin/judges/{judgeID}/access-code", h.handleRegenerateAccessCode)
			r.Get("/api/admin/judges/{judgeID}/qr", h.handleJudgeQR)

			// Settings
			r.Get("/api/admin/settings", h.handleGetSettings)
			r.Put("/api/admin/settings", h.handleUpdateSettings)

			// Database Management
			r.Post("/api/admin/reset-database", h.handleResetDatabase)
			r.Post("/api/admin/seed", h.handleSeed)
		})
	})

	return r
}
