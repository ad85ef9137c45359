package app

import (
	"database/sql"
	"net/http"
	"time"

	"surveyhub/internal/answer"
	"surveyhub/internal/app/observability"
	"surveyhub/internal/authz"
	"surveyhub/internal/export"
	"surveyhub/internal/questionnaire"
	"surveyhub/internal/stats"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	limiter := NewIPRateLimiter(cfg.RateLimitPerMin, time.Minute)

	qnHandler := questionnaire.NewHandler(questionnaire.NewService(db))
	answerHandler := answer.NewHandler(answer.NewService(db))
	statsSvc := stats.NewService(db)
	statsHandler := stats.NewHandler(statsSvc)
	exportHandler := export.NewHandler(export.NewService(db, statsSvc))

	requireOwner := authz.RequireOwner(authz.NewDBAuthorizer(db))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		// Respondent-facing routes. Rate limited because they are the
		// only unauthenticated writes in the service.
		api.Group(func(public chi.Router) {
			public.Use(RateLimitMiddleware(limiter))
			public.Use(CSRFMiddleware(cfg.CSRFEnforced))
			public.Post("/answer-sets", answerHandler.Open)
			public.Get("/answer-sets/{uid}", answerHandler.Get)
			public.Put("/answer-sets/{uid}/answers", answerHandler.Submit)
		})

		api.Post("/questionnaires", qnHandler.Create)

		api.Route("/questionnaires/{uid}", func(qn chi.Router) {
			qn.Get("/", qnHandler.Get)

			qn.Group(func(owner chi.Router) {
				owner.Use(requireOwner)
				owner.Get("/statistics", statsHandler.Statistics)
				owner.Post("/composite-plot", statsHandler.CompositePlot)
				owner.Delete("/", qnHandler.Delete)
				owner.Post("/questions", qnHandler.AddQuestion)
				owner.Put("/placements", qnHandler.Reorder)
				owner.Post("/clone", qnHandler.Clone)
				owner.Get("/export", exportHandler.Download)
			})
		})
	})

	return r
}
