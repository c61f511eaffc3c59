package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/diogenesmendes01/email-gateway/internal/pkg/httputil"
)

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/dsn", s.handleProcessDSN)
		r.Post("/admission/check", s.handleAdmissionCheck)

		r.Route("/warmup", func(r chi.Router) {
			r.Post("/sweep", s.handleWarmupSweep)
			r.Route("/{domain}", func(r chi.Router) {
				r.Get("/", s.handleWarmupStatus)
				r.Post("/start", s.handleWarmupStart)
				r.Post("/pause", s.handleWarmupPause)
				r.Post("/resume", s.handleWarmupResume)
				r.Post("/complete", s.handleWarmupComplete)
			})
		})

		r.Route("/suppressions", func(r chi.Router) {
			r.Get("/", s.handleListSuppressions)
			r.Post("/", s.handleCreateSuppression)
			r.Route("/{email}", func(r chi.Router) {
				r.Get("/", s.handleCheckSuppression)
				r.Delete("/", s.handleDeleteSuppression)
			})
		})
	})

	return r
}
