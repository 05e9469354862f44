package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/predictedpress/backend/internal/content"
	"github.com/predictedpress/backend/internal/scheduler"
	"github.com/predictedpress/backend/internal/storage"
	syncer "github.com/predictedpress/backend/internal/sync"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Server bundles the HTTP handlers with the background machinery the admin
// routes drive. Reconciler, generator, and scheduler may be nil when the
// corresponding feature is disabled.
type Server struct {
	router     *chi.Mux
	handlers   *Handlers
	reconciler *syncer.Reconciler
	generator  *content.Generator
	scheduler  *scheduler.Scheduler
	addr       string
	server     *http.Server
}

// NewServer creates a new API server.
func NewServer(store *storage.Store, reconciler *syncer.Reconciler, generator *content.Generator, sched *scheduler.Scheduler, addr string) *Server {
	s := &Server{
		handlers:   NewHandlers(store),
		reconciler: reconciler,
		generator:  generator,
		scheduler:  sched,
		addr:       addr,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handlers.HealthCheck)
		r.Get("/stats", s.handlers.GetStats)

		r.Route("/markets", func(r chi.Router) {
			r.Get("/", s.handlers.GetMarkets)
			r.Get("/{id}", s.handlers.GetMarketByID)
			r.Get("/{id}/history", s.handlers.GetMarketHistory)
		})

		r.Route("/bounties", func(r chi.Router) {
			r.Get("/", s.handlers.GetBounties)
			r.Post("/claim", s.handlers.ClaimBounty)
			r.Get("/{id}", s.handlers.GetBountyByID)
		})

		r.Route("/articles", func(r chi.Router) {
			r.Get("/", s.handlers.GetArticles)
			r.Post("/", s.handlers.CreateArticle)
			r.Get("/{slug}", s.handlers.GetArticleBySlug)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/sync", s.triggerSync)
			r.Get("/jobs", s.getJobs)
			r.Post("/jobs/{name}/run", s.runJob)
			r.Post("/bounties/{id}/draft", s.generateDraft)
		})
	})

	return r
}

// Start starts the API server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Shutting down API server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// triggerSync runs one reconciliation pass inline and reports the result.
func (s *Server) triggerSync(w http.ResponseWriter, r *http.Request) {
	if s.reconciler == nil {
		respondError(w, http.StatusServiceUnavailable, "Sync is not enabled")
		return
	}

	result, err := s.reconciler.Run(r.Context())
	if errors.Is(err, syncer.ErrRunInProgress) {
		respondError(w, http.StatusConflict, "A sync run is already in progress")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Manual sync failed")
		respondError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) getJobs(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "Scheduler is not enabled")
		return
	}
	respondJSON(w, http.StatusOK, s.scheduler.GetJobStatus())
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		respondError(w, http.StatusServiceUnavailable, "Scheduler is not enabled")
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.scheduler.RunJobNow(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "triggered",
		"job":    name,
	})
}

func (s *Server) generateDraft(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		respondError(w, http.StatusServiceUnavailable, "Draft generation is not enabled")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid bounty id")
		return
	}

	if err := s.generator.GenerateByID(r.Context(), id); err != nil {
		log.Error().Err(err).Str("bounty_id", id.Hex()).Msg("Draft generation failed")
		respondError(w, http.StatusInternalServerError, "Draft generation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "generated"})
}
