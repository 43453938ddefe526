package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docread/internal/config"
	"github.com/dgallion1/docread/internal/imagestore"
	"github.com/dgallion1/docread/internal/pipeline"
)

// Server is the HTTP API server for docread.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	images       imagestore.Getter
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. images may be nil, in
// which case /img is not served.
func NewServer(orch *pipeline.Orchestrator, images imagestore.Getter, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		images:       images,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/stats", s.handleStats)

		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		if s.images != nil {
			r.Get("/img/{name}", s.handleImage)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"parse":       s.orchestrator.Stats().Snapshot(),
	})
}
