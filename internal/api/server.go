package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/chatmark/internal/session"
	"github.com/MikeSquared-Agency/chatmark/internal/settings"
)

type Server struct {
	router   *chi.Mux
	http     *http.Server
	sessions *session.Manager
	settings *settings.Service
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, sessions *session.Manager, cfg *settings.Service, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		http:     &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: router},
		sessions: sessions,
		settings: cfg,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/chatmark/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))

		r.Post("/tabs", s.openTab)
		r.Route("/tabs/{tabID}", func(r chi.Router) {
			r.Get("/", s.tabStatus)
			r.Put("/snapshot", s.snapshot)
			r.Post("/mutations", s.mutations)
			r.Post("/navigation", s.navigation)
			r.Get("/commands", s.commands)
			r.Post("/rpc", s.rpc)
			r.Delete("/", s.closeTab)
		})

		r.Get("/config", s.getConfig)
		r.Patch("/config", s.updateConfig)
		r.Post("/config/reset", s.resetConfig)
	})

	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":  "chatmark",
		"status": "tracking",
		"tabs":   s.sessions.Len(),
		"sites":  s.sessions.Sites(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
