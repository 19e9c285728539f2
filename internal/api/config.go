package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/MikeSquared-Agency/chatmark/internal/settings"
)

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.settings.Get(r.Context())
	if err != nil {
		s.logger.Error("failed to load config", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	patch, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := s.settings.Update(r.Context(), patch)
	if errors.Is(err, settings.ErrInvalidPatch) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to update config", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// resetConfig restores the default configuration and clears every tab's
// jump history.
func (s *Server) resetConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.Reset(r.Context()); err != nil {
		s.logger.Error("failed to reset config", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.sessions.ClearJumpHistories(r.Context()); err != nil {
		s.logger.Warn("failed to clear jump histories", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
