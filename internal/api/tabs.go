package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/chatmark/internal/dom"
	"github.com/MikeSquared-Agency/chatmark/internal/session"
)

// maxSnapshotBytes bounds snapshot and mutation bodies.
var maxSnapshotBytes int64 = 32 << 20

// SnapshotRequest is the page state the bridge pushes.
type SnapshotRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// MutationRequest appends html to the first element matching parent.
type MutationRequest struct {
	Parent string `json:"parent"`
	HTML   string `json:"html"`
}

// NavigationRequest reports a location change of the tab.
type NavigationRequest struct {
	Kind dom.NavigationKind `json:"kind"`
	URL  string             `json:"url"`
}

type TabResponse struct {
	TabID string `json:"tab_id"`
	Site  string `json:"site"`
}

type CommandsResponse struct {
	Commands []dom.Command `json:"commands"`
}

func (s *Server) openTab(w http.ResponseWriter, r *http.Request) {
	s.applySnapshot(w, r, "", http.StatusCreated)
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	s.applySnapshot(w, r, chi.URLParam(r, "tabID"), http.StatusOK)
}

func (s *Server) applySnapshot(w http.ResponseWriter, r *http.Request, tabID string, okCode int) {
	var req SnapshotRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	sess, err := s.sessions.Snapshot(r.Context(), tabID, req.URL, req.HTML)
	switch {
	case errors.Is(err, session.ErrUnsupportedSite):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, session.ErrSiteDisabled):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		s.logger.Error("snapshot failed", "tab", tabID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, okCode, TabResponse{TabID: sess.ID, Site: string(sess.Site)})
}

func (s *Server) mutations(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.tab(w, r)
	if !ok {
		return
	}
	var req MutationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Parent == "" {
		req.Parent = "body"
	}

	added, err := sess.Page().Document.AppendHTML(req.Parent, req.HTML)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": len(added)})
}

func (s *Server) navigation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.tab(w, r)
	if !ok {
		return
	}
	var req NavigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if !req.Kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown navigation kind %q", req.Kind))
		return
	}

	if err := sess.Page().Window.Navigate(req.Kind, req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) commands(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.tab(w, r)
	if !ok {
		return
	}
	cmds := sess.Page().Document.Drain()
	if cmds == nil {
		cmds = []dom.Command{}
	}
	writeJSON(w, http.StatusOK, CommandsResponse{Commands: cmds})
}

func (s *Server) rpc(w http.ResponseWriter, r *http.Request) {
	var req session.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, session.Response{Error: fmt.Sprintf("invalid JSON: %v", err)})
		return
	}

	resp, err := s.sessions.Dispatch(r.Context(), chi.URLParam(r, "tabID"), req)
	if err != nil {
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) tabStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.tab(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Status())
}

func (s *Server) closeTab(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(chi.URLParam(r, "tabID")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) tab(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "tabID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}
