// Package session runs the extraction pipeline for each browser tab the
// bridge reports, and answers the tab's cross-context requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MikeSquared-Agency/chatmark/internal/clipboard"
	"github.com/MikeSquared-Agency/chatmark/internal/detector"
	"github.com/MikeSquared-Agency/chatmark/internal/dom"
	"github.com/MikeSquared-Agency/chatmark/internal/eventbus"
	"github.com/MikeSquared-Agency/chatmark/internal/export"
	"github.com/MikeSquared-Agency/chatmark/internal/jump"
	"github.com/MikeSquared-Agency/chatmark/internal/message"
	"github.com/MikeSquared-Agency/chatmark/internal/msgstore"
	"github.com/MikeSquared-Agency/chatmark/internal/pairing"
	"github.com/MikeSquared-Agency/chatmark/internal/settings"
	"github.com/MikeSquared-Agency/chatmark/internal/tracker"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrActionDisabled  = errors.New("action disabled")
	ErrUnknownAction   = errors.New("unknown action")
)

// Session is one tab: its page, the detector for its site and the pipeline
// state built on top.
type Session struct {
	ID   string
	Site message.Site

	page      *dom.Page
	detector  detector.Detector
	store     *msgstore.Store
	bus       *eventbus.Bus
	tracker   *tracker.Tracker
	jump      *jump.Service
	clipboard clipboard.Writer
	exporter  *export.Writer
	settings  *settings.Service

	// scanMu serializes rescans between the tracker and requests.
	scanMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// Page returns the tab's page model.
func (s *Session) Page() *dom.Page { return s.page }

// Bus returns the tab's event bus.
func (s *Session) Bus() *eventbus.Bus { return s.bus }

// Jumps returns the tab's jump service.
func (s *Session) Jumps() *jump.Service { return s.jump }

// Rescan extracts the page afresh and rebuilds the store from the result.
func (s *Session) Rescan(ctx context.Context) []message.Message {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	if cfg, err := s.settings.Get(ctx); err == nil {
		s.store.SetLimit(cfg.StorageConfig.MaxMessages)
	}
	s.store.Replace(s.detector.Messages(ctx, s.page))
	return s.store.Messages()
}

func (s *Session) reload(ctx context.Context) int {
	s.Rescan(ctx)
	return s.store.Len()
}

// Messages rescans and returns the messages without element references.
func (s *Session) Messages(ctx context.Context) []message.Message {
	return message.DetachAll(s.Rescan(ctx))
}

// Pairs rescans and returns the paired turns without element references.
func (s *Session) Pairs(ctx context.Context) []message.Pair {
	return message.DetachPairs(pairing.Pair(s.Rescan(ctx)))
}

// PerformAction runs action on one message after a rescan.
func (s *Session) PerformAction(ctx context.Context, id string, action message.Action) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !cfg.ActionEnabled(action) {
		return fmt.Errorf("%w: %s", ErrActionDisabled, action)
	}

	s.Rescan(ctx)
	m, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}

	s.logger.Debug("performing action", "tab", s.ID, "action", action, "message_id", id)
	switch action {
	case message.ActionCopy:
		return s.clipboard.Write(ctx, m.Content)
	case message.ActionQuote:
		s.page.Document.Enqueue(dom.Command{Kind: dom.CommandQuote, Text: "> " + m.Content})
		return nil
	case message.ActionShare:
		return s.clipboard.Write(ctx, message.ShareURL(s.page.Window.Href(), m.ID))
	case message.ActionJump:
		return s.jump.JumpToMessage(ctx, id)
	case message.ActionExport:
		_, err := s.exporter.WriteMessage(m)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// Export writes every pair of the page in format, or in the configured
// default format when format is empty. It returns the written path.
func (s *Session) Export(ctx context.Context, format string) (string, error) {
	if format == "" {
		cfg, err := s.settings.Get(ctx)
		if err != nil {
			return "", err
		}
		format = cfg.StorageConfig.ExportFormat
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return "", err
	}
	return s.exporter.WritePairs(pairing.Pair(s.Rescan(ctx)), f)
}

// storedPairs pairs what the store holds, without rescanning.
func (s *Session) storedPairs() []message.Pair {
	return pairing.Pair(s.store.Messages())
}

// applySnapshot replaces the page content and, when the URL moved, reports
// the move as a replace navigation.
func (s *Session) applySnapshot(rawURL, markup string) error {
	if err := s.page.Document.Load(markup); err != nil {
		return err
	}
	if rawURL != "" && rawURL != s.page.Window.Href() {
		return s.page.Window.Navigate(dom.NavigateReplace, rawURL)
	}
	return nil
}

// movedSite reports whether rawURL belongs to another site than the one the
// session was opened for.
func (s *Session) movedSite(reg *detector.Registry, rawURL string) bool {
	if rawURL == "" {
		return false
	}
	det := reg.DetectURL(rawURL)
	return det == nil || det.Site() != s.Site
}

// Status describes the tab for the bridge.
type Status struct {
	TabID        string       `json:"tab_id"`
	Site         message.Site `json:"site"`
	URL          string       `json:"url"`
	State        string       `json:"state"`
	Ready        bool         `json:"ready"`
	MessageCount int          `json:"messageCount"`
}

// Status reports the tab without rescanning.
func (s *Session) Status() Status {
	ready := false
	select {
	case <-s.bus.Ready():
		ready = true
	default:
	}
	return Status{
		TabID:        s.ID,
		Site:         s.Site,
		URL:          s.page.Window.Href(),
		State:        s.tracker.State().String(),
		Ready:        ready,
		MessageCount: s.store.Len(),
	}
}

// Close stops the tracker and the bus and waits for the tracker to exit.
func (s *Session) Close() {
	s.cancel()
	<-s.done
	s.bus.Close()
}
