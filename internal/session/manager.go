package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatmark/internal/clipboard"
	"github.com/MikeSquared-Agency/chatmark/internal/detector"
	"github.com/MikeSquared-Agency/chatmark/internal/dom"
	"github.com/MikeSquared-Agency/chatmark/internal/eventbus"
	"github.com/MikeSquared-Agency/chatmark/internal/export"
	"github.com/MikeSquared-Agency/chatmark/internal/hermes"
	"github.com/MikeSquared-Agency/chatmark/internal/jump"
	"github.com/MikeSquared-Agency/chatmark/internal/message"
	"github.com/MikeSquared-Agency/chatmark/internal/msgstore"
	"github.com/MikeSquared-Agency/chatmark/internal/settings"
	"github.com/MikeSquared-Agency/chatmark/internal/tracker"
)

var (
	ErrTabNotFound     = errors.New("tab not found")
	ErrUnsupportedSite = errors.New("no detector for site")
	ErrSiteDisabled    = errors.New("site disabled")
)

// Publisher sends fire-and-forget notifications; hermes.Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

// Deps are the collaborators every session shares.
type Deps struct {
	Registry  *detector.Registry
	Settings  *settings.Service
	Exporter  *export.Writer
	Publisher Publisher           // optional
	Bridge    clipboard.Requester // optional
	// History builds the jump history of a tab. Nil means in-memory.
	History          func(tabID string) jump.History
	ClipboardSubject string
	ClipboardTimeout time.Duration
	Tracker          tracker.Options
	Logger           *slog.Logger
}

// Manager owns the sessions of every open tab.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     Deps
	logger   *slog.Logger
}

func NewManager(deps Deps) *Manager {
	if deps.History == nil {
		deps.History = func(string) jump.History { return jump.NewMemoryHistory(jump.HistoryLimit) }
	}
	return &Manager{
		sessions: make(map[string]*Session),
		deps:     deps,
		logger:   deps.Logger,
	}
}

// Snapshot applies a page snapshot to tabID, opening a session for it when
// none exists. An empty tabID gets a fresh id.
func (m *Manager) Snapshot(ctx context.Context, tabID, rawURL, markup string) (*Session, error) {
	if tabID != "" {
		m.mu.RLock()
		s, ok := m.sessions[tabID]
		m.mu.RUnlock()
		if ok && !s.movedSite(m.deps.Registry, rawURL) {
			return s, s.applySnapshot(rawURL, markup)
		}
		if ok {
			// The tab left the site its detector serves.
			s.logger.Info("tab changed site, reopening", "url", rawURL)
			if err := m.Close(tabID); err != nil && !errors.Is(err, ErrTabNotFound) {
				return nil, err
			}
		}
	} else {
		tabID = uuid.NewString()
	}
	return m.open(ctx, tabID, rawURL, markup)
}

func (m *Manager) open(ctx context.Context, tabID, rawURL, markup string) (*Session, error) {
	det := m.deps.Registry.DetectURL(rawURL)
	if det == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSite, rawURL)
	}
	cfg, err := m.deps.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.SiteEnabled(det.Site()) {
		return nil, fmt.Errorf("%w: %s", ErrSiteDisabled, det.Site())
	}

	page, err := dom.NewPage(rawURL, markup)
	if err != nil {
		return nil, err
	}

	logger := m.logger.With("tab", tabID, "site", det.Site())
	s := &Session{
		ID:       tabID,
		Site:     det.Site(),
		page:     page,
		detector: det,
		store:    msgstore.New(cfg.StorageConfig.MaxMessages),
		bus:      eventbus.New(logger),
		exporter: m.deps.Exporter,
		settings: m.deps.Settings,
		done:     make(chan struct{}),
		logger:   logger,
	}
	s.jump = jump.NewService(page, det, m.deps.History(tabID), logger).
		WithRefresh(func(ctx context.Context) { s.Rescan(ctx) })

	var bridge clipboard.Writer
	if m.deps.Bridge != nil {
		bridge = clipboard.NewBridgeWriter(m.deps.Bridge, m.deps.ClipboardSubject, tabID, m.deps.ClipboardTimeout)
	}
	s.clipboard = clipboard.Fallback(bridge, clipboard.NewPageWriter(page.Document))

	s.tracker = tracker.New(page, s.store, s.bus, s.reload, det.Shapes(), m.deps.Tracker, logger)
	m.wireNotifications(s)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	m.mu.Lock()
	if existing, ok := m.sessions[tabID]; ok {
		m.mu.Unlock()
		cancel()
		return existing, existing.applySnapshot(rawURL, markup)
	}
	m.sessions[tabID] = s
	m.mu.Unlock()

	stopJumps := s.jump.Watch(runCtx)
	go func() {
		defer close(s.done)
		defer stopJumps()
		s.tracker.Run(runCtx)
	}()
	go func() {
		if err := s.bus.AwaitReady(runCtx); err == nil {
			s.jump.HandleHash(runCtx)
		}
	}()

	logger.Info("tab opened", "url", rawURL)
	return s, nil
}

// wireNotifications forwards bus events to the publisher and runs the
// configured auto-export.
func (m *Manager) wireNotifications(s *Session) {
	s.bus.Subscribe(eventbus.EventConversationChanged, func(_ string, payload any) {
		// A jump link into another conversation is followed once that
		// conversation's messages are loaded.
		s.bus.Once(eventbus.EventMessagesUpdated, func(string, any) {
			s.jump.HandleHash(context.Background())
		})

		p, ok := payload.(eventbus.ConversationChanged)
		if !ok || m.deps.Publisher == nil {
			return
		}
		err := m.deps.Publisher.Publish(hermes.SubjectConversationChanged, hermes.ConversationChanged{
			TabID:          s.ID,
			Site:           string(s.Site),
			ConversationID: p.ConversationID,
		})
		if err != nil {
			s.logger.Warn("failed to publish conversation change", "error", err)
		}
	})
	s.bus.Subscribe(eventbus.EventMessagesUpdated, func(_ string, payload any) {
		p, ok := payload.(eventbus.MessagesUpdated)
		if !ok {
			return
		}
		if m.deps.Publisher != nil {
			err := m.deps.Publisher.Publish(hermes.SubjectMessagesUpdated, hermes.MessagesUpdated{
				TabID:          s.ID,
				Site:           string(s.Site),
				ConversationID: p.ConversationID,
				MessageCount:   p.MessageCount,
			})
			if err != nil {
				s.logger.Warn("failed to publish message update", "error", err)
			}
		}
		m.autoExport(s, p)
	})
}

func (m *Manager) autoExport(s *Session, p eventbus.MessagesUpdated) {
	if p.MessageCount == 0 {
		return
	}
	ctx := context.Background()
	cfg, err := m.deps.Settings.Get(ctx)
	if err != nil || !cfg.StorageConfig.AutoExport {
		return
	}
	f, err := export.ParseFormat(cfg.StorageConfig.ExportFormat)
	if err != nil {
		s.logger.Warn("auto-export skipped", "error", err)
		return
	}
	path, err := m.deps.Exporter.WritePairs(s.storedPairs(), f)
	if err != nil {
		s.logger.Warn("auto-export failed", "error", err)
		return
	}
	s.logger.Info("auto-exported", "path", path, "count", p.MessageCount)
}

// Get returns the session of tabID.
func (m *Manager) Get(tabID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[tabID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTabNotFound, tabID)
	}
	return s, nil
}

// Dispatch answers req for tabID. An unknown tab is reported in the
// envelope together with ErrTabNotFound.
func (m *Manager) Dispatch(ctx context.Context, tabID string, req Request) (Response, error) {
	s, err := m.Get(tabID)
	if err != nil {
		return failure(err), err
	}
	return s.Handle(ctx, req), nil
}

// TabRequest is a Request addressed to a tab over NATS.
type TabRequest struct {
	TabID string `json:"tab_id"`
	Request
}

// ReplyHandler serves TabRequests for hermes.Client.Reply.
func (m *Manager) ReplyHandler(timeout time.Duration) func(data []byte) any {
	return func(data []byte) any {
		var req TabRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return failure(fmt.Errorf("decode request: %w", err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, _ := m.Dispatch(ctx, req.TabID, req.Request)
		return resp
	}
}

// Sites lists the sites a tab can be opened on, in detection order.
func (m *Manager) Sites() []message.Site {
	dets := m.deps.Registry.All()
	out := make([]message.Site, 0, len(dets))
	for _, d := range dets {
		out = append(out, d.Site())
	}
	return out
}

// Close tears tabID down.
func (m *Manager) Close(tabID string) error {
	m.mu.Lock()
	s, ok := m.sessions[tabID]
	delete(m.sessions, tabID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tabID)
	}
	s.Close()
	s.logger.Info("tab closed")
	return nil
}

// Len is the number of open tabs.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ClearJumpHistories empties the jump history of every open tab.
func (m *Manager) ClearJumpHistories(ctx context.Context) error {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var errs []error
	for _, s := range sessions {
		if err := s.jump.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tab %s: %w", s.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
