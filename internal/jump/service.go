// Package jump scrolls to messages, highlights them and keeps a bounded
// history of where the user jumped.
package jump

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/chatmark/internal/detector"
	"github.com/MikeSquared-Agency/chatmark/internal/dom"
	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

// HighlightDuration is how long a jumped-to message stays highlighted.
const HighlightDuration = 3 * time.Second

// ErrNotFound is returned when no element carries the message id.
var ErrNotFound = errors.New("message not found")

// Service jumps within one page.
type Service struct {
	page     *dom.Page
	detector detector.Detector
	history  History
	refresh  func(ctx context.Context)
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(page *dom.Page, det detector.Detector, history History, logger *slog.Logger) *Service {
	return &Service{
		page:     page,
		detector: det,
		history:  history,
		now:      time.Now,
		logger:   logger,
	}
}

// WithRefresh sets the rescan JumpToMessage runs when no element carries the
// id, which happens after the document was reloaded from a snapshot.
func (s *Service) WithRefresh(fn func(ctx context.Context)) *Service {
	s.refresh = fn
	return s
}

// JumpToMessage scrolls the message into the viewport center, highlights it
// and records the jump.
func (s *Service) JumpToMessage(ctx context.Context, id string) error {
	el := s.detector.MessageElement(s.page, id)
	if el == nil && s.refresh != nil {
		s.refresh(ctx)
		el = s.detector.MessageElement(s.page, id)
	}
	if el == nil {
		return fmt.Errorf("jump to %s: %w", id, ErrNotFound)
	}
	s.detector.ScrollToMessage(s.page, id)
	el.Highlight(HighlightDuration)

	href := s.page.Window.Href()
	info := message.JumpInfo{
		MessageID:      id,
		ConversationID: message.ConversationIDOrUnknown(href),
		Site:           string(s.detector.Site()),
		URL:            href,
		Timestamp:      message.WallClock(s.now()),
	}
	if err := s.history.Push(ctx, info); err != nil {
		s.logger.Warn("failed to record jump", "message_id", id, "error", err)
	}
	s.logger.Debug("jumped to message", "message_id", id, "conversation_id", info.ConversationID)
	return nil
}

// History returns recorded jumps, newest first.
func (s *Service) History(ctx context.Context) ([]message.JumpInfo, error) {
	return s.history.List(ctx)
}

func (s *Service) Clear(ctx context.Context) error {
	return s.history.Clear(ctx)
}

// JumpBack drops the current jump and returns to the one before it. It
// reports false when there is nowhere to go back to.
func (s *Service) JumpBack(ctx context.Context) (bool, error) {
	entries, err := s.history.List(ctx)
	if err != nil {
		return false, err
	}
	if len(entries) < 2 {
		return false, nil
	}

	// Drop the current entry and the previous one; the jump records the
	// previous one again.
	for range 2 {
		if _, _, err := s.history.Pop(ctx); err != nil {
			return false, err
		}
	}
	if err := s.JumpToMessage(ctx, entries[1].MessageID); err != nil {
		return false, err
	}
	return true, nil
}

// JumpURL links to a message on the current page.
func (s *Service) JumpURL(id string) string {
	return message.JumpURL(s.page.Window.Href(), id)
}

// HandleHash jumps to the message named by the location fragment, if any.
func (s *Service) HandleHash(ctx context.Context) bool {
	conversationID, id := message.ParseJumpURL(s.page.Window.Href())
	if id == "" {
		return false
	}
	if err := s.JumpToMessage(ctx, id); err != nil {
		s.logger.Debug("fragment does not name a message", "hash", id, "conversation_id", conversationID)
		return false
	}
	return true
}

// Watch handles fragment changes and back/forward navigation until the
// returned func is called.
func (s *Service) Watch(ctx context.Context) func() {
	return s.page.Window.Listen(func(nav dom.Navigation) {
		if nav.Kind == dom.NavigateHash || nav.Kind == dom.NavigatePop {
			s.HandleHash(ctx)
		}
	})
}
