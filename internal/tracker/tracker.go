// Package tracker notices when a single-page chat app moves to another
// conversation, or grows new turns, and reloads the message store.
package tracker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/andybalholm/cascadia"

	"github.com/MikeSquared-Agency/chatmark/internal/dom"
	"github.com/MikeSquared-Agency/chatmark/internal/eventbus"
	"github.com/MikeSquared-Agency/chatmark/internal/message"
	"github.com/MikeSquared-Agency/chatmark/internal/msgstore"
)

// State of the tracker.
type State int32

const (
	Stable State = iota
	Transitioning
)

func (s State) String() string {
	if s == Transitioning {
		return "transitioning"
	}
	return "stable"
}

// ReloadFunc rescans the page into the store and returns the stored count.
type ReloadFunc func(ctx context.Context) int

// Options are the tracker timings.
type Options struct {
	PollInterval time.Duration
	SettleDelay  time.Duration
	Debounce     time.Duration
}

// DefaultOptions polls every 500ms, settles for 800ms and coalesces mutations
// over 400ms.
var DefaultOptions = Options{
	PollInterval: 500 * time.Millisecond,
	SettleDelay:  800 * time.Millisecond,
	Debounce:     400 * time.Millisecond,
}

// withDefaults fills non-positive timings from DefaultOptions.
func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultOptions.PollInterval
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultOptions.SettleDelay
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultOptions.Debounce
	}
	return o
}

// Tracker owns the reload loop of one page. Every input, whether a poll tick,
// a navigation or a debounced mutation, is handled on the Run goroutine, so
// reloads never overlap.
type Tracker struct {
	page   *dom.Page
	store  *msgstore.Store
	bus    *eventbus.Bus
	reload ReloadFunc
	shapes cascadia.Selector
	opts   Options

	signals chan Signal
	state   atomic.Int32

	conversationID string
	lastCount      int

	logger *slog.Logger
}

// New builds a tracker. shapes are the selectors a new message element may
// match; when none compile the mutation watcher stays off. Zero timings in
// opts fall back to DefaultOptions.
func New(page *dom.Page, store *msgstore.Store, bus *eventbus.Bus, reload ReloadFunc, shapes []string, opts Options, logger *slog.Logger) *Tracker {
	t := &Tracker{
		page:    page,
		store:   store,
		bus:     bus,
		reload:  reload,
		opts:    opts.withDefaults(),
		signals: make(chan Signal, 16),
		logger:  logger,
	}
	if len(shapes) > 0 {
		sel, err := dom.CompileAll(shapes)
		if err != nil {
			logger.Warn("message shapes invalid, mutation watcher disabled", "error", err)
		} else {
			t.shapes = sel
		}
	}
	return t
}

func (t *Tracker) State() State {
	return State(t.state.Load())
}

// Notify queues a signal for the loop. It never blocks; when the queue is full
// the signal is dropped, since the next poll tick covers it.
func (t *Tracker) Notify(s Signal) {
	select {
	case t.signals <- s:
	default:
		t.logger.Debug("tracker signal dropped", "signal", s)
	}
}

// Run attaches to the page, loads it once, marks the bus ready and then
// tracks the page until ctx is done.
func (t *Tracker) Run(ctx context.Context) {
	stopNav := ListenNavigation(t.page.Window, t.Notify)
	defer stopNav()

	if t.shapes != nil {
		debounce := NewDebouncer(t.opts.Debounce, func() { t.Notify(SignalMutation) })
		defer debounce.Stop()
		stopObs := t.page.Document.Observe(func(added []*dom.Element) {
			for _, el := range added {
				if el.Matches(t.shapes) {
					debounce.Trigger()
					return
				}
			}
		})
		defer stopObs()
	}

	t.conversationID = message.ConversationIDOrUnknown(t.page.Window.Href())
	t.lastCount = t.reload(ctx)
	t.bus.Publish(eventbus.EventMessagesUpdated, eventbus.MessagesUpdated{
		ConversationID: t.conversationID,
		MessageCount:   t.lastCount,
	})
	t.bus.MarkReady()

	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	t.logger.Info("tracking conversation", "conversation_id", t.conversationID, "count", t.lastCount)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.check(ctx, SignalPoll)
		case s := <-t.signals:
			if s == SignalMutation {
				t.refresh(ctx)
				continue
			}
			t.check(ctx, s)
		}
	}
}

// check compares the URL's conversation id with the cached one and, on a
// change, clears, waits for the site to settle, reloads and notifies.
func (t *Tracker) check(ctx context.Context, cause Signal) {
	id := message.ConversationIDOrUnknown(t.page.Window.Href())
	if id == t.conversationID {
		return
	}

	t.state.Store(int32(Transitioning))
	defer t.state.Store(int32(Stable))

	t.logger.Info("conversation changed", "from", t.conversationID, "conversation_id", id, "cause", cause)
	t.conversationID = id
	t.store.Clear()
	t.bus.Publish(eventbus.EventConversationChanged, eventbus.ConversationChanged{ConversationID: id})

	timer := time.NewTimer(t.opts.SettleDelay)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return
	}

	t.lastCount = t.reload(ctx)
	t.bus.Publish(eventbus.EventMessagesUpdated, eventbus.MessagesUpdated{
		ConversationID: id,
		MessageCount:   t.lastCount,
	})
}

// refresh reloads after new message-shaped elements and notifies only when
// the count moved.
func (t *Tracker) refresh(ctx context.Context) {
	count := t.reload(ctx)
	if count == t.lastCount {
		return
	}
	t.logger.Debug("messages changed", "conversation_id", t.conversationID, "from", t.lastCount, "count", count)
	t.lastCount = count
	t.bus.Publish(eventbus.EventMessagesUpdated, eventbus.MessagesUpdated{
		ConversationID: t.conversationID,
		MessageCount:   count,
	})
}
