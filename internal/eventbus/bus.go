// Package eventbus is the in-process publish/subscribe service a page session
// hands to its surfaces. It lives as long as the session that constructed it.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

const (
	EventConversationChanged = "conversation:changed"
	EventMessagesUpdated     = "messages:updated"
)

// ConversationChanged is published after the store is cleared for a new conversation.
type ConversationChanged struct {
	ConversationID string `json:"conversationId"`
}

// MessagesUpdated is published after a reload changed the stored messages.
type MessagesUpdated struct {
	ConversationID string `json:"conversationId"`
	MessageCount   int    `json:"messageCount"`
}

// Handler receives an event payload.
type Handler func(event string, payload any)

type Bus struct {
	mu       sync.Mutex
	handlers map[string]map[int]Handler
	next     int
	closed   bool

	readyOnce sync.Once
	ready     chan struct{}

	logger *slog.Logger
}

func New(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string]map[int]Handler),
		ready:    make(chan struct{}),
		logger:   logger,
	}
}

// Subscribe registers h for event. The returned func unsubscribes it.
func (b *Bus) Subscribe(event string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	id := b.next
	b.next++
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[int]Handler)
	}
	b.handlers[event][id] = h

	return func() {
		b.mu.Lock()
		delete(b.handlers[event], id)
		b.mu.Unlock()
	}
}

// Once registers h for the next occurrence of event only.
func (b *Bus) Once(event string, h Handler) func() {
	var (
		once   sync.Once
		cancel func()
		mu     sync.Mutex
	)
	mu.Lock()
	cancel = b.Subscribe(event, func(ev string, payload any) {
		once.Do(func() {
			mu.Lock()
			c := cancel
			mu.Unlock()
			c()
			h(ev, payload)
		})
	})
	mu.Unlock()
	return cancel
}

// Publish calls every handler of event synchronously, in no particular order.
// A panicking handler is logged and does not stop the others.
func (b *Bus) Publish(event string, payload any) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	hs := make([]Handler, 0, len(b.handlers[event]))
	for _, h := range b.handlers[event] {
		hs = append(hs, h)
	}
	b.mu.Unlock()

	for _, h := range hs {
		b.call(event, payload, h)
	}
}

func (b *Bus) call(event string, payload any, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", event, "panic", r)
		}
	}()
	h(event, payload)
}

// MarkReady completes the ready handshake. Calling it again is a no-op.
func (b *Bus) MarkReady() {
	b.readyOnce.Do(func() { close(b.ready) })
}

// Ready is closed once the publisher side is initialized.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

// AwaitReady blocks until MarkReady or ctx is done.
func (b *Bus) AwaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drops every handler. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.handlers = make(map[string]map[int]Handler)
	b.mu.Unlock()
}
