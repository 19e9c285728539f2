package jump

import (
	"context"
	"sync"

	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

// HistoryLimit bounds every jump history; the oldest entry goes first.
const HistoryLimit = 100

// History is a bounded, newest-first record of jumps.
type History interface {
	Push(ctx context.Context, info message.JumpInfo) error
	// List returns the entries newest first.
	List(ctx context.Context) ([]message.JumpInfo, error)
	// Pop removes and returns the newest entry.
	Pop(ctx context.Context) (message.JumpInfo, bool, error)
	Clear(ctx context.Context) error
}

// MemoryHistory is a ring of at most limit entries.
type MemoryHistory struct {
	mu      sync.Mutex
	limit   int
	entries []message.JumpInfo // oldest first
}

func NewMemoryHistory(limit int) *MemoryHistory {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &MemoryHistory{limit: limit}
}

func (h *MemoryHistory) Push(_ context.Context, info message.JumpInfo) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, info)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
	return nil
}

func (h *MemoryHistory) List(_ context.Context) ([]message.JumpInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]message.JumpInfo, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out, nil
}

func (h *MemoryHistory) Pop(_ context.Context) (message.JumpInfo, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return message.JumpInfo{}, false, nil
	}
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return last, true, nil
}

func (h *MemoryHistory) Clear(_ context.Context) error {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
	return nil
}
