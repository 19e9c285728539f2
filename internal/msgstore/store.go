// Package msgstore caches the messages extracted from one page together with
// their source elements. It holds nothing across conversations.
package msgstore

import (
	"sort"
	"sync"

	"github.com/MikeSquared-Agency/chatmark/internal/dom"
	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

// DefaultLimit matches the default maxMessages setting.
const DefaultLimit = 1000

// Store maps message id to message and element for the current conversation.
type Store struct {
	mu       sync.RWMutex
	limit    int
	messages map[string]message.Message
	elements map[string]*dom.Element
}

// New returns an empty store keeping at most limit messages. A limit <= 0
// means DefaultLimit.
func New(limit int) *Store {
	s := &Store{
		messages: make(map[string]message.Message),
		elements: make(map[string]*dom.Element),
	}
	s.SetLimit(limit)
	return s
}

// SetLimit changes the cap applied by the next Replace.
func (s *Store) SetLimit(limit int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.Lock()
	s.limit = limit
	s.mu.Unlock()
}

// Replace discards everything and stores msgs. When msgs exceeds the limit
// only the latest ones are kept.
func (s *Store) Replace(msgs []message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(msgs) > s.limit {
		msgs = msgs[len(msgs)-s.limit:]
	}
	s.messages = make(map[string]message.Message, len(msgs))
	s.elements = make(map[string]*dom.Element, len(msgs))
	for _, m := range msgs {
		s.elements[m.ID] = m.Element
		s.messages[m.ID] = m
	}
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = make(map[string]message.Message)
	s.elements = make(map[string]*dom.Element)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) Get(id string) (message.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	return m, ok
}

// Element returns the cached source element of a message, or nil.
func (s *Store) Element(id string) *dom.Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elements[id]
}

// Messages returns the stored messages in timestamp order, ties broken by id.
func (s *Store) Messages() []message.Message {
	s.mu.RLock()
	out := make([]message.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Before(out[j].Timestamp) {
			return true
		}
		if out[j].Timestamp.Before(out[i].Timestamp) {
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out
}
