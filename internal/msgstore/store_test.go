package msgstore

import (
	"fmt"
	"testing"

	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

func msgs(n int) []message.Message {
	out := make([]message.Message, n)
	for i := range out {
		out[i] = message.Message{
			ID:        fmt.Sprintf("msg_%d", i),
			Role:      message.RoleUser,
			Content:   fmt.Sprintf("turn %d", i),
			Timestamp: message.AtPosition(i),
		}
	}
	return out
}

func TestReplace_OrdersByTimestamp(t *testing.T) {
	s := New(0)
	in := msgs(5)
	in[0], in[4] = in[4], in[0]
	s.Replace(in)

	got := s.Messages()
	if len(got) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(got))
	}
	for i, m := range got {
		if p, _ := m.Timestamp.Position(); p != i {
			t.Errorf("message %d has position %d", i, p)
		}
	}
}

func TestReplace_KeepsLatestWithinLimit(t *testing.T) {
	s := New(3)
	s.Replace(msgs(10))

	if s.Len() != 3 {
		t.Fatalf("expected 3 messages, got %d", s.Len())
	}
	if _, ok := s.Get("msg_9"); !ok {
		t.Error("latest message evicted")
	}
	if _, ok := s.Get("msg_0"); ok {
		t.Error("oldest message kept")
	}
}

func TestReplace_DiscardsPreviousScan(t *testing.T) {
	s := New(0)
	s.Replace(msgs(4))
	s.Replace(msgs(2))

	if s.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", s.Len())
	}
	if _, ok := s.Get("msg_3"); ok {
		t.Error("message from previous scan survived")
	}
}

func TestClear(t *testing.T) {
	s := New(0)
	s.Replace(msgs(3))
	s.Clear()

	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
	if s.Element("msg_0") != nil {
		t.Error("element survived clear")
	}
}
