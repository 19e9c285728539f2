package clipboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/chatmark/internal/dom"
)

type fakeRequester struct {
	reply   WriteReply
	err     error
	subject string
	sent    WriteRequest
}

func (f *fakeRequester) Request(_ context.Context, subject string, data any, reply any) error {
	f.subject = subject
	f.sent = data.(WriteRequest)
	if f.err != nil {
		return f.err
	}
	b, _ := json.Marshal(f.reply)
	return json.Unmarshal(b, reply)
}

func TestBridgeWriter(t *testing.T) {
	req := &fakeRequester{reply: WriteReply{OK: true}}
	w := NewBridgeWriter(req, "chatmark.bridge.clipboard", "tab-1", time.Second)

	if err := w.Write(context.Background(), "hello"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if req.subject != "chatmark.bridge.clipboard" || req.sent.TabID != "tab-1" || req.sent.Text != "hello" {
		t.Errorf("unexpected request %s %+v", req.subject, req.sent)
	}

	req.reply = WriteReply{OK: false, Error: "permission denied"}
	if err := w.Write(context.Background(), "hello"); err == nil {
		t.Error("expected error for rejected write")
	}
}

func TestFallback_UsesSecondaryOnFailure(t *testing.T) {
	doc, err := dom.NewDocument("<body></body>")
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	primary := NewBridgeWriter(&fakeRequester{err: errors.New("no responders")}, "s", "tab", time.Second)
	w := Fallback(primary, NewPageWriter(doc))

	if err := w.Write(context.Background(), "quoted"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	cmds := doc.Drain()
	if len(cmds) != 1 || cmds[0].Kind != dom.CommandCopy || cmds[0].Text != "quoted" {
		t.Errorf("unexpected commands %+v", cmds)
	}
}

func TestFallback_PrimarySuccessSkipsSecondary(t *testing.T) {
	called := false
	w := Fallback(
		WriterFunc(func(context.Context, string) error { return nil }),
		WriterFunc(func(context.Context, string) error { called = true; return nil }),
	)
	if err := w.Write(context.Background(), "x"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if called {
		t.Error("secondary called after primary succeeded")
	}
}

func TestFallback_BothFail(t *testing.T) {
	fail := WriterFunc(func(context.Context, string) error { return errors.New("nope") })
	err := Fallback(fail, fail).Write(context.Background(), "x")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFallback_NilPrimary(t *testing.T) {
	doc, _ := dom.NewDocument("")
	if err := Fallback(nil, NewPageWriter(doc)).Write(context.Background(), "x"); err != nil {
		t.Fatalf("Write: %v", err)
	}
}
