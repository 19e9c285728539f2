package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/chatmark/internal/detector"
	"github.com/MikeSquared-Agency/chatmark/internal/dom"
	"github.com/MikeSquared-Agency/chatmark/internal/export"
	"github.com/MikeSquared-Agency/chatmark/internal/hermes"
	"github.com/MikeSquared-Agency/chatmark/internal/message"
	"github.com/MikeSquared-Agency/chatmark/internal/settings"
	"github.com/MikeSquared-Agency/chatmark/internal/tracker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads []any
}

func (p *recordingPublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func (p *recordingPublisher) waitFor(t *testing.T, subject string) any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		for i, s := range p.subjects {
			if s == subject {
				payload := p.payloads[i]
				p.mu.Unlock()
				return payload
			}
		}
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no publish on %s", subject)
	return nil
}

type fixture struct {
	mgr       *Manager
	settings  *settings.Service
	publisher *recordingPublisher
	exportDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := detector.NewRegistry(shortWait(detector.NewClaude(discardLogger())), shortWaitGPT(detector.NewChatGPT(discardLogger())))
	f := &fixture{
		settings:  settings.New(settings.NewMemoryKV(), discardLogger()),
		publisher: &recordingPublisher{},
		exportDir: t.TempDir(),
	}
	f.mgr = NewManager(Deps{
		Registry:  reg,
		Settings:  f.settings,
		Exporter:  export.NewWriter(f.exportDir),
		Publisher: f.publisher,
		Tracker: tracker.Options{
			PollInterval: 10 * time.Millisecond,
			SettleDelay:  20 * time.Millisecond,
			Debounce:     10 * time.Millisecond,
		},
		Logger: discardLogger(),
	})
	t.Cleanup(f.mgr.Shutdown)
	return f
}

func shortWait(d *detector.Claude) *detector.Claude {
	d.WaitTimeout = 10 * time.Millisecond
	return d
}

func shortWaitGPT(d *detector.ChatGPT) *detector.ChatGPT {
	d.WaitTimeout = 10 * time.Millisecond
	return d
}

const claudePage = `<body>
	<div data-author="user">What is Go?</div>
	<div data-author="assistant">A programming language.</div>
	<div data-author="user">Thanks</div>
</body>`

func (f *fixture) open(t *testing.T) *Session {
	t.Helper()
	s, err := f.mgr.Snapshot(context.Background(), "tab-1", "https://claude.ai/chat/abc", claudePage)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Bus().AwaitReady(ctx); err != nil {
		t.Fatalf("session never ready: %v", err)
	}
	return s
}

func TestHandle_GetMessagesAndPairs(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()

	resp := s.Handle(ctx, Request{Type: TypeGetMessages})
	if !resp.Success {
		t.Fatalf("GET_MESSAGES failed: %s", resp.Error)
	}
	msgs := resp.Data.([]message.Message)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.Element != nil {
			t.Error("element reference crossed the boundary")
		}
	}

	resp = s.Handle(ctx, Request{Type: TypeGetMessagePairs})
	pairs := resp.Data.([]message.Pair)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair (trailing user dropped), got %d", len(pairs))
	}
	if pairs[0].User.Content != "What is Go?" || pairs[0].Assistant == nil || pairs[0].Assistant.Element != nil {
		t.Errorf("unexpected pair %+v", pairs[0])
	}
}

func TestHandle_UnknownType(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	resp := s.Handle(context.Background(), Request{Type: "NOPE"})
	if resp.Success || resp.Error != "Unknown message type" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestPerformAction_CopyFallsBackToPage(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()
	msgs := s.Messages(ctx)
	s.Page().Document.Drain()

	resp := s.Handle(ctx, Request{Type: TypePerformAction, MessageID: msgs[1].ID, Action: message.ActionCopy})
	if !resp.Success {
		t.Fatalf("copy failed: %s", resp.Error)
	}
	cmds := s.Page().Document.Drain()
	if len(cmds) != 1 || cmds[0].Kind != dom.CommandCopy || cmds[0].Text != "A programming language." {
		t.Errorf("unexpected commands %+v", cmds)
	}
}

func TestPerformAction_QuoteAndShare(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()
	msgs := s.Messages(ctx)
	s.Page().Document.Drain()

	if err := s.PerformAction(ctx, msgs[0].ID, message.ActionQuote); err != nil {
		t.Fatalf("quote: %v", err)
	}
	if err := s.PerformAction(ctx, msgs[0].ID, message.ActionShare); err != nil {
		t.Fatalf("share: %v", err)
	}
	cmds := s.Page().Document.Drain()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %+v", cmds)
	}
	if cmds[0].Kind != dom.CommandQuote || cmds[0].Text != "> What is Go?" {
		t.Errorf("unexpected quote %+v", cmds[0])
	}
	if cmds[1].Text != "https://claude.ai/chat/abc#"+msgs[0].ID {
		t.Errorf("unexpected share url %q", cmds[1].Text)
	}
}

func TestPerformAction_Export(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()
	msgs := s.Messages(ctx)

	if err := s.PerformAction(ctx, msgs[0].ID, message.ActionExport); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(f.exportDir + "/message_" + msgs[0].ID + ".json"); err != nil {
		t.Errorf("message export missing: %v", err)
	}
}

func TestPerformAction_Failures(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()
	msgs := s.Messages(ctx)

	if err := s.PerformAction(ctx, "msg_missing", message.ActionCopy); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
	if err := s.PerformAction(ctx, msgs[0].ID, "delete"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}

	if _, err := f.settings.Update(ctx, []byte(`{"messageActions":[{"type":"copy","label":"复制","icon":"📋","enabled":false}]}`)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	resp := s.Handle(ctx, Request{Type: TypePerformAction, MessageID: msgs[0].ID, Action: message.ActionCopy})
	if resp.Success {
		t.Error("disabled action succeeded")
	}
}

func TestHandle_JumpAndHistory(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()
	msgs := s.Messages(ctx)

	if resp := s.Handle(ctx, Request{Type: TypeJumpToMessage, MessageID: msgs[2].ID}); !resp.Success {
		t.Fatalf("jump failed: %s", resp.Error)
	}
	if resp := s.Handle(ctx, Request{Type: TypeJumpToMessage, MessageID: "msg_missing"}); resp.Success {
		t.Error("jump to unknown message succeeded")
	}

	resp := s.Handle(ctx, Request{Type: TypeGetJumpHistory})
	hist := resp.Data.([]message.JumpInfo)
	if len(hist) != 1 || hist[0].MessageID != msgs[2].ID {
		t.Fatalf("unexpected history %+v", hist)
	}

	if err := f.mgr.ClearJumpHistories(ctx); err != nil {
		t.Fatalf("ClearJumpHistories: %v", err)
	}
	resp = s.Handle(ctx, Request{Type: TypeGetJumpHistory})
	if hist := resp.Data.([]message.JumpInfo); len(hist) != 0 {
		t.Errorf("history not cleared: %+v", hist)
	}
}

func TestHandle_ExportData(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	resp := s.Handle(context.Background(), Request{Type: TypeExportData, Format: "txt"})
	if !resp.Success {
		t.Fatalf("export failed: %s", resp.Error)
	}
	path := resp.Data.(ExportResult).Path
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "[Q&A 1]") || !strings.HasSuffix(path, ".txt") {
		t.Errorf("unexpected export %s:\n%s", path, data)
	}

	resp = s.Handle(context.Background(), Request{Type: TypeExportData, Format: "pdf"})
	if resp.Success {
		t.Error("unknown format succeeded")
	}

	resp = s.Handle(context.Background(), Request{Type: TypeExportData})
	if !resp.Success || !strings.HasSuffix(resp.Data.(ExportResult).Path, ".md") {
		t.Errorf("default export format not used: %+v", resp)
	}
}

func TestManager_PublishesUpdates(t *testing.T) {
	f := newFixture(t)
	f.open(t)

	payload := f.publisher.waitFor(t, hermes.SubjectMessagesUpdated)
	n := payload.(hermes.MessagesUpdated)
	if n.TabID != "tab-1" || n.Site != "claude" || n.ConversationID != "abc" || n.MessageCount != 3 {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestManager_SnapshotNavigatesExistingTab(t *testing.T) {
	f := newFixture(t)
	f.open(t)

	_, err := f.mgr.Snapshot(context.Background(), "tab-1", "https://claude.ai/chat/def", claudePage)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	payload := f.publisher.waitFor(t, hermes.SubjectConversationChanged)
	if n := payload.(hermes.ConversationChanged); n.ConversationID != "def" {
		t.Errorf("unexpected notification %+v", n)
	}
	if f.mgr.Len() != 1 {
		t.Errorf("expected 1 tab, got %d", f.mgr.Len())
	}
}

func TestManager_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Snapshot(ctx, "", "https://example.com/", "<body></body>"); !errors.Is(err, ErrUnsupportedSite) {
		t.Errorf("expected ErrUnsupportedSite, got %v", err)
	}

	if _, err := f.settings.Update(ctx, []byte(`{"enabledSites":["chatgpt"]}`)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.mgr.Snapshot(ctx, "", "https://claude.ai/chat/1", "<body></body>"); !errors.Is(err, ErrSiteDisabled) {
		t.Errorf("expected ErrSiteDisabled, got %v", err)
	}

	if _, err := f.mgr.Get("missing"); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("expected ErrTabNotFound, got %v", err)
	}
	if err := f.mgr.Close("missing"); !errors.Is(err, ErrTabNotFound) {
		t.Errorf("expected ErrTabNotFound, got %v", err)
	}
}

func TestManager_Close(t *testing.T) {
	f := newFixture(t)
	s, err := f.mgr.Snapshot(context.Background(), "", "https://chatgpt.com/c/1", "<body></body>")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected generated tab id")
	}
	if err := f.mgr.Close(s.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if f.mgr.Len() != 0 {
		t.Errorf("expected no tabs, got %d", f.mgr.Len())
	}
}

func TestHandle_JumpAfterSnapshotReload(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()
	msgs := s.Messages(ctx)

	// The same page pushed again replaces the tree and its id attributes.
	if _, err := f.mgr.Snapshot(ctx, "tab-1", "https://claude.ai/chat/abc", claudePage); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	resp := s.Handle(ctx, Request{Type: TypeJumpToMessage, MessageID: msgs[0].ID})
	if !resp.Success {
		t.Fatalf("jump after snapshot failed: %s", resp.Error)
	}
	if got := resp.Data.(JumpResult).URL; got != "https://claude.ai/chat/abc#"+msgs[0].ID {
		t.Errorf("jump url = %q", got)
	}
}

func TestHandle_JumpBack(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()
	msgs := s.Messages(ctx)

	resp := s.Handle(ctx, Request{Type: TypeJumpBack})
	if !resp.Success || resp.Data.(JumpBackResult).Jumped {
		t.Fatalf("jump back on empty history: %+v", resp)
	}

	s.Handle(ctx, Request{Type: TypeJumpToMessage, MessageID: msgs[0].ID})
	s.Handle(ctx, Request{Type: TypeJumpToMessage, MessageID: msgs[2].ID})

	resp = s.Handle(ctx, Request{Type: TypeJumpBack})
	if !resp.Success || !resp.Data.(JumpBackResult).Jumped {
		t.Fatalf("jump back failed: %+v", resp)
	}
	hist := s.Handle(ctx, Request{Type: TypeGetJumpHistory}).Data.([]message.JumpInfo)
	if len(hist) != 1 || hist[0].MessageID != msgs[0].ID {
		t.Errorf("unexpected history %+v", hist)
	}
}

func TestManager_ZeroTrackerOptions(t *testing.T) {
	mgr := NewManager(Deps{
		Registry: detector.NewRegistry(shortWait(detector.NewClaude(discardLogger()))),
		Settings: settings.New(settings.NewMemoryKV(), discardLogger()),
		Exporter: export.NewWriter(t.TempDir()),
		Logger:   discardLogger(),
	})
	t.Cleanup(mgr.Shutdown)

	s, err := mgr.Snapshot(context.Background(), "tab-1", "https://claude.ai/chat/abc", claudePage)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Bus().AwaitReady(ctx); err != nil {
		t.Fatalf("session never ready: %v", err)
	}
	if st := s.Status(); !st.Ready || st.MessageCount != 3 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestManager_SnapshotChangesSite(t *testing.T) {
	f := newFixture(t)
	old := f.open(t)
	ctx := context.Background()

	s, err := f.mgr.Snapshot(ctx, "tab-1", "https://chatgpt.com/c/1", "<body></body>")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s == old || s.Site != message.SiteChatGPT || s.ID != "tab-1" {
		t.Errorf("tab not reopened for the new site: %+v", s.Status())
	}
	if f.mgr.Len() != 1 {
		t.Errorf("expected 1 tab, got %d", f.mgr.Len())
	}

	if _, err := f.mgr.Snapshot(ctx, "tab-1", "https://example.com/", "<body></body>"); !errors.Is(err, ErrUnsupportedSite) {
		t.Errorf("expected ErrUnsupportedSite, got %v", err)
	}
	if f.mgr.Len() != 0 {
		t.Errorf("tab on unsupported site kept open")
	}
}

func TestManager_FollowsHashIntoNewConversation(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()
	msgs := s.Messages(ctx)

	if _, err := f.mgr.Snapshot(ctx, "tab-1", "https://claude.ai/chat/def#"+msgs[1].ID, claudePage); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hist, _ := s.Jumps().History(ctx)
		if len(hist) == 1 && hist[0].MessageID == msgs[1].ID && hist[0].ConversationID == "def" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	hist, _ := s.Jumps().History(ctx)
	t.Fatalf("hash not followed after conversation change: %+v", hist)
}

func TestManager_ReplyHandler(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	handle := f.mgr.ReplyHandler(time.Second)

	resp := handle([]byte(`{"tab_id":"tab-1","type":"GET_MESSAGES"}`)).(Response)
	if !resp.Success || len(resp.Data.([]message.Message)) != 3 {
		t.Errorf("unexpected reply %+v", resp)
	}

	resp = handle([]byte(`{"tab_id":"nope","type":"GET_MESSAGES"}`)).(Response)
	if resp.Success || !strings.Contains(resp.Error, "tab not found") {
		t.Errorf("unknown tab: %+v", resp)
	}

	if resp := handle([]byte(`not json`)).(Response); resp.Success {
		t.Error("malformed request succeeded")
	}

	if sites := f.mgr.Sites(); len(sites) != 2 || sites[0] != message.SiteClaude {
		t.Errorf("Sites = %v", sites)
	}
}
