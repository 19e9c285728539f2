package dom

import (
	"context"
	"testing"
	"time"
)

func mustDoc(t *testing.T, markup string) *Document {
	t.Helper()
	d, err := NewDocument(markup)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return d
}

func TestQuery_DocumentOrder(t *testing.T) {
	d := mustDoc(t, `<body><p class="m">a</p><div><p class="m">b</p></div><p class="m">c</p></body>`)

	els := d.Query(".m")
	if len(els) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(els))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := els[i].Text(); got != want {
			t.Errorf("element %d text = %q, want %q", i, got, want)
		}
	}
}

func TestQuery_InvalidSelectorMatchesNothing(t *testing.T) {
	d := mustDoc(t, `<body><p>a</p></body>`)
	if els := d.Query("p[[["); len(els) != 0 {
		t.Errorf("expected no matches, got %d", len(els))
	}
}

func TestClone_RemoveDoesNotTouchLiveDocument(t *testing.T) {
	d := mustDoc(t, `<body><div id="m">hello<button>Copy</button></div></body>`)
	el := d.First("#m")

	clone := el.Clone()
	if n := clone.Remove("button"); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	if got := clone.Text(); got != "hello" {
		t.Errorf("clone text = %q", got)
	}
	if got := el.Text(); got != "helloCopy" {
		t.Errorf("live text changed: %q", got)
	}
	if n := el.Remove("button"); n != 0 {
		t.Errorf("expected Remove on live element to be refused, removed %d", n)
	}
}

func TestSetAttr_FindByAttr(t *testing.T) {
	d := mustDoc(t, `<body><div class="m">x</div></body>`)
	d.First(".m").SetAttr("data-message-id", "msg_abc")

	el := d.FindByAttr("data-message-id", "msg_abc")
	if el == nil {
		t.Fatal("expected element by attribute")
	}
	if d.FindByAttr("data-message-id", "msg_nope") != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestTop_BoxAttributeThenDocumentOrder(t *testing.T) {
	d := mustDoc(t, `<body><p id="a" data-box-top="50"></p><p id="b"></p><p id="c"></p></body>`)

	if got := d.First("#a").Top(); got != 50 {
		t.Errorf("boxed top = %v, want 50", got)
	}
	b, c := d.First("#b").Top(), d.First("#c").Top()
	if !(b < c) {
		t.Errorf("expected document order fallback, got b=%v c=%v", b, c)
	}
}

func TestAppendHTML_NotifiesObservers(t *testing.T) {
	d := mustDoc(t, `<body><main></main></body>`)

	var got []*Element
	cancel := d.Observe(func(added []*Element) { got = append(got, added...) })
	defer cancel()

	added, err := d.AppendHTML("main", `<article>one</article><article>two</article>`)
	if err != nil {
		t.Fatalf("AppendHTML: %v", err)
	}
	if len(added) != 2 || len(got) != 2 {
		t.Fatalf("expected 2 added and observed, got %d/%d", len(added), len(got))
	}
	if got[1].Text() != "two" {
		t.Errorf("observed[1] = %q", got[1].Text())
	}

	if _, err := d.AppendHTML("aside", `<p/>`); err == nil {
		t.Error("expected error for missing parent")
	}
}

func TestWaitFor_ResolvesOnMutation(t *testing.T) {
	d := mustDoc(t, `<body><main></main></body>`)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = d.AppendHTML("main", `<section class="late">ok</section>`)
	}()

	el, ok := d.WaitFor(context.Background(), ".late", time.Second)
	if !ok || el == nil {
		t.Fatal("expected element to appear")
	}
}

func TestWaitFor_TimesOutQuietly(t *testing.T) {
	d := mustDoc(t, `<body></body>`)

	start := time.Now()
	el, ok := d.WaitFor(context.Background(), ".never", 30*time.Millisecond)
	if ok || el != nil {
		t.Fatal("expected not found")
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("returned before timeout")
	}
}

func TestScrollAndHighlight_QueueCommands(t *testing.T) {
	d := mustDoc(t, `<body><div data-message-id="msg_1">x</div></body>`)
	el := d.First("div")

	el.ScrollIntoView(CenterSmooth)
	el.Highlight(3 * time.Second)

	cmds := d.Drain()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	if cmds[0].Kind != CommandScroll || cmds[0].Block != "center" || cmds[0].Target != `[data-message-id="msg_1"]` {
		t.Errorf("unexpected scroll command: %+v", cmds[0])
	}
	if cmds[1].Kind != CommandHighlight || cmds[1].DurationMS != 3000 {
		t.Errorf("unexpected highlight command: %+v", cmds[1])
	}
	if len(d.Drain()) != 0 {
		t.Error("expected drained queue")
	}
}

func TestLoad_ReportsBodyChildren(t *testing.T) {
	d := mustDoc(t, `<body></body>`)

	var n int
	d.Observe(func(added []*Element) { n += len(added) })

	if err := d.Load(`<body><div>a</div><div>b</div></body>`); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 added, got %d", n)
	}
}
