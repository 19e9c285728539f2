package dom

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// BoxTopAttr carries the element's layout top, serialized by the bridge from
// getBoundingClientRect().top.
const BoxTopAttr = "data-box-top"

// Element is a non-owning reference to a node of a Document. Clones are
// detached: they have no document and never affect the page.
type Element struct {
	doc  *Document
	node *html.Node
}

func (e *Element) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.node).Selection
}

func (e *Element) rlock() func() {
	if e.doc == nil {
		return func() {}
	}
	e.doc.mu.RLock()
	return e.doc.mu.RUnlock
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string {
	return strings.ToLower(e.node.Data)
}

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	defer e.rlock()()
	return e.selection().Attr(name)
}

// SetAttr writes an attribute. Attribute writes are not childList mutations,
// so observers are not notified.
func (e *Element) SetAttr(name, value string) {
	if e.doc != nil {
		e.doc.mu.Lock()
		defer e.doc.mu.Unlock()
	}
	e.selection().SetAttr(name, value)
}

// Text returns the concatenated text content of the element.
func (e *Element) Text() string {
	defer e.rlock()()
	return e.selection().Text()
}

// Clone returns a detached deep copy.
func (e *Element) Clone() *Element {
	defer e.rlock()()
	nodes := e.selection().Clone().Nodes
	return &Element{node: nodes[0]}
}

// Remove deletes every descendant matching selector. It is only allowed on
// detached clones so extraction can never mutate the live page.
func (e *Element) Remove(selector string) int {
	if e.doc != nil {
		return 0
	}
	m, err := Compile(selector)
	if err != nil {
		return 0
	}
	found := e.selection().FindMatcher(m)
	n := found.Length()
	found.Remove()
	return n
}

// Count returns the number of descendants matching selector.
func (e *Element) Count(selector string) int {
	m, err := Compile(selector)
	if err != nil {
		return 0
	}
	defer e.rlock()()
	return e.selection().FindMatcher(m).Length()
}

// Matches reports whether the element itself or any descendant matches sel.
func (e *Element) Matches(sel cascadia.Selector) bool {
	defer e.rlock()()
	if sel.Match(e.node) {
		return true
	}
	return sel.MatchFirst(e.node) != nil
}

// Top returns the element's vertical layout position. Without a serialized
// box the preorder document position is used, so order is still total.
func (e *Element) Top() float64 {
	if v, ok := e.Attr(BoxTopAttr); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	if e.doc == nil {
		return 0
	}
	defer e.rlock()()
	p, _ := e.doc.position(e.node)
	return float64(p)
}

// ScrollOptions mirrors scrollIntoView's options.
type ScrollOptions struct {
	Behavior string
	Block    string
}

// CenterSmooth is the scroll used for jumps.
var CenterSmooth = ScrollOptions{Behavior: "smooth", Block: "center"}

// ScrollIntoView queues a scroll of this element for the bridge.
func (e *Element) ScrollIntoView(opts ScrollOptions) {
	if e.doc == nil {
		return
	}
	e.doc.Enqueue(Command{
		Kind:     CommandScroll,
		Target:   e.target(),
		Behavior: opts.Behavior,
		Block:    opts.Block,
	})
}

// Highlight queues a temporary highlight of this element.
func (e *Element) Highlight(d time.Duration) {
	if e.doc == nil {
		return
	}
	e.doc.Enqueue(Command{
		Kind:       CommandHighlight,
		Target:     e.target(),
		DurationMS: d.Milliseconds(),
	})
}

// target identifies the element for the bridge: its stable message id when it
// has one, its id attribute otherwise.
func (e *Element) target() string {
	if v, ok := e.Attr("data-message-id"); ok {
		return `[data-message-id="` + v + `"]`
	}
	if v, ok := e.Attr("id"); ok && v != "" {
		return "#" + v
	}
	return e.Tag()
}
