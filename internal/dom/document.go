// Package dom models the page a chat site renders: a goquery-backed DOM
// snapshot, the window location and the queue of effects the browser bridge
// replays on the live tab.
package dom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ErrNoMatch is returned when a mutation targets a parent that is not in the document.
var ErrNoMatch = errors.New("no element matches selector")

// Document is a mutable DOM snapshot. All access goes through one RWMutex;
// observers are called after the lock is released.
type Document struct {
	mu  sync.RWMutex
	doc *goquery.Document

	orderMu sync.Mutex
	order   map[*html.Node]int

	obsMu     sync.Mutex
	observers map[int]func([]*Element)
	nextObs   int

	cmdMu    sync.Mutex
	commands []Command
}

// NewDocument parses markup into a document. Empty markup yields an empty body.
func NewDocument(markup string) (*Document, error) {
	gd, err := parse(markup)
	if err != nil {
		return nil, err
	}
	return &Document{doc: gd, observers: make(map[int]func([]*Element))}, nil
}

func parse(markup string) (*goquery.Document, error) {
	gd, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return gd, nil
}

// Load replaces the whole tree with a new snapshot and reports the new body's
// children to observers as added nodes.
func (d *Document) Load(markup string) error {
	gd, err := parse(markup)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.doc = gd
	d.order = nil
	added := d.wrap(gd.Find("body").Children().Nodes)
	d.mu.Unlock()

	d.notify(added)
	return nil
}

// AppendHTML appends markup to the first element matching parent and reports
// the appended elements to observers.
func (d *Document) AppendHTML(parent, markup string) ([]*Element, error) {
	m, err := Compile(parent)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	target := d.doc.FindMatcher(m).First()
	if target.Length() == 0 {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, parent)
	}
	before := make(map[*html.Node]bool)
	for _, n := range target.Children().Nodes {
		before[n] = true
	}
	target.AppendHtml(markup)
	var fresh []*html.Node
	for _, n := range target.Children().Nodes {
		if !before[n] {
			fresh = append(fresh, n)
		}
	}
	d.order = nil
	added := d.wrap(fresh)
	d.mu.Unlock()

	d.notify(added)
	return added, nil
}

// Query returns every element matching selector in document order. An invalid
// selector matches nothing.
func (d *Document) Query(selector string) []*Element {
	m, err := Compile(selector)
	if err != nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrap(d.doc.FindMatcher(m).Nodes)
}

// QueryIn is Query restricted to the descendants of root.
func (d *Document) QueryIn(root *Element, selector string) []*Element {
	m, err := Compile(selector)
	if err != nil || root == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrap(root.selection().FindMatcher(m).Nodes)
}

// First returns the first element matching selector, or nil.
func (d *Document) First(selector string) *Element {
	m, err := Compile(selector)
	if err != nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	nodes := d.doc.FindMatcher(m).First().Nodes
	if len(nodes) == 0 {
		return nil
	}
	return &Element{doc: d, node: nodes[0]}
}

// FindByAttr returns the first element whose attribute equals value. The
// comparison is done in Go so arbitrary values never need CSS escaping.
func (d *Document) FindByAttr(attr, value string) *Element {
	for _, el := range d.Query("[" + attr + "]") {
		if v, ok := el.Attr(attr); ok && v == value {
			return el
		}
	}
	return nil
}

// WaitFor resolves with the first element matching selector, waiting for
// mutations until timeout. It never fails: a timeout or a cancelled context
// resolves to (nil, false).
func (d *Document) WaitFor(ctx context.Context, selector string, timeout time.Duration) (*Element, bool) {
	if el := d.First(selector); el != nil {
		return el, true
	}

	changed := make(chan struct{}, 1)
	cancel := d.Observe(func([]*Element) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if el := d.First(selector); el != nil {
			return el, true
		}
		select {
		case <-changed:
		case <-timer.C:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Observe registers fn for childList/subtree additions anywhere in the
// document. The returned func unregisters it.
func (d *Document) Observe(fn func(added []*Element)) func() {
	d.obsMu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.obsMu.Unlock()

	return func() {
		d.obsMu.Lock()
		delete(d.observers, id)
		d.obsMu.Unlock()
	}
}

func (d *Document) notify(added []*Element) {
	if len(added) == 0 {
		return
	}
	d.obsMu.Lock()
	fns := make([]func([]*Element), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.obsMu.Unlock()

	for _, fn := range fns {
		fn(added)
	}
}

func (d *Document) wrap(nodes []*html.Node) []*Element {
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		out = append(out, &Element{doc: d, node: n})
	}
	return out
}

// position returns the preorder index of n. Callers hold at least the read lock;
// the index is rebuilt lazily after a mutation.
func (d *Document) position(n *html.Node) (int, bool) {
	d.orderMu.Lock()
	defer d.orderMu.Unlock()
	if d.order == nil {
		order := make(map[*html.Node]int)
		i := 0
		var walk func(*html.Node)
		walk = func(n *html.Node) {
			order[n] = i
			i++
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		for _, root := range d.doc.Nodes {
			walk(root)
		}
		d.order = order
	}
	p, ok := d.order[n]
	return p, ok
}

// Compile validates a CSS selector (or selector group) with cascadia.
func Compile(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	return sel, nil
}

// CompileAll compiles several selectors into one group.
func CompileAll(selectors []string) (cascadia.Selector, error) {
	return Compile(strings.Join(selectors, ", "))
}
