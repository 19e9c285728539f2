package dom

import (
	"fmt"
	"net/url"
	"sync"
)

// NavigationKind is the source of a location change.
type NavigationKind string

const (
	NavigatePush    NavigationKind = "push"    // history.pushState
	NavigateReplace NavigationKind = "replace" // history.replaceState
	NavigatePop     NavigationKind = "pop"     // back/forward
	NavigateHash    NavigationKind = "hash"    // fragment change
)

// Valid reports whether k is a known navigation kind.
func (k NavigationKind) Valid() bool {
	switch k {
	case NavigatePush, NavigateReplace, NavigatePop, NavigateHash:
		return true
	}
	return false
}

// Navigation is delivered to window listeners after the location changed.
type Navigation struct {
	Kind NavigationKind
	URL  string
}

// Window holds the tab location and fans navigation out to listeners.
type Window struct {
	mu        sync.RWMutex
	loc       *url.URL
	listeners map[int]func(Navigation)
	next      int
}

// NewWindow creates a window at rawURL.
func NewWindow(rawURL string) (*Window, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	return &Window{loc: u, listeners: make(map[int]func(Navigation))}, nil
}

// Location returns a copy of the current URL.
func (w *Window) Location() *url.URL {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u := *w.loc
	return &u
}

// Href is location.href.
func (w *Window) Href() string {
	return w.Location().String()
}

// Navigate moves the window to rawURL, resolved against the current location,
// and notifies listeners.
func (w *Window) Navigate(kind NavigationKind, rawURL string) error {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	w.mu.Lock()
	w.loc = w.loc.ResolveReference(ref)
	nav := Navigation{Kind: kind, URL: w.loc.String()}
	fns := make([]func(Navigation), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(nav)
	}
	return nil
}

// SetLocation changes the URL without notifying anyone, like a router that
// bypasses the history API. Only URL polling notices it.
func (w *Window) SetLocation(rawURL string) error {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	w.mu.Lock()
	w.loc = w.loc.ResolveReference(ref)
	w.mu.Unlock()
	return nil
}

// Listen registers fn for navigations. The returned func unregisters it.
func (w *Window) Listen(fn func(Navigation)) func() {
	w.mu.Lock()
	id := w.next
	w.next++
	w.listeners[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}
