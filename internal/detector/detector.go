// Package detector holds one strategy per supported chat site for finding and
// ordering conversation turns, and the registry that picks one for a page.
package detector

import (
	"context"
	"log/slog"
	"net/url"
	"sort"

	"github.com/MikeSquared-Agency/chatmark/internal/dom"
	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

// Detector is implemented once per site.
type Detector interface {
	// Site is the site this detector handles.
	Site() message.Site
	// Detect reports whether u belongs to this site. Pure.
	Detect(u *url.URL) (message.Site, bool)
	// Messages scans the page and returns its turns in visual order. Failures
	// degrade to fewer or no messages; it never errors.
	Messages(ctx context.Context, page *dom.Page) []message.Message
	// MessageElement finds a message element by stable id.
	MessageElement(page *dom.Page, id string) *dom.Element
	// ScrollToMessage scrolls a message into the viewport center.
	ScrollToMessage(page *dom.Page, id string) bool
	// Shapes are the selectors a freshly added message element may match.
	Shapes() []string
}

// SelectorSet is a role-tagged pair of selectors.
type SelectorSet struct {
	User      string
	Assistant string
}

// checkSelectors compiles selectors with cascadia and logs the ones that do
// not parse. A query with an invalid selector matches nothing.
func checkSelectors(logger *slog.Logger, site message.Site, selectors ...string) []string {
	var invalid []string
	for _, sel := range selectors {
		if _, err := dom.Compile(sel); err != nil {
			logger.Warn("invalid selector", "site", site, "selector", sel, "error", err)
			invalid = append(invalid, sel)
		}
	}
	return invalid
}

type candidate struct {
	el   *dom.Element
	role message.Role
	top  float64
}

func tag(users, assistants []*dom.Element) []candidate {
	out := make([]candidate, 0, len(users)+len(assistants))
	for _, el := range users {
		out = append(out, candidate{el: el, role: message.RoleUser})
	}
	for _, el := range assistants {
		out = append(out, candidate{el: el, role: message.RoleAssistant})
	}
	return out
}

// byVisualTop orders candidates by layout top; equal tops keep discovery order.
func byVisualTop(items []candidate) {
	for i := range items {
		items[i].top = items[i].el.Top()
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].top < items[b].top })
}

// normalize feeds ordered candidates to the normalizer with their position,
// dropping empty ones.
func normalize(n *message.Normalizer, page *dom.Page, site message.Site, items []candidate, logger *slog.Logger) []message.Message {
	href := page.Window.Href()
	msgs := make([]message.Message, 0, len(items))
	for i, it := range items {
		m, ok := n.Parse(it.el, it.role, site, href, i)
		if !ok {
			continue
		}
		logger.Debug("parsed message",
			"site", site,
			"role", it.role,
			"index", i,
			"preview", message.Truncate(message.Clean(m.Content), 50),
		)
		msgs = append(msgs, m)
	}
	logger.Info("messages found", "site", site, "count", len(msgs))
	return msgs
}

func scroll(page *dom.Page, id string) bool {
	el := message.FindElement(page.Document, id)
	if el == nil {
		return false
	}
	el.ScrollIntoView(dom.CenterSmooth)
	return true
}
