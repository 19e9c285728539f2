package detector

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatmark/internal/dom"
	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

// Gemini renders turns as custom elements grouped in conversation containers.
// The history scroller may never appear; its wait is short and tolerant.
type Gemini struct {
	UserTag      string
	AssistantTag string
	Container    string
	History      string
	WaitTimeout  time.Duration

	normalizer *message.Normalizer
	logger     *slog.Logger
}

func NewGemini(logger *slog.Logger) *Gemini {
	d := &Gemini{
		UserTag:      "user-query",
		AssistantTag: "model-response",
		Container:    ".conversation-container",
		History:      "infinite-scroller.chat-history",
		WaitTimeout:  5 * time.Second,
		normalizer:   message.NewNormalizer(message.DefaultExtractor().With("message-actions", "sources-list")),
		logger:       logger,
	}
	checkSelectors(logger, d.Site(), d.UserTag, d.AssistantTag, d.Container, d.History)
	return d
}

func (d *Gemini) Site() message.Site { return message.SiteGemini }

func (d *Gemini) Detect(u *url.URL) (message.Site, bool) {
	if strings.Contains(u.Hostname(), "gemini.google.com") {
		return message.SiteGemini, true
	}
	return "", false
}

func (d *Gemini) Messages(ctx context.Context, page *dom.Page) []message.Message {
	if _, ok := page.Document.WaitFor(ctx, d.History, d.WaitTimeout); !ok {
		d.logger.Warn("history container not found, continuing anyway", "site", d.Site())
	}

	doc := page.Document
	turns := d.UserTag + ", " + d.AssistantTag

	var items []candidate
	containers := doc.Query(d.Container)
	for _, c := range containers {
		for _, el := range doc.QueryIn(c, turns) {
			items = append(items, candidate{el: el, role: d.role(el)})
		}
	}
	d.logger.Debug("containers scanned", "containers", len(containers), "turns", len(items))

	if len(items) == 0 {
		d.logger.Info("no turns in containers, trying direct element search", "site", d.Site())
		for _, el := range doc.Query(turns) {
			items = append(items, candidate{el: el, role: d.role(el)})
		}
	}

	byVisualTop(items)
	return normalize(d.normalizer, page, d.Site(), items, d.logger)
}

func (d *Gemini) role(el *dom.Element) message.Role {
	if el.Tag() == d.UserTag {
		return message.RoleUser
	}
	return message.RoleAssistant
}

func (d *Gemini) MessageElement(page *dom.Page, id string) *dom.Element {
	return message.FindElement(page.Document, id)
}

func (d *Gemini) ScrollToMessage(page *dom.Page, id string) bool {
	return scroll(page, id)
}

func (d *Gemini) Shapes() []string {
	return []string{d.UserTag, d.AssistantTag, d.Container}
}
