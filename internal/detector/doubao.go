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

// Doubao has no stable markup contract; the fallback matches class substrings.
type Doubao struct {
	Primary     SelectorSet
	Fallback    SelectorSet
	Container   string
	WaitTimeout time.Duration

	normalizer *message.Normalizer
	logger     *slog.Logger
}

func NewDoubao(logger *slog.Logger) *Doubao {
	d := &Doubao{
		Primary: SelectorSet{
			User:      `[data-testid="send_message"] [data-testid="message_text_content"]`,
			Assistant: `[data-testid="receive_message"], .bot-message, .message-assistant`,
		},
		Fallback: SelectorSet{
			User:      `[class*="user"], [class*="User"]`,
			Assistant: `[class*="bot"], [class*="assistant"], [class*="Bot"], [class*="Assistant"]`,
		},
		Container:   "body",
		WaitTimeout: 10 * time.Second,
		normalizer:  message.NewNormalizer(message.DefaultExtractor()),
		logger:      logger,
	}
	checkSelectors(logger, d.Site(), d.Primary.User, d.Primary.Assistant, d.Fallback.User, d.Fallback.Assistant, d.Container)
	return d
}

func (d *Doubao) Site() message.Site { return message.SiteDoubao }

func (d *Doubao) Detect(u *url.URL) (message.Site, bool) {
	if strings.Contains(u.Hostname(), "doubao.com") {
		return message.SiteDoubao, true
	}
	return "", false
}

func (d *Doubao) Messages(ctx context.Context, page *dom.Page) []message.Message {
	if _, ok := page.Document.WaitFor(ctx, d.Container, d.WaitTimeout); !ok {
		d.logger.Warn("page body not ready, scanning anyway", "site", d.Site())
	}

	doc := page.Document
	users := doc.Query(d.Primary.User)
	assistants := doc.Query(d.Primary.Assistant)

	if len(users) == 0 && len(assistants) == 0 {
		users = doc.Query(d.Fallback.User)
		assistants = doc.Query(d.Fallback.Assistant)
		d.logger.Info("using fallback selectors", "site", d.Site(), "users", len(users), "assistants", len(assistants))
	}

	items := tag(users, assistants)
	byVisualTop(items)
	return normalize(d.normalizer, page, d.Site(), items, d.logger)
}

func (d *Doubao) MessageElement(page *dom.Page, id string) *dom.Element {
	return message.FindElement(page.Document, id)
}

func (d *Doubao) ScrollToMessage(page *dom.Page, id string) bool {
	return scroll(page, id)
}

func (d *Doubao) Shapes() []string {
	return []string{d.Primary.User, d.Primary.Assistant}
}
