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

// Claude marks turns with data-author. The fallback matches the test id on
// user turns and the message font class on assistant turns.
type Claude struct {
	Primary     SelectorSet
	Fallback    SelectorSet
	Container   string
	WaitTimeout time.Duration

	normalizer *message.Normalizer
	logger     *slog.Logger
}

func NewClaude(logger *slog.Logger) *Claude {
	d := &Claude{
		Primary: SelectorSet{
			User:      `[data-author="user"]`,
			Assistant: `[data-author="assistant"]`,
		},
		Fallback: SelectorSet{
			User:      `[data-testid="user-message"]`,
			Assistant: `.font-claude-message`,
		},
		Container:   "body",
		WaitTimeout: 10 * time.Second,
		normalizer:  message.NewNormalizer(message.DefaultExtractor()),
		logger:      logger,
	}
	checkSelectors(logger, d.Site(), d.Primary.User, d.Primary.Assistant, d.Fallback.User, d.Fallback.Assistant, d.Container)
	return d
}

func (d *Claude) Site() message.Site { return message.SiteClaude }

func (d *Claude) Detect(u *url.URL) (message.Site, bool) {
	if strings.Contains(u.Hostname(), "claude.ai") {
		return message.SiteClaude, true
	}
	return "", false
}

func (d *Claude) Messages(ctx context.Context, page *dom.Page) []message.Message {
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

func (d *Claude) MessageElement(page *dom.Page, id string) *dom.Element {
	return message.FindElement(page.Document, id)
}

func (d *Claude) ScrollToMessage(page *dom.Page, id string) bool {
	return scroll(page, id)
}

func (d *Claude) Shapes() []string {
	return []string{d.Primary.User, d.Primary.Assistant, d.Fallback.User, d.Fallback.Assistant}
}
