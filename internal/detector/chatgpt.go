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

// ChatGPT restyles often; the fallback set matches test-id prefixes.
type ChatGPT struct {
	Primary     SelectorSet
	Fallback    SelectorSet
	Container   string
	WaitTimeout time.Duration

	normalizer *message.Normalizer
	logger     *slog.Logger
}

func NewChatGPT(logger *slog.Logger) *ChatGPT {
	d := &ChatGPT{
		Primary: SelectorSet{
			User:      `[data-message-author-role="user"]`,
			Assistant: `[data-turn="assistant"]`,
		},
		Fallback: SelectorSet{
			User:      `[data-testid^="user-"]`,
			Assistant: `[data-testid^="assistant-"]`,
		},
		Container:   `[data-testid="conversation-turn"], article[data-testid]`,
		WaitTimeout: 10 * time.Second,
		normalizer:  message.NewNormalizer(message.DefaultExtractor()),
		logger:      logger,
	}
	checkSelectors(logger, d.Site(), d.Primary.User, d.Primary.Assistant, d.Fallback.User, d.Fallback.Assistant, d.Container)
	return d
}

func (d *ChatGPT) Site() message.Site { return message.SiteChatGPT }

func (d *ChatGPT) Detect(u *url.URL) (message.Site, bool) {
	host := u.Hostname()
	if strings.Contains(host, "chatgpt.com") || strings.Contains(host, "chat.openai.com") {
		return message.SiteChatGPT, true
	}
	return "", false
}

func (d *ChatGPT) Messages(ctx context.Context, page *dom.Page) []message.Message {
	if _, ok := page.Document.WaitFor(ctx, d.Container, d.WaitTimeout); !ok {
		d.logger.Warn("conversation container not found, scanning anyway", "site", d.Site())
	}

	doc := page.Document
	users := doc.Query(d.Primary.User)
	assistants := doc.Query(d.Primary.Assistant)
	d.logger.Debug("primary selectors", "users", len(users), "assistants", len(assistants))

	if len(users) == 0 && len(assistants) == 0 {
		users = doc.Query(d.Fallback.User)
		assistants = doc.Query(d.Fallback.Assistant)
		d.logger.Info("using fallback selectors", "site", d.Site(), "users", len(users), "assistants", len(assistants))
	}

	items := tag(users, assistants)
	byVisualTop(items)
	return normalize(d.normalizer, page, d.Site(), items, d.logger)
}

func (d *ChatGPT) MessageElement(page *dom.Page, id string) *dom.Element {
	return message.FindElement(page.Document, id)
}

func (d *ChatGPT) ScrollToMessage(page *dom.Page, id string) bool {
	return scroll(page, id)
}

func (d *ChatGPT) Shapes() []string {
	return []string{d.Primary.User, d.Primary.Assistant, d.Fallback.User, d.Fallback.Assistant}
}
