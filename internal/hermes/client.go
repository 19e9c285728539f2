package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects chatmark publishes on.
const (
	SubjectConversationChanged = "chatmark.conversation.changed"
	SubjectMessagesUpdated     = "chatmark.messages.updated"
	SubjectRegistered          = "swarm.agent.chatmark.registered"

	// SubjectRPC serves tab requests over request/reply.
	SubjectRPC = "chatmark.tabs.rpc"
)

// ConversationChanged is the fire-and-forget notice that a tab moved to
// another conversation.
type ConversationChanged struct {
	TabID          string `json:"tab_id"`
	Site           string `json:"site"`
	ConversationID string `json:"conversationId"`
}

// MessagesUpdated is the fire-and-forget notice that a tab's messages changed.
type MessagesUpdated struct {
	TabID          string `json:"tab_id"`
	Site           string `json:"site"`
	ConversationID string `json:"conversationId"`
	MessageCount   int    `json:"messageCount"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// Request sends data and decodes the first reply into reply. ctx bounds the
// wait.
func (c *Client) Request(ctx context.Context, subject string, data any, reply any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg, err := c.conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("request %s: %w", subject, err)
	}
	if reply == nil {
		return nil
	}
	if err := json.Unmarshal(msg.Data, reply); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Reply serves requests on subject. handler's return value is sent back as
// JSON.
func (c *Client) Reply(subject string, handler func(data []byte) any) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		payload, err := json.Marshal(handler(msg.Data))
		if err != nil {
			c.logger.Error("failed to marshal reply", "subject", subject, "error", err)
			return
		}
		if err := msg.Respond(payload); err != nil {
			c.logger.Warn("failed to respond", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("reply %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
