// Package message is the uniform message model every site is normalized into,
// plus the DOM-to-message normalizer and its stable id.
package message

import (
	"github.com/MikeSquared-Agency/chatmark/internal/dom"
)

// Role is the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Site names a supported chat site.
type Site string

const (
	SiteChatGPT Site = "chatgpt"
	SiteClaude  Site = "claude"
	SiteGemini  Site = "gemini"
	SiteDoubao  Site = "doubao"
)

// UnknownConversation is used when the page URL carries no conversation id.
const UnknownConversation = "unknown"

// Message is one conversational turn.
type Message struct {
	ID             string    `json:"id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      Timestamp `json:"timestamp"`
	Site           Site      `json:"site"`
	ConversationID string    `json:"conversationId"`

	// Element is the backing node. It is page-side only and never serialized.
	Element *dom.Element `json:"-"`
}

// Detached returns a copy without the element reference, safe to send across
// the page boundary.
func (m Message) Detached() Message {
	m.Element = nil
	return m
}

// Pair is one request/response unit keyed by the user turn.
type Pair struct {
	ID        string    `json:"id"`
	User      Message   `json:"user"`
	Assistant *Message  `json:"assistant,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
	Site      Site      `json:"site"`
}

// Detached strips element references from both sides.
func (p Pair) Detached() Pair {
	p.User = p.User.Detached()
	if p.Assistant != nil {
		a := p.Assistant.Detached()
		p.Assistant = &a
	}
	return p
}

// DetachAll strips element references from a message list.
func DetachAll(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Detached()
	}
	return out
}

// DetachPairs strips element references from a pair list.
func DetachPairs(pairs []Pair) []Pair {
	out := make([]Pair, len(pairs))
	for i, p := range pairs {
		out[i] = p.Detached()
	}
	return out
}

// JumpInfo records one navigation to a message.
type JumpInfo struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	Site           string    `json:"site"`
	URL            string    `json:"url"`
	Timestamp      Timestamp `json:"timestamp"`
}

// Action is something a user can do with one message.
type Action string

const (
	ActionCopy   Action = "copy"
	ActionQuote  Action = "quote"
	ActionShare  Action = "share"
	ActionJump   Action = "jump"
	ActionExport Action = "export"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCopy, ActionQuote, ActionShare, ActionJump, ActionExport:
		return true
	}
	return false
}
