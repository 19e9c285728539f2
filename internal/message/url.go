package message

import (
	"net/url"
	"regexp"
	"strings"
)

// conversationPatterns are tried in order against the full URL.
var conversationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/c/([a-f0-9-]+)`),    // ChatGPT
	regexp.MustCompile(`/chat/([a-f0-9-]+)`), // Claude
	regexp.MustCompile(`/app/([a-f0-9]+)`),   // Gemini
}

// ConversationID extracts the conversation id embedded in a page URL.
func ConversationID(rawURL string) (string, bool) {
	for _, re := range conversationPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ConversationIDOrUnknown is ConversationID with the "unknown" fallback.
func ConversationIDOrUnknown(rawURL string) string {
	if id, ok := ConversationID(rawURL); ok {
		return id
	}
	return UnknownConversation
}

// JumpURL links to a message: the page URL without query or fragment, plus
// "#" and the message id.
func JumpURL(pageURL, messageID string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "#" + messageID
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String() + "#" + messageID
}

// ShareURL is the page URL with its fragment replaced by the message id.
func ShareURL(pageURL, messageID string) string {
	base, _, _ := strings.Cut(pageURL, "#")
	return base + "#" + messageID
}

// ParseJumpURL splits a jump link into its conversation and message ids.
func ParseJumpURL(rawURL string) (conversationID, messageID string) {
	_, hash, ok := strings.Cut(rawURL, "#")
	if !ok || hash == "" {
		return "", ""
	}
	conversationID, _ = ConversationID(rawURL)
	return conversationID, hash
}
