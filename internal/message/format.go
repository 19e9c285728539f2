package message

import (
	"encoding/json"
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// RoleLabel is the export label of a role.
func RoleLabel(r Role) string {
	if r == RoleUser {
		return "用户"
	}
	return "助手"
}

// FormatMarkdown renders one message as a Markdown section.
func FormatMarkdown(m Message) string {
	return "## " + RoleLabel(m.Role) + " (" + m.Timestamp.Display() + ")\n\n" + m.Content + "\n\n---\n\n"
}

// FormatText renders one message as a plain-text block.
func FormatText(m Message) string {
	return "[" + RoleLabel(m.Role) + "] " + m.Timestamp.Display() + "\n" + m.Content + "\n\n"
}

// FormatJSON renders one detached message as indented JSON.
func FormatJSON(m Message) ([]byte, error) {
	return json.MarshalIndent(m.Detached(), "", "  ")
}

// Clean collapses runs of whitespace into single spaces.
func Clean(content string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(content, " "))
}

// Truncate shortens content to max runes, appending "...".
func Truncate(content string, max int) string {
	r := []rune(content)
	if len(r) <= max {
		return content
	}
	return string(r[:max]) + "..."
}
