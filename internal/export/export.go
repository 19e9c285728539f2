// Package export renders message pairs as JSON, Markdown or plain text and
// writes them to the export directory.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

// ErrUnknownFormat is returned for a format name that is not supported.
var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// ParseFormat accepts the format names and their common extensions.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Ext is the file extension, without the dot.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// Render formats pairs. Element references are stripped first.
func Render(pairs []message.Pair, f Format) ([]byte, error) {
	pairs = message.DetachPairs(pairs)
	switch f {
	case FormatJSON:
		return json.MarshalIndent(pairs, "", "  ")
	case FormatMarkdown:
		return []byte(markdown(pairs)), nil
	case FormatText:
		return []byte(text(pairs)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// RenderMessage formats a single message.
func RenderMessage(m message.Message, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return message.FormatJSON(m)
	case FormatMarkdown:
		return []byte(message.FormatMarkdown(m)), nil
	case FormatText:
		return []byte(message.FormatText(m)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func markdown(pairs []message.Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		fmt.Fprintf(&b, "## Q&A %d (%s)\n\n", i+1, p.Timestamp.Display())
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", message.RoleLabel(p.User.Role), p.User.Content)
		if p.Assistant != nil {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", message.RoleLabel(p.Assistant.Role), p.Assistant.Content)
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

func text(pairs []message.Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		fmt.Fprintf(&b, "[Q&A %d] %s\n\n", i+1, p.Timestamp.Display())
		fmt.Fprintf(&b, "[%s]\n%s\n\n", message.RoleLabel(p.User.Role), p.User.Content)
		if p.Assistant != nil {
			fmt.Fprintf(&b, "[%s]\n%s\n\n", message.RoleLabel(p.Assistant.Role), p.Assistant.Content)
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

// Writer saves exports under one directory.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Filename is ai_assistant_export_<unix ms>.<ext>.
func (w *Writer) Filename(f Format) string {
	return "ai_assistant_export_" + strconv.FormatInt(w.now().UnixMilli(), 10) + "." + f.Ext()
}

// WritePairs renders pairs and writes them, returning the file path.
func (w *Writer) WritePairs(pairs []message.Pair, f Format) (string, error) {
	data, err := Render(pairs, f)
	if err != nil {
		return "", err
	}
	return w.write(w.Filename(f), data)
}

// WriteMessage writes one message as message_<id>.json.
func (w *Writer) WriteMessage(m message.Message) (string, error) {
	data, err := RenderMessage(m, FormatJSON)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	return w.write("message_"+m.ID+".json", data)
}

func (w *Writer) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	p := filepath.Join(w.dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return p, nil
}
