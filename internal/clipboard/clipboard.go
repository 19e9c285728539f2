// Package clipboard writes text to the user's clipboard through the browser
// bridge, falling back to a copy command replayed inside the page.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/chatmark/internal/dom"
)

// ErrUnavailable is returned when no write path succeeded.
var ErrUnavailable = errors.New("clipboard unavailable")

// Writer puts text on the clipboard.
type Writer interface {
	Write(ctx context.Context, text string) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, text string) error

func (f WriterFunc) Write(ctx context.Context, text string) error { return f(ctx, text) }

type fallback struct {
	primary   Writer
	secondary Writer
}

// Fallback tries primary and, when it fails, secondary. A nil writer is
// skipped. When both fail the error wraps ErrUnavailable and both causes.
func Fallback(primary, secondary Writer) Writer {
	return &fallback{primary: primary, secondary: secondary}
}

func (f *fallback) Write(ctx context.Context, text string) error {
	var errs []error
	for _, w := range []Writer{f.primary, f.secondary} {
		if w == nil {
			continue
		}
		err := w.Write(ctx, text)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

// Requester is a request/reply transport, satisfied by hermes.Client.
type Requester interface {
	Request(ctx context.Context, subject string, data any, reply any) error
}

// WriteRequest asks the bridge to write text.
type WriteRequest struct {
	TabID string `json:"tab_id"`
	Text  string `json:"text"`
}

// WriteReply is the bridge's answer.
type WriteReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BridgeWriter uses the bridge's clipboard API over a request/reply subject.
type BridgeWriter struct {
	transport Requester
	subject   string
	tabID     string
	timeout   time.Duration
}

func NewBridgeWriter(transport Requester, subject, tabID string, timeout time.Duration) *BridgeWriter {
	return &BridgeWriter{transport: transport, subject: subject, tabID: tabID, timeout: timeout}
}

func (w *BridgeWriter) Write(ctx context.Context, text string) error {
	if w.transport == nil {
		return errors.New("no bridge transport")
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var reply WriteReply
	if err := w.transport.Request(ctx, w.subject, WriteRequest{TabID: w.tabID, Text: text}, &reply); err != nil {
		return fmt.Errorf("bridge clipboard: %w", err)
	}
	if !reply.OK {
		return fmt.Errorf("bridge clipboard: %s", reply.Error)
	}
	return nil
}

// PageWriter queues a copy command the bridge replays through an off-screen
// textarea and execCommand("copy").
type PageWriter struct {
	doc *dom.Document
}

func NewPageWriter(doc *dom.Document) *PageWriter {
	return &PageWriter{doc: doc}
}

func (w *PageWriter) Write(_ context.Context, text string) error {
	if w.doc == nil {
		return errors.New("no page attached")
	}
	w.doc.Enqueue(dom.Command{Kind: dom.CommandCopy, Text: text})
	return nil
}
