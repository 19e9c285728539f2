package dom

// CommandKind names a page-side effect the bridge replays on the live tab.
type CommandKind string

const (
	CommandScroll    CommandKind = "scroll"
	CommandHighlight CommandKind = "highlight"
	CommandQuote     CommandKind = "quote"
	CommandCopy      CommandKind = "copy"
)

// Command is one queued page-side effect.
type Command struct {
	Kind       CommandKind `json:"kind"`
	Target     string      `json:"target,omitempty"`
	Behavior   string      `json:"behavior,omitempty"`
	Block      string      `json:"block,omitempty"`
	DurationMS int64       `json:"durationMs,omitempty"`
	Text       string      `json:"text,omitempty"`
}

// Enqueue appends a command for the bridge.
func (d *Document) Enqueue(c Command) {
	d.cmdMu.Lock()
	d.commands = append(d.commands, c)
	d.cmdMu.Unlock()
}

// Drain returns and clears the queued commands, oldest first.
func (d *Document) Drain() []Command {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	out := d.commands
	d.commands = nil
	return out
}
