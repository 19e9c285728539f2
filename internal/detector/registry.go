package detector

import (
	"log/slog"
	"net/url"
)

// Registry holds the detectors in priority order.
type Registry struct {
	detectors []Detector
}

func NewRegistry(detectors ...Detector) *Registry {
	return &Registry{detectors: detectors}
}

// Default registers ChatGPT, Claude, Gemini and Doubao, in that order.
func Default(logger *slog.Logger) *Registry {
	return NewRegistry(
		NewChatGPT(logger),
		NewClaude(logger),
		NewGemini(logger),
		NewDoubao(logger),
	)
}

// Detect returns the first detector that recognizes u, or nil.
func (r *Registry) Detect(u *url.URL) Detector {
	for _, d := range r.detectors {
		if _, ok := d.Detect(u); ok {
			return d
		}
	}
	return nil
}

// DetectURL is Detect on a raw URL. Unparseable URLs match nothing.
func (r *Registry) DetectURL(rawURL string) Detector {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return r.Detect(u)
}

// All returns a copy of the registered detectors.
func (r *Registry) All() []Detector {
	out := make([]Detector, len(r.detectors))
	copy(out, r.detectors)
	return out
}
