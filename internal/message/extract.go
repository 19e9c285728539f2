package message

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/chatmark/internal/dom"
)

// DefaultDeny is the chrome stripped from every message before reading text.
var DefaultDeny = []string{
	"button",
	`[role="button"]`,
	".toolbar",
	".actions",
	".copy-button",
	".edit-button",
}

// DefaultImageSelector matches generated-image containers.
const DefaultImageSelector = "generated-image"

// Extractor reads the visible text of a message element.
type Extractor struct {
	// Deny lists subtrees removed before reading text.
	Deny []string
	// Images matches embedded generated images. They are removed from the text
	// and counted into an image marker. Empty disables the marker.
	Images string
}

// DefaultExtractor strips DefaultDeny and annotates generated images.
func DefaultExtractor() Extractor {
	return Extractor{Deny: DefaultDeny, Images: DefaultImageSelector}
}

// With returns a copy of the extractor with extra deny selectors.
func (x Extractor) With(deny ...string) Extractor {
	all := make([]string, 0, len(x.Deny)+len(deny))
	all = append(all, x.Deny...)
	all = append(all, deny...)
	x.Deny = all
	return x
}

// Extract returns the trimmed text of el with UI chrome removed. It works on a
// clone; the live element is never modified. Turns with generated images get
// "[图片]" or "[图片 x N]" on its own line after the text.
func (x Extractor) Extract(el *dom.Element) string {
	clone := el.Clone()
	for _, sel := range x.Deny {
		clone.Remove(sel)
	}

	images := 0
	if x.Images != "" {
		images = el.Count(x.Images)
		clone.Remove(x.Images)
	}

	text := strings.TrimSpace(clone.Text())
	if images == 0 {
		return text
	}

	marker := "[图片]"
	if images > 1 {
		marker = fmt.Sprintf("[图片 x %d]", images)
	}
	if text == "" {
		return marker
	}
	return text + "\n" + marker
}
