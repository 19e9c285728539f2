package message

import (
	"github.com/MikeSquared-Agency/chatmark/internal/dom"
)

// Normalizer turns raw elements into Messages.
type Normalizer struct {
	Extractor Extractor
}

// NewNormalizer returns a normalizer using x.
func NewNormalizer(x Extractor) *Normalizer {
	return &Normalizer{Extractor: x}
}

// Parse normalizes the element found at position index of a scan. It returns
// false when the element has no content. An element already tagged with
// IDAttr keeps that id; otherwise the stable id is computed and written back
// so later lookups can query it directly.
func (n *Normalizer) Parse(el *dom.Element, role Role, site Site, pageURL string, index int) (Message, bool) {
	content := n.Extractor.Extract(el)
	if content == "" {
		return Message{}, false
	}

	id, ok := el.Attr(IDAttr)
	if !ok || id == "" {
		id = StableID(site, role, index, content)
		el.SetAttr(IDAttr, id)
	}

	return Message{
		ID:             id,
		Role:           role,
		Content:        content,
		Timestamp:      AtPosition(index),
		Site:           site,
		ConversationID: ConversationIDOrUnknown(pageURL),
		Element:        el,
	}, true
}

// FindElement looks a message element up by its stable id attribute.
func FindElement(doc *dom.Document, id string) *dom.Element {
	if id == "" {
		return nil
	}
	return doc.FindByAttr(IDAttr, id)
}
