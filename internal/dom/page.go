package dom

// Page is one tab: where it is and what it shows.
type Page struct {
	Window   *Window
	Document *Document
}

// NewPage builds a page from a URL and a serialized DOM.
func NewPage(rawURL, markup string) (*Page, error) {
	w, err := NewWindow(rawURL)
	if err != nil {
		return nil, err
	}
	d, err := NewDocument(markup)
	if err != nil {
		return nil, err
	}
	return &Page{Window: w, Document: d}, nil
}
