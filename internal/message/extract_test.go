package message

import "testing"

func TestExtract_ImageAnnotation(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"two images no text", `<div class="m"><generated-image><img src="a"></generated-image><generated-image><img src="b"></generated-image></div>`, "[图片 x 2]"},
		{"one image with text", `<div class="m">Here you go<generated-image><img src="a"></generated-image></div>`, "Here you go\n[图片]"},
		{"no images", `<div class="m">plain</div>`, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, el := firstEl(t, "<body>"+tt.markup+"</body>", ".m")
			if got := DefaultExtractor().Extract(el); got != tt.want {
				t.Errorf("Extract = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_DenyList(t *testing.T) {
	_, el := firstEl(t, `<body><div class="m">Body<span role="button">x</span><div class="actions">Like</div><div class="copy-button">Copy</div><div class="edit-button">Edit</div></div></body>`, ".m")
	if got := DefaultExtractor().Extract(el); got != "Body" {
		t.Errorf("Extract = %q", got)
	}
}

func TestExtract_WithExtraDeny(t *testing.T) {
	_, el := firstEl(t, `<body><div class="m">Text<message-actions>thumbs</message-actions></div></body>`, ".m")
	x := DefaultExtractor().With("message-actions")
	if got := x.Extract(el); got != "Text" {
		t.Errorf("Extract = %q", got)
	}
	if len(DefaultExtractor().Deny) != len(DefaultDeny) {
		t.Error("With must not modify the receiver's deny list")
	}
}
