package extract

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "A Heading", "A Heading"},
		{"leading and trailing space", "  A Heading \t", "A Heading"},
		{"line breaks collapse", "wrapped\nhighlight\r\ntext", "wrapped highlight text"},
		{"runs of spaces collapse", "too   many    spaces", "too many spaces"},
		{"html fragment", "<p>Rich <i>text</i> comment</p>", "Rich text comment"},
		{"nested markup", "<div><b>Bold</b> and <span>span</span></div>", "Bold and span"},
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
