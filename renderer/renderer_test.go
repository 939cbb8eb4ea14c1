package renderer

import (
	"testing"

	"github.com/ByLCY/marginalia/errors"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"pdf": FormatPDF, " SVG ": FormatSVG, "Png": FormatPNG} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("gif"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Fatalf("expected INVALID_FORMAT, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{
		"out/note.svg": FormatSVG,
		"note.PNG":     FormatPNG,
		"note":         FormatPDF,
		"note.txt":     FormatPDF,
	}
	for path, want := range cases {
		if got := FormatFromPath(path, FormatPDF); got != want {
			t.Fatalf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
