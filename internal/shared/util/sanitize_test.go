package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"resume.pdf", "resume.pdf"},
		{"  cv final.docx ", "cv final.docx"},
		{"a/b\\c.pdf", "a_b_c.pdf"},
		{"tab\there.pdf", "tabhere.pdf"},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileNameRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "../etc/passwd", "\x00\x01"} {
		if _, err := SanitizeFileName(in); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("SanitizeFileName(%q) err = %v, want ErrInvalidFileName", in, err)
		}
	}
}

func TestSanitizeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("x", 300) + ".docx")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if len(got) != maxFileNameLen {
		t.Fatalf("expected %d chars, got %d", maxFileNameLen, len(got))
	}
	if !strings.HasSuffix(got, ".docx") {
		t.Fatalf("expected extension kept, got %q", got)
	}
}

func TestFileExtension(t *testing.T) {
	cases := map[string]string{
		"resume.PDF":     "pdf",
		"cv.final.docx ": "docx",
		"noext":          "",
	}
	for in, want := range cases {
		if got := FileExtension(in); got != want {
			t.Fatalf("FileExtension(%q) = %q, want %q", in, got, want)
		}
	}
}
