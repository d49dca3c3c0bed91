package iri

import (
	"errors"
	"strings"
	"testing"
)

func TestToURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://example.com/path?q=1", "http://example.com/path?q=1"},
		{"http://пример.рф", "http://xn--e1afmkfd.xn--p1ai"},
		{"https://münchen.de:8080/", "https://xn--mnchen-3ya.de:8080/"},
		{"http://example.com/a b", "http://example.com/a%20b"},
		{"http://example.com/?q=ä", "http://example.com/?q=%C3%A4"},
		{"http://example.com/#часть", "http://example.com/#%D1%87%D0%B0%D1%81%D1%82%D1%8C"},
		{"  http://example.com/x  ", "http://example.com/x"},
		{"www.example.com", "www.example.com"},
	}
	for _, tt := range tests {
		got, err := ToURI(tt.in)
		if err != nil {
			t.Errorf("ToURI(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToURI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToURIPath(t *testing.T) {
	got, err := ToURI("http://пример.рф/путь")
	if err != nil {
		t.Fatalf("ToURI() error = %v", err)
	}
	if !strings.Contains(got, "xn--e1afmkfd.xn--p1ai") {
		t.Errorf("ToURI() = %q, want IDNA encoded host", got)
	}
	if !strings.HasSuffix(got, "/%D0%BF%D1%83%D1%82%D1%8C") {
		t.Errorf("ToURI() = %q, want percent-encoded path", got)
	}
}

func TestToURITruncatesAtWhitespace(t *testing.T) {
	got, err := ToURI("http://exa mple.com/x")
	if err != nil {
		t.Fatalf("ToURI() error = %v", err)
	}
	if got != "http://exa" {
		t.Errorf("ToURI() = %q, want http://exa", got)
	}
}

func TestToURIInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "http://[::1"} {
		if _, err := ToURI(in); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ToURI(%q) error = %v, want ErrInvalidURL", in, err)
		}
	}
}
