package service

import (
	"errors"
	"testing"
)

func TestNormalizeSlug(t *testing.T) {
	cases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "about", want: "about"},
		{input: " Web-Design ", want: "web-design"},
		{input: "with space", wantErr: true},
		{input: "-leading", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := NormalizeSlug(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrSlugInvalid) {
				t.Fatalf("NormalizeSlug(%q) expected ErrSlugInvalid, got %v", tc.input, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("NormalizeSlug(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	if got := Slugify("  Hello, World! 2026 "); got != "hello-world-2026" {
		t.Fatalf("unexpected slug %q", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got, err := NormalizeEmail(" Jane@Example.com "); err != nil || got != "jane@example.com" {
		t.Fatalf("unexpected result %q %v", got, err)
	}
	for _, raw := range []string{"", "not-an-email", "Jane <jane@example.com>"} {
		if _, err := NormalizeEmail(raw); !errors.Is(err, ErrEmailInvalid) {
			t.Fatalf("expected ErrEmailInvalid for %q, got %v", raw, err)
		}
	}
}

func TestSummarizeTextTruncates(t *testing.T) {
	got := summarizeText("# Title\n\nsome *body* text", 9)
	if got != "Title som…" {
		t.Fatalf("unexpected summary %q", got)
	}
}
