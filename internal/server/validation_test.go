package server

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "w2.pdf", "w2.pdf"},
		{"path separators", "../etc/passwd", "_etc_passwd"},
		{"backslashes", `a\b.txt`, "a_b.txt"},
		{"null bytes", "a\x00b.txt", "ab.txt"},
		{"quotes", `he said "hi".txt`, "he said _hi_.txt"},
		{"leading dots", "..hidden", "hidden"},
		{"empty", "", "unnamed"},
		{"only dots and spaces", " .. ", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	long := strings.Repeat("a", 300)
	if got := SanitizeFilename(long); len(got) != 255 {
		t.Fatalf("expected 255 chars, got %d", len(got))
	}
}

func TestValidateFolderName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "Taxes", "Taxes", false},
		{"trimmed", "  Taxes  ", "Taxes", false},
		{"inner spaces kept", "Tax Documents", "Tax Documents", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"too long", strings.Repeat("x", 256), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateFolderName(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
