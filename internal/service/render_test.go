package service

import (
	"testing"
	"time"
)

func TestSanitizeContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello world", "hello world"},
		{"script stripped", `before<script>alert(1)</script>after`, "beforeafter"},
		{"iframe stripped", `x<iframe src="evil"></iframe>y`, "xy"},
		{"javascript uri stripped", `<a href="javascript:doEvil()">x</a>`, `<a href="doEvil()">x</a>`},
		{"event handler stripped", `<img onerror=alert(1) src=x>`, `<img alert(1) src=x>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeContent(tt.in); got != tt.want {
				t.Errorf("sanitizeContent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**hi**", "<strong>hi</strong>"},
		{"emphasis", "*hi*", "<em>hi</em>"},
		{"code", "`x := 1`", "<code>x := 1</code>"},
		{"newline", "a\nb", "a<br>b"},
		{"mixed", "say **hi**\nto *them*", "say <strong>hi</strong><br>to <em>them</em>"},
		{"script never renders", "<script>x</script>**b**", "<strong>b</strong>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderContent(tt.in); got != tt.want {
				t.Errorf("renderContent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDisplayTime(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if got := formatDisplayTime(at, 0); got != "2026-05-01 12:00" {
		t.Errorf("offset 0: got %q", got)
	}
	if got := formatDisplayTime(at, 120); got != "2026-05-01 14:00" {
		t.Errorf("offset +120: got %q", got)
	}
	if got := formatDisplayTime(at, -300); got != "2026-05-01 07:00" {
		t.Errorf("offset -300: got %q", got)
	}
}
