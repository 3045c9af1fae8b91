package key

import "testing"

func TestNormalizeInputVerbatim(t *testing.T) {
	// Recording mode: text passes through untouched, control
	// characters included.
	in := "a<b\x01\r"
	if got := NormalizeInput(in, false); got != in {
		t.Errorf("NormalizeInput(verbatim) = %q, want %q", got, in)
	}
}

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"less than", "a<b", "a<lt>b"},
		{"escape", "\x1b", "<Esc>"},
		{"carriage return", "\r", "<CR>"},
		{"newline", "\n", "<NL>"},
		{"tab", "\t", "<Tab>"},
		{"backspace", "\x08", "<BS>"},
		{"delete", "\x7f", "<Del>"},
		{"ctrl letter", "\x17", "<C-w>"},
		{"ctrl backslash", "\x1c", "<C-\\>"},
		{"mixed", "x\x01<", "x<C-a><lt>"},
		{"unicode", "héllo", "héllo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeInput(tt.in, true); got != tt.want {
				t.Errorf("NormalizeInput(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNeedsNormalization(t *testing.T) {
	if NeedsNormalization("plain text") {
		t.Error("plain text should not need normalization")
	}
	if !NeedsNormalization("a<b") {
		t.Error("text with < should need normalization")
	}
	if !NeedsNormalization("a\x01") {
		t.Error("text with control char should need normalization")
	}
}
