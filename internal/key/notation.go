package key

import "strings"

// Notation for keys the bridge sends on behalf of commands.
const (
	// Escape is the mode-exit key in engine notation.
	Escape = "<Esc>"

	// CtrlO is the "execute one command, then return to insert" key.
	CtrlO = "<C-o>"
)

// specials maps control characters with conventional names to their
// engine notation. Everything else in the C0 range is rendered as <C-x>.
var specials = map[rune]string{
	'\x1b': "<Esc>",
	'\r':   "<CR>",
	'\n':   "<NL>",
	'\t':   "<Tab>",
	'\x00': "<Nul>",
	'\x08': "<BS>",
	'\x7f': "<Del>",
}

// NormalizeInput converts raw typed text into a key sequence the engine
// accepts. When escapeSpecial is false the text is returned verbatim;
// this is required while a macro is recording, since the engine must see
// the literal characters for later playback.
//
// With escapeSpecial true, a literal "<" becomes "<lt>" so the engine
// does not parse it as the start of a special key, and control
// characters collapse to <...> notation.
func NormalizeInput(text string, escapeSpecial bool) string {
	if !escapeSpecial || !NeedsNormalization(text) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '<':
			b.WriteString("<lt>")
		case isControl(r):
			b.WriteString(controlNotation(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NeedsNormalization reports whether text contains characters that
// NormalizeInput would rewrite.
func NeedsNormalization(text string) bool {
	return strings.ContainsFunc(text, func(r rune) bool {
		return r == '<' || isControl(r)
	})
}

// isControl reports whether r is a C0 control character or DEL.
func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// controlNotation renders a control character in engine notation.
func controlNotation(r rune) string {
	if s, ok := specials[r]; ok {
		return s
	}
	// A control character is its base key with bit 6 stripped; add the
	// bit back to recover the key. Letters render lowercase.
	if r >= 0x01 && r <= 0x1a {
		return "<C-" + string('a'+r-1) + ">"
	}
	return "<C-" + string(r+0x40) + ">"
}
