// Package key implements the engine's angle-bracket key notation.
//
// The bridge forwards raw text typed in the host UI to the modal engine,
// which expects key sequences in Vim-style notation ("<Esc>", "<C-w>",
// "<lt>"). Normalization collapses literal control characters into that
// notation. During macro recording the engine needs the literal text
// verbatim, so normalization is skipped.
package key
