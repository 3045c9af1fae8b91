// Package host abstracts the text-editing UI the bridge sits in front
// of.
//
// The router acquires the UI's raw keystroke channel through an
// Interception handle: while one is held, every typed character reaches
// the interceptor instead of the UI's default insertion path. Releasing
// the handle restores default insertion. The package also ships a tcell
// terminal implementation used by cmd/keybridge.
package host
