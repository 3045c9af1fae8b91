// Package config loads and validates keybridge configuration.
//
// Configuration lives in a single TOML file with three sections:
// [engine] describes how to spawn the external editing engine, [escape]
// tunes the composite escape chord, and [log] controls log output. A
// missing file yields the defaults. The Watcher reloads the file on
// change so chord keys and the recognition window can be retuned
// without restarting the bridge.
package config
