// Package command is the surface the host UI's command layer dispatches
// against.
//
// Components register named handlers; the host invokes them by name
// with loosely typed arguments. Registrations are disposable, and a
// Group disposes a set of related registrations together, which is how
// the router tears down its commands, its interception handle, and its
// mode subscription in one call.
package command
