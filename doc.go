// Package eavesdrop is a tiny synchronous in-process event registry.
//
// Events are identified by plain names or by declared schemas, listeners
// are callbacks attached to an identifier, and publishing walks the
// registered callbacks inline on the caller's goroutine. Publishers add
// scoping: listeners on a Publisher receive only what that publisher
// emits, while eavesdroppers observe every publication in the process
// along with its origin.
//
// The package-level functions operate on a single process-wide registry.
// Construct a Registry directly when a component needs isolation.
package eavesdrop
