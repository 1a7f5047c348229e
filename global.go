package eavesdrop

import "context"

// std is the process-wide registry behind the package-level functions. It
// is created when the package loads and lives for the life of the process.
var std = NewRegistry()

// Default returns the package-level registry.
func Default() *Registry { return std }

// Publish dispatches event on the default registry's global scope.
func Publish(ctx context.Context, event any, fields ...Fields) error {
	return std.Publish(ctx, event, fields...)
}

// Listen registers fn on the default registry's global scope.
func Listen(event any, fn Listener) (*Handle, error) {
	return std.Listen(event, fn)
}

// ListenOnce registers a fire-once listener on the default registry's
// global scope.
func ListenOnce(event any, fn Listener) (*Handle, error) {
	return std.ListenOnce(event, fn)
}

// Eavesdrop registers a process-wide observer on the default registry.
func Eavesdrop(event any, fn Eavesdropper) (*Handle, error) {
	return std.Eavesdrop(event, fn)
}

// EavesdropOnce registers a fire-once observer on the default registry.
func EavesdropOnce(event any, fn Eavesdropper) (*Handle, error) {
	return std.EavesdropOnce(event, fn)
}

// NewPublisher creates a publisher scoped to the default registry.
func NewPublisher(name string) *Publisher {
	return std.NewPublisher(name)
}
