package eavesdrop

import (
	"context"

	"github.com/google/uuid"
)

// Publisher is a named publishing scope. Listeners registered on a
// Publisher receive only events published through it, while process-wide
// eavesdroppers observe every scope. Publishers share nothing with each
// other beyond the registry's eavesdropper table; dropping a Publisher
// discards its listeners.
type Publisher struct {
	reg   *Registry
	id    uuid.UUID
	name  string
	table *table[Listener]
}

// Publish dispatches event on this publisher's scope: the publisher's
// listeners first, then the process-wide eavesdroppers with this publisher
// as origin. Input forms and failure behavior match Registry.Publish.
func (p *Publisher) Publish(ctx context.Context, event any, fields ...Fields) error {
	evt, err := normalize(event, fields)
	if err != nil {
		return err
	}
	return p.reg.dispatch(ctx, evt, p)
}

// Listen registers fn for event on this publisher's scope only.
func (p *Publisher) Listen(event any, fn Listener) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return listen(p.table, event, fn, false)
}

// ListenOnce registers fn like Listen, but the registration is removed
// after its first successful invocation.
func (p *Publisher) ListenOnce(event any, fn Listener) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return listen(p.table, event, fn, true)
}

// Name returns the publisher's label.
func (p *Publisher) Name() string { return p.name }

// ListenerCount returns the number of listeners on this publisher's scope.
func (p *Publisher) ListenerCount() int { return p.table.count() }

// String implements fmt.Stringer.
func (p *Publisher) String() string {
	if p.name != "" {
		return "publisher " + p.name
	}
	return "publisher " + p.id.String()[:8]
}
