package eavesdrop

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry is the dispatch core. It owns the global listener table, the
// process-wide eavesdropper table, and the dispatch statistics. A Registry
// is safe for concurrent use.
//
// Most programs use the package-level default registry through the
// top-level functions; construct separate registries for isolation in
// tests or embedded subsystems.
type Registry struct {
	id     uuid.UUID
	global *table[Listener]
	taps   *table[Eavesdropper]
	log    *zap.Logger

	panicHandler PanicHandler

	published atomic.Uint64
	delivered atomic.Uint64
	failures  atomic.Uint64
	panics    atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		id:           uuid.New(),
		global:       newTable[Listener]("listener", cfg.logger),
		taps:         newTable[Eavesdropper]("eavesdropper", cfg.logger),
		log:          cfg.logger,
		panicHandler: cfg.panicHandler,
	}
}

// Listen registers fn for event on the global scope. The event selector
// may be a name string, an ID, a *Type, or any Identifier.
func (r *Registry) Listen(event any, fn Listener) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return listen(r.global, event, fn, false)
}

// ListenOnce registers fn like Listen, but the registration is removed
// after its first successful invocation.
func (r *Registry) ListenOnce(event any, fn Listener) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return listen(r.global, event, fn, true)
}

// Eavesdrop registers fn to observe every publication of event across all
// scopes. Eavesdroppers run after the scoped listeners and receive the
// publisher the event went through, or nil for global publications.
func (r *Registry) Eavesdrop(event any, fn Eavesdropper) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return listen(r.taps, event, fn, false)
}

// EavesdropOnce registers fn like Eavesdrop, but the registration is
// removed after its first successful invocation.
func (r *Registry) EavesdropOnce(event any, fn Eavesdropper) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return listen(r.taps, event, fn, true)
}

// listen resolves the selector and adds fn to tbl.
func listen[F any](tbl *table[F], event any, fn F, once bool) (*Handle, error) {
	id, err := resolveSelector(event)
	if err != nil {
		return nil, err
	}
	entryID := tbl.add(id, fn, once)
	return &Handle{event: id, entry: entryID, tbl: tbl}, nil
}

// Publish normalizes event and dispatches it on the global scope, global
// listeners first, then eavesdroppers. The variadic fields are only valid
// together with a name string; see Publisher.Publish for scoped dispatch.
//
// Dispatch runs synchronously on the calling goroutine and stops at the
// first callback failure, which is returned wrapped in a *ListenerError.
func (r *Registry) Publish(ctx context.Context, event any, fields ...Fields) error {
	evt, err := normalize(event, fields)
	if err != nil {
		return err
	}
	return r.dispatch(ctx, evt, nil)
}

// NewPublisher creates a publisher with its own listener scope. The name
// labels the publisher in logs and errors; it need not be unique.
func (r *Registry) NewPublisher(name string) *Publisher {
	p := &Publisher{
		reg:   r,
		id:    uuid.New(),
		name:  name,
		table: newTable[Listener]("listener", r.log),
	}
	r.log.Debug("publisher created",
		zap.String("name", name),
		zap.Stringer("id", p.id))
	return p
}

// Events returns the identifiers that currently have global listeners.
func (r *Registry) Events() []ID {
	return r.global.events()
}

// Stats returns a snapshot of dispatch counters. The listener count covers
// the global scope only; each Publisher reports its own.
func (r *Registry) Stats() Stats {
	return Stats{
		Published:     r.published.Load(),
		Delivered:     r.delivered.Load(),
		Failures:      r.failures.Load(),
		Panics:        r.panics.Load(),
		Listeners:     r.global.count(),
		Eavesdroppers: r.taps.count(),
	}
}

// dispatch delivers evt to the scoped listener table and then to the
// process-wide eavesdroppers. origin is nil for the global scope. Both
// passes run on snapshots, so table changes made by callbacks apply to
// later publications, never to the pass in progress.
func (r *Registry) dispatch(ctx context.Context, evt Event, origin *Publisher) error {
	scope := r.global
	scopeName := ""
	if origin != nil {
		scope = origin.table
		scopeName = origin.name
	}

	r.published.Add(1)
	r.log.Debug("dispatching",
		zap.Stringer("event", evt.ID()),
		zap.String("origin", scopeName))

	for _, ent := range scope.snapshot(evt.ID()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ent.claim() {
			continue
		}
		if err := r.invoke(ctx, evt, func(c context.Context) error {
			return ent.fn(c, evt)
		}); err != nil {
			ent.release()
			return &ListenerError{Event: evt.ID(), Origin: scopeName, Err: err}
		}
		r.delivered.Add(1)
		if ent.once {
			scope.remove(evt.ID(), ent.id)
		}
	}

	for _, ent := range r.taps.snapshot(evt.ID()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ent.claim() {
			continue
		}
		if err := r.invoke(ctx, evt, func(c context.Context) error {
			return ent.fn(c, evt, origin)
		}); err != nil {
			ent.release()
			return &ListenerError{Event: evt.ID(), Origin: scopeName, Eavesdrop: true, Err: err}
		}
		r.delivered.Add(1)
		if ent.once {
			r.taps.remove(evt.ID(), ent.id)
		}
	}

	return nil
}

// invoke runs one callback with panic recovery.
func (r *Registry) invoke(ctx context.Context, evt Event, call func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			r.panics.Add(1)
			if r.panicHandler != nil {
				r.panicHandler(evt, rec, stack)
			}
			err = &PanicError{Event: evt.ID(), Value: rec, Stack: string(stack)}
		}
	}()

	if err := call(ctx); err != nil {
		if !errors.Is(err, ErrListenerPanic) {
			r.failures.Add(1)
		}
		return err
	}
	return nil
}
