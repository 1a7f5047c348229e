package eavesdrop

import (
	"context"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// schemaNamespace seeds the name-based UUIDs derived for declared schemas.
var schemaNamespace = uuid.MustParse("9f2c41a6-7d3b-4c27-9a5e-1b8460f1c3d2")

// ID identifies one event shape within the process.
//
// IDs come in two forms. Named IDs wrap a plain string, so equal names
// compare equal. Schema IDs carry a UUID derived from the declared payload
// type, so a schema never collides with a name or with a different schema.
// The zero ID identifies nothing.
type ID struct {
	name string
	uid  uuid.UUID
}

// NameID returns the identifier for a name-based event.
func NameID(name string) ID {
	return ID{name: name}
}

// Name returns the event's display name.
func (id ID) Name() string { return id.name }

// IsZero reports whether the ID identifies nothing.
func (id ID) IsZero() bool { return id == ID{} }

// String implements fmt.Stringer.
func (id ID) String() string {
	if id.uid == uuid.Nil {
		return id.name
	}
	return id.name + "#" + id.uid.String()[:8]
}

// Identifier is implemented by values that carry their own event identity.
// Publishing such a value dispatches it under the ID it reports.
type Identifier interface {
	EventID() ID
}

// Type describes a declared event schema with payload type T. Declare once
// at package level and share the descriptor:
//
//	type Pinged struct{ Count int }
//	var PingedEvent = eavesdrop.Define[Pinged]()
//
// The identifier is derived from T's package path, name, and exported field
// set, so repeated Define calls for the same T yield the same ID and
// distinct schemas never share one. Declaring a schema touches no registry
// state.
type Type[T any] struct {
	id ID
}

// Define declares the event schema for payload type T.
func Define[T any]() *Type[T] {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	return &Type[T]{id: ID{
		name: schemaName(rt),
		uid:  uuid.NewSHA1(schemaNamespace, []byte(schemaSignature(rt))),
	}}
}

// ID returns the schema's event identifier.
func (t *Type[T]) ID() ID { return t.id }

// Name returns the schema's declared name.
func (t *Type[T]) Name() string { return t.id.name }

// EventID implements Identifier, so a Type can be passed anywhere an event
// selector is expected.
func (t *Type[T]) EventID() ID { return t.id }

// New wraps a payload value as a normalized event of this schema.
func (t *Type[T]) New(v T) Event {
	return Event{id: t.id, value: v}
}

// Listener adapts a typed callback to the Listener signature. Payloads of a
// different shape are ignored rather than failing the dispatch.
func (t *Type[T]) Listener(fn func(context.Context, T) error) Listener {
	return func(ctx context.Context, evt Event) error {
		v, ok := evt.Value().(T)
		if !ok {
			return nil
		}
		return fn(ctx, v)
	}
}

func schemaName(rt reflect.Type) string {
	if name := rt.Name(); name != "" {
		return name
	}
	return rt.String()
}

// schemaSignature builds the deterministic descriptor hashed into a schema
// ID: package path, type name, and the exported field set.
func schemaSignature(rt reflect.Type) string {
	var sb strings.Builder
	sb.WriteString(rt.PkgPath())
	sb.WriteByte('.')
	sb.WriteString(schemaName(rt))
	if rt.Kind() == reflect.Struct {
		sb.WriteByte('{')
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			sb.WriteString(f.Name)
			sb.WriteByte(' ')
			sb.WriteString(f.Type.String())
			sb.WriteByte(';')
		}
		sb.WriteByte('}')
	}
	return sb.String()
}
