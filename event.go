package eavesdrop

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// EventKey is the reserved key naming the event in mapping payloads.
const EventKey = "event"

// Fields is the mapping payload form. Mapping-form events carry their name
// under EventKey.
type Fields map[string]any

// Listener receives events published to the scope it was registered on.
type Listener func(ctx context.Context, evt Event) error

// Eavesdropper observes every publication of an event regardless of scope.
// origin is the publisher the event went through, or nil when it was
// published globally.
type Eavesdropper func(ctx context.Context, evt Event, origin *Publisher) error

// Event is the normalized payload handed to callbacks. It pairs the
// resolved identifier with the published value: the schema instance for
// schema events, the Fields mapping for name and mapping publications, or
// nil for bare-ID signals.
type Event struct {
	id     ID
	value  any
	fields Fields
}

// ID returns the event's identifier.
func (e Event) ID() ID { return e.id }

// Name returns the event's display name.
func (e Event) Name() string { return e.id.Name() }

// Value returns the published payload.
func (e Event) Value() any { return e.value }

// Fields returns the mapping payload, or nil for schema and signal events.
func (e Event) Fields() Fields { return e.fields }

// Field looks up a payload field by name. Mapping events resolve keys
// directly; schema events resolve exported struct fields by json tag,
// exact name, or case-insensitive name.
func (e Event) Field(key string) (any, bool) {
	if e.fields != nil {
		v, ok := e.fields[key]
		return v, ok
	}
	return structField(e.value, key)
}

func structField(v any, key string) (any, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			if comma := strings.IndexByte(tag, ','); comma >= 0 {
				tag = tag[:comma]
			}
			if tag != "" && tag != "-" {
				name = tag
			}
		}
		if name == key || strings.EqualFold(f.Name, key) {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// normalize resolves one of the accepted publish forms into an Event:
// a normalized Event, a value implementing Identifier, a name string with
// optional extra fields, a raw mapping carrying EventKey, or a bare ID.
// Extra fields are only meaningful together with a name.
func normalize(event any, extra []Fields) (Event, error) {
	var fields Fields
	switch len(extra) {
	case 0:
	case 1:
		fields = extra[0]
	default:
		fields = make(Fields)
		for _, f := range extra {
			for k, v := range f {
				fields[k] = v
			}
		}
	}

	if _, isName := event.(string); fields != nil && !isName {
		return Event{}, fmt.Errorf("%w: extra fields require an event name, got %T", ErrInvalidEvent, event)
	}

	switch v := event.(type) {
	case string:
		if v == "" {
			return Event{}, fmt.Errorf("%w: empty event name", ErrInvalidEvent)
		}
		payload := make(Fields, len(fields)+1)
		for k, val := range fields {
			payload[k] = val
		}
		// The explicit name wins over a caller-supplied reserved key.
		payload[EventKey] = v
		return Event{id: NameID(v), value: payload, fields: payload}, nil
	case Event:
		if v.id.IsZero() {
			return Event{}, fmt.Errorf("%w: event carries no identifier", ErrInvalidEvent)
		}
		return v, nil
	case Identifier:
		id := v.EventID()
		if id.IsZero() {
			return Event{}, fmt.Errorf("%w: %T reports a zero identifier", ErrInvalidEvent, event)
		}
		return Event{id: id, value: event}, nil
	case Fields:
		return normalizeMapping(v)
	case map[string]any:
		return normalizeMapping(Fields(v))
	case ID:
		if v.IsZero() {
			return Event{}, fmt.Errorf("%w: zero identifier", ErrInvalidEvent)
		}
		return Event{id: v}, nil
	default:
		return Event{}, fmt.Errorf("%w: cannot publish %T", ErrInvalidEvent, event)
	}
}

// normalizeMapping validates the reserved key and delivers the mapping
// unchanged.
func normalizeMapping(m Fields) (Event, error) {
	raw, ok := m[EventKey]
	if !ok {
		return Event{}, fmt.Errorf("%w: mapping payload has no %q key", ErrInvalidEvent, EventKey)
	}
	name, ok := raw.(string)
	if !ok || name == "" {
		return Event{}, fmt.Errorf("%w: %q key must be a non-empty string", ErrInvalidEvent, EventKey)
	}
	return Event{id: NameID(name), value: m, fields: m}, nil
}

// resolveSelector resolves the event argument accepted by the Listen and
// Eavesdrop variants: a name string, an ID, any Identifier, a normalized
// Event, or a mapping carrying EventKey.
func resolveSelector(event any) (ID, error) {
	switch v := event.(type) {
	case string:
		if v == "" {
			return ID{}, fmt.Errorf("%w: empty event name", ErrInvalidEvent)
		}
		return NameID(v), nil
	case ID:
		if v.IsZero() {
			return ID{}, fmt.Errorf("%w: zero identifier", ErrInvalidEvent)
		}
		return v, nil
	case Event:
		if v.id.IsZero() {
			return ID{}, fmt.Errorf("%w: event carries no identifier", ErrInvalidEvent)
		}
		return v.id, nil
	case Identifier:
		id := v.EventID()
		if id.IsZero() {
			return ID{}, fmt.Errorf("%w: %T reports a zero identifier", ErrInvalidEvent, event)
		}
		return id, nil
	case Fields:
		evt, err := normalizeMapping(v)
		return evt.id, err
	case map[string]any:
		evt, err := normalizeMapping(Fields(v))
		return evt.id, err
	default:
		return ID{}, fmt.Errorf("%w: cannot resolve %T to an event", ErrInvalidEvent, event)
	}
}
