package eavesdrop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PublishJSON publishes a raw JSON document as a mapping-form event on the
// global scope. The document must be a JSON object carrying the reserved
// key; its members become the event's fields.
func (r *Registry) PublishJSON(ctx context.Context, doc []byte) error {
	evt, err := parseJSON(doc)
	if err != nil {
		return err
	}
	return r.dispatch(ctx, evt, nil)
}

// PublishJSON publishes a raw JSON document through this publisher's scope.
func (p *Publisher) PublishJSON(ctx context.Context, doc []byte) error {
	evt, err := parseJSON(doc)
	if err != nil {
		return err
	}
	return p.reg.dispatch(ctx, evt, p)
}

func parseJSON(doc []byte) (Event, error) {
	if !gjson.ValidBytes(doc) {
		return Event{}, fmt.Errorf("%w: malformed json", ErrInvalidEvent)
	}
	parsed := gjson.ParseBytes(doc)
	if !parsed.IsObject() {
		return Event{}, fmt.Errorf("%w: json payload must be an object", ErrInvalidEvent)
	}
	fields := make(Fields)
	parsed.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value.Value()
		return true
	})
	return normalizeMapping(fields)
}

// MarshalJSON renders the normalized payload as a JSON object with the
// reserved key always present, so a marshaled event round-trips through
// PublishJSON.
func (e Event) MarshalJSON() ([]byte, error) {
	doc := []byte("{}")
	var err error

	switch {
	case e.fields != nil:
		for k, v := range e.fields {
			if k == EventKey {
				continue
			}
			if doc, err = sjson.SetBytes(doc, escapeKey(k), v); err != nil {
				return nil, err
			}
		}
	case e.value != nil:
		if doc, err = json.Marshal(e.value); err != nil {
			return nil, err
		}
		if !gjson.ParseBytes(doc).IsObject() {
			// Non-object payloads are carried under a "value" member.
			if doc, err = sjson.SetBytes([]byte("{}"), "value", e.value); err != nil {
				return nil, err
			}
		}
	}

	return sjson.SetBytes(doc, EventKey, e.Name())
}

// escapeKey quotes sjson path syntax so field names map to top-level keys.
func escapeKey(k string) string {
	if !strings.ContainsAny(k, `.*?|#@\`) {
		return k
	}
	var sb strings.Builder
	for _, r := range k {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
