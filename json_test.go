package eavesdrop

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tidwall/gjson"
)

func TestRegistry_PublishJSON(t *testing.T) {
	reg := NewRegistry()

	var got Event
	if _, err := reg.Listen("greet", func(ctx context.Context, evt Event) error {
		got = evt
		return nil
	}); err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}

	doc := []byte(`{"event":"greet","msg":"hi","n":2}`)
	if err := reg.PublishJSON(context.Background(), doc); err != nil {
		t.Fatalf("PublishJSON() failed: %v", err)
	}

	if got.ID() != NameID("greet") {
		t.Errorf("expected NameID(greet), got %v", got.ID())
	}
	if v, _ := got.Field("msg"); v != "hi" {
		t.Errorf("Field(msg) = %v", v)
	}
	// JSON numbers arrive as float64.
	if v, _ := got.Field("n"); v != float64(2) {
		t.Errorf("Field(n) = %v (%T)", v, v)
	}
}

func TestRegistry_PublishJSON_Invalid(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	cases := []struct {
		name string
		doc  string
	}{
		{"missing reserved key", `{"msg":"hi"}`},
		{"non-string reserved key", `{"event":42}`},
		{"array", `[1,2]`},
		{"scalar", `"greet"`},
		{"malformed", `{"event":`},
	}
	for _, tc := range cases {
		if err := reg.PublishJSON(ctx, []byte(tc.doc)); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("%s: expected ErrInvalidEvent, got %v", tc.name, err)
		}
	}
}

func TestPublisher_PublishJSON(t *testing.T) {
	reg := NewRegistry()
	pub := reg.NewPublisher("feed")

	var gotOrigin string
	if _, err := reg.Eavesdrop("greet", func(ctx context.Context, evt Event, origin *Publisher) error {
		gotOrigin = origin.Name()
		return nil
	}); err != nil {
		t.Fatalf("Eavesdrop() failed: %v", err)
	}

	if err := pub.PublishJSON(context.Background(), []byte(`{"event":"greet"}`)); err != nil {
		t.Fatalf("PublishJSON() failed: %v", err)
	}
	if gotOrigin != "feed" {
		t.Errorf("expected origin 'feed', got %q", gotOrigin)
	}
}

func TestEvent_MarshalJSON_Mapping(t *testing.T) {
	evt, err := normalize("greet", []Fields{{"msg": "hi", "n": 2}})
	if err != nil {
		t.Fatalf("normalize() failed: %v", err)
	}

	doc, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	parsed := gjson.ParseBytes(doc)
	if got := parsed.Get("event").String(); got != "greet" {
		t.Errorf("event = %q, doc %s", got, doc)
	}
	if got := parsed.Get("msg").String(); got != "hi" {
		t.Errorf("msg = %q, doc %s", got, doc)
	}
	if got := parsed.Get("n").Int(); got != 2 {
		t.Errorf("n = %d, doc %s", got, doc)
	}
}

func TestEvent_MarshalJSON_Schema(t *testing.T) {
	schema := Define[pinged]()
	doc, err := json.Marshal(schema.New(pinged{Count: 7}))
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	parsed := gjson.ParseBytes(doc)
	if got := parsed.Get("event").String(); got != "pinged" {
		t.Errorf("event = %q, doc %s", got, doc)
	}
	if got := parsed.Get("Count").Int(); got != 7 {
		t.Errorf("Count = %d, doc %s", got, doc)
	}
}

func TestEvent_MarshalJSON_NonObjectPayload(t *testing.T) {
	doc, err := json.Marshal(Event{id: NameID("n"), value: 42})
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	parsed := gjson.ParseBytes(doc)
	if got := parsed.Get("event").String(); got != "n" {
		t.Errorf("event = %q, doc %s", got, doc)
	}
	if got := parsed.Get("value").Int(); got != 42 {
		t.Errorf("value = %d, doc %s", got, doc)
	}
}

func TestEvent_MarshalJSON_Signal(t *testing.T) {
	doc, err := json.Marshal(Event{id: NameID("ping")})
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if string(doc) != `{"event":"ping"}` {
		t.Errorf("doc = %s", doc)
	}
}

func TestEvent_MarshalJSON_EscapedKeys(t *testing.T) {
	evt, err := normalize("stat", []Fields{{"user.name": "ann", "hit*rate": 0.5}})
	if err != nil {
		t.Fatalf("normalize() failed: %v", err)
	}

	doc, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	// Field names with path syntax must come out as literal keys.
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if m["user.name"] != "ann" {
		t.Errorf("user.name = %v, doc %s", m["user.name"], doc)
	}
	if m["hit*rate"] != 0.5 {
		t.Errorf("hit*rate = %v, doc %s", m["hit*rate"], doc)
	}
}

func TestEvent_MarshalJSON_RoundTrip(t *testing.T) {
	reg := NewRegistry()

	evt, err := normalize("greet", []Fields{{"msg": "hi"}})
	if err != nil {
		t.Fatalf("normalize() failed: %v", err)
	}
	doc, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var got Event
	if _, err := reg.Listen("greet", func(ctx context.Context, evt Event) error {
		got = evt
		return nil
	}); err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	if err := reg.PublishJSON(context.Background(), doc); err != nil {
		t.Fatalf("PublishJSON() failed: %v", err)
	}

	if got.ID() != evt.ID() {
		t.Errorf("round trip changed the ID: %v vs %v", got.ID(), evt.ID())
	}
	if v, _ := got.Field("msg"); v != "hi" {
		t.Errorf("round trip lost msg: %v", v)
	}
}
