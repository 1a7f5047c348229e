package script

import (
	"context"
	"strings"
	"testing"

	"github.com/dshills/eavesdrop"
)

func TestEngine_ListenAndPublish(t *testing.T) {
	eng := New(eavesdrop.NewRegistry())
	defer eng.Close()

	err := eng.RunString(`
		local got = nil
		events.listen("greet", function(evt) got = evt.msg end)
		events.publish("greet", { msg = "hello" })
		assert(got == "hello", "expected hello, got " .. tostring(got))
	`)
	if err != nil {
		t.Fatalf("RunString() failed: %v", err)
	}
}

func TestEngine_GoPublishReachesScript(t *testing.T) {
	reg := eavesdrop.NewRegistry()
	eng := New(reg)
	defer eng.Close()

	if err := eng.RunString(`
		got_msg = nil
		got_n = nil
		events.listen("greet", function(evt)
			got_msg = evt.msg
			got_n = evt.n
		end)
	`); err != nil {
		t.Fatalf("RunString() failed: %v", err)
	}

	if err := reg.Publish(context.Background(), "greet", eavesdrop.Fields{"msg": "from go", "n": 3}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	if err := eng.RunString(`
		assert(got_msg == "from go", "msg was " .. tostring(got_msg))
		assert(got_n == 3, "n was " .. tostring(got_n))
	`); err != nil {
		t.Fatalf("assertion failed: %v", err)
	}
}

func TestEngine_ListenOnce(t *testing.T) {
	eng := New(eavesdrop.NewRegistry())
	defer eng.Close()

	err := eng.RunString(`
		local calls = 0
		events.listen_once("ping", function(evt) calls = calls + 1 end)
		events.publish("ping")
		events.publish("ping")
		assert(calls == 1, "expected 1 call, got " .. calls)
	`)
	if err != nil {
		t.Fatalf("RunString() failed: %v", err)
	}
}

func TestEngine_StopListening(t *testing.T) {
	eng := New(eavesdrop.NewRegistry())
	defer eng.Close()

	err := eng.RunString(`
		local calls = 0
		local h = events.listen("tick", function(evt) calls = calls + 1 end)
		events.publish("tick")
		h:stop_listening()
		h:stop_listening()
		events.publish("tick")
		assert(calls == 1, "expected 1 call, got " .. calls)
	`)
	if err != nil {
		t.Fatalf("RunString() failed: %v", err)
	}
}

func TestEngine_EavesdropOrigin(t *testing.T) {
	reg := eavesdrop.NewRegistry()
	eng := New(reg, WithPublisher(reg.NewPublisher("script")))
	defer eng.Close()

	if err := eng.RunString(`
		origins = {}
		events.eavesdrop("tick", function(evt, origin)
			origins[#origins + 1] = origin or "global"
		end)
		events.publish("tick")
	`); err != nil {
		t.Fatalf("RunString() failed: %v", err)
	}

	// A global publish from Go reports no origin.
	if err := reg.Publish(context.Background(), "tick"); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	if err := eng.RunString(`
		assert(#origins == 2, "expected 2 taps, got " .. #origins)
		assert(origins[1] == "script", "first origin was " .. origins[1])
		assert(origins[2] == "global", "second origin was " .. origins[2])
	`); err != nil {
		t.Fatalf("assertion failed: %v", err)
	}
}

func TestEngine_PublishErrorPropagates(t *testing.T) {
	reg := eavesdrop.NewRegistry()
	eng := New(reg)
	defer eng.Close()

	if _, err := reg.Listen("fail", func(ctx context.Context, evt eavesdrop.Event) error {
		return context.DeadlineExceeded
	}); err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}

	err := eng.RunString(`events.publish("fail")`)
	if err == nil {
		t.Fatal("expected the listener failure to raise")
	}
	if !strings.Contains(err.Error(), "deadline") {
		t.Errorf("expected the cause in the message, got %v", err)
	}
}

func TestEngine_SignalEventTable(t *testing.T) {
	reg := eavesdrop.NewRegistry()
	eng := New(reg)
	defer eng.Close()

	if err := eng.RunString(`
		got = nil
		events.listen("ping", function(evt) got = evt.event end)
	`); err != nil {
		t.Fatalf("RunString() failed: %v", err)
	}

	// A bare-ID signal still shows the script its event name.
	if err := reg.Publish(context.Background(), eavesdrop.NameID("ping")); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	if err := eng.RunString(`assert(got == "ping", "got " .. tostring(got))`); err != nil {
		t.Fatalf("assertion failed: %v", err)
	}
}

func TestEngine_TableConversion(t *testing.T) {
	reg := eavesdrop.NewRegistry()
	eng := New(reg)
	defer eng.Close()

	var got eavesdrop.Event
	if _, err := reg.Listen("data", func(ctx context.Context, evt eavesdrop.Event) error {
		got = evt
		return nil
	}); err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}

	if err := eng.RunString(`
		events.publish("data", {
			list = { 1, 2, 3 },
			user = { name = "ann" },
			flag = true,
		})
	`); err != nil {
		t.Fatalf("RunString() failed: %v", err)
	}

	list, ok := got.Fields()["list"].([]any)
	if !ok || len(list) != 3 || list[0] != float64(1) || list[2] != float64(3) {
		t.Errorf("list = %#v", got.Fields()["list"])
	}
	user, ok := got.Fields()["user"].(map[string]any)
	if !ok || user["name"] != "ann" {
		t.Errorf("user = %#v", got.Fields()["user"])
	}
	if got.Fields()["flag"] != true {
		t.Errorf("flag = %#v", got.Fields()["flag"])
	}
}

func TestEngine_RunFile(t *testing.T) {
	eng := New(eavesdrop.NewRegistry())
	defer eng.Close()

	if err := eng.RunFile("testdata/greet.lua"); err != nil {
		t.Fatalf("RunFile() failed: %v", err)
	}
}

func TestEngine_CloseStopsCallbacks(t *testing.T) {
	reg := eavesdrop.NewRegistry()
	eng := New(reg)

	if err := eng.RunString(`events.listen("tick", function(evt) end)`); err != nil {
		t.Fatalf("RunString() failed: %v", err)
	}

	eng.Close()
	eng.Close() // idempotent

	// The engine's registrations are gone; publishing is safe.
	if err := reg.Publish(context.Background(), "tick"); err != nil {
		t.Fatalf("Publish() after Close failed: %v", err)
	}
	if got := reg.Stats().Listeners; got != 0 {
		t.Errorf("expected no listeners after Close, got %d", got)
	}
}
