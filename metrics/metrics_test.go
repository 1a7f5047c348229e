package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/eavesdrop"
)

func TestCollector_Describe(t *testing.T) {
	c := NewCollector(eavesdrop.NewRegistry())

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	if n != 6 {
		t.Errorf("expected 6 descriptors, got %d", n)
	}
}

func TestCollector_Gather(t *testing.T) {
	reg := eavesdrop.NewRegistry()
	ctx := context.Background()

	ok := func(ctx context.Context, evt eavesdrop.Event) error { return nil }
	if _, err := reg.Listen("s", ok); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Listen("s", ok); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Listen("f", func(ctx context.Context, evt eavesdrop.Event) error {
		return errors.New("nope")
	}); err != nil {
		t.Fatal(err)
	}

	if err := reg.Publish(ctx, "s"); err != nil {
		t.Fatalf("Publish(s) failed: %v", err)
	}
	if err := reg.Publish(ctx, "f"); err == nil {
		t.Fatal("Publish(f) should fail")
	}

	promReg := prometheus.NewRegistry()
	if err := Register(promReg, reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	families, err := promReg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	got := map[string]float64{}
	for _, mf := range families {
		ms := mf.GetMetric()
		if len(ms) != 1 {
			t.Errorf("%s: expected 1 metric, got %d", mf.GetName(), len(ms))
			continue
		}
		if c := ms[0].GetCounter(); c != nil {
			got[mf.GetName()] = c.GetValue()
		} else if g := ms[0].GetGauge(); g != nil {
			got[mf.GetName()] = g.GetValue()
		}
	}

	want := map[string]float64{
		"eavesdrop_events_published_total":    2,
		"eavesdrop_callbacks_delivered_total": 2,
		"eavesdrop_callback_failures_total":   1,
		"eavesdrop_callback_panics_total":     0,
		"eavesdrop_listeners":                 3,
		"eavesdrop_eavesdroppers":             0,
	}
	for name, val := range want {
		if got[name] != val {
			t.Errorf("%s = %v, want %v", name, got[name], val)
		}
	}
	if len(got) != len(want) {
		t.Errorf("expected %d families, got %v", len(want), got)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	reg := eavesdrop.NewRegistry()
	promReg := prometheus.NewRegistry()

	if err := Register(promReg, reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := Register(promReg, reg); err == nil {
		t.Error("registering the same source twice must fail")
	}
}
