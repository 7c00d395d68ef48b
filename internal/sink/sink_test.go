package sink

import (
	"encoding/json"
	"errors"
	"testing"

	"solar-monitor/internal/entity"
)

func TestAutoconfigPayload(t *testing.T) {
	t.Parallel()
	cfg := autoconfigFor(entity.State{
		EntityID:    "inverter_input_power",
		Name:        "Input power",
		DeviceID:    "inverter",
		Unit:        "W",
		DeviceClass: "power",
		StateClass:  "measurement",
	}, "solar_monitor/inverter_input_power")

	b, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(b, &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	want := map[string]string{
		"dev_cla":      "power",
		"unit_of_meas": "W",
		"name":         "Input power",
		"stat_t":       "solar_monitor/inverter_input_power",
		"avty_t":       "solar_monitor/inverter_input_power/available",
		"json_attr_t":  "solar_monitor/inverter_input_power/attributes",
		"uniq_id":      "inverter_input_power",
		"stat_cla":     "measurement",
	}
	for key, v := range want {
		if payload[key] != v {
			t.Errorf("%s = %v, want %q", key, payload[key], v)
		}
	}

	dev, ok := payload["dev"].(map[string]any)
	if !ok || dev["ids"] != "inverter" || dev["name"] != "inverter" {
		t.Fatalf("dev = %v", payload["dev"])
	}
}

func TestAutoconfigOmitsEmptyClasses(t *testing.T) {
	t.Parallel()
	cfg := autoconfigFor(entity.State{EntityID: "inverter_device_status", Name: "Device status", DeviceID: "inverter"}, "t")
	b, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(b, &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"dev_cla", "unit_of_meas", "stat_cla"} {
		if _, present := payload[key]; present {
			t.Errorf("%s should be omitted when empty", key)
		}
	}
}

func TestNumeric(t *testing.T) {
	t.Parallel()
	if v, ok := numeric(4650.0); !ok || v != 4650.0 {
		t.Errorf("numeric(float64) = %v, %v", v, ok)
	}
	if v, ok := numeric(7); !ok || v != 7.0 {
		t.Errorf("numeric(int) = %v, %v", v, ok)
	}
	if _, ok := numeric("On-grid"); ok {
		t.Error("strings are not numeric")
	}
	if _, ok := numeric(nil); ok {
		t.Error("nil is not numeric")
	}
}

type stubSink struct {
	calls int
	err   error
}

func (s *stubSink) Publish(entity.State) error {
	s.calls++
	return s.err
}

func TestMultiFansOutPastFailures(t *testing.T) {
	t.Parallel()
	failing := &stubSink{err: errors.New("broker down")}
	ok := &stubSink{}
	m := Multi{failing, ok}

	err := m.Publish(entity.State{EntityID: "e"})
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if failing.calls != 1 || ok.calls != 1 {
		t.Fatalf("calls = %d, %d; every sink must be attempted", failing.calls, ok.calls)
	}

	if err := (Multi{ok}).Publish(entity.State{EntityID: "e"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogSinkNeverFails(t *testing.T) {
	t.Parallel()
	var l Log
	if err := l.Publish(entity.State{EntityID: "e", Value: 1.0, Available: true}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := l.Publish(entity.State{EntityID: "e"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}
