package utils

import (
	"testing"
	"time"
)

func TestStateCacheRoundTrip(t *testing.T) {
	t.Parallel()
	c := NewStateCache(time.Hour)

	if _, ok := c.GetState("missing"); ok {
		t.Fatal("unexpected hit for unknown key")
	}

	c.SetState("inverter_input_power", "4650")
	v, ok := c.GetState("inverter_input_power")
	if !ok || v != "4650" {
		t.Fatalf("GetState = %q, %v", v, ok)
	}

	c.SetState("inverter_input_power", "4700")
	if v, _ := c.GetState("inverter_input_power"); v != "4700" {
		t.Fatalf("GetState after overwrite = %q", v)
	}
}

func TestStateCacheExpiry(t *testing.T) {
	t.Parallel()
	c := NewStateCache(time.Millisecond)
	c.SetState("k", "v")
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.GetState("k"); ok {
		t.Fatal("entry should have expired")
	}
}
