package entity

import (
	"testing"

	"solar-monitor/internal/registry"
)

func findEntity(t *testing.T, entities []*Entity, id string) *Entity {
	t.Helper()
	for _, e := range entities {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("entity %q not built", id)
	return nil
}

func TestBuildMinimalInstallation(t *testing.T) {
	t.Parallel()
	groups, err := Build(Capabilities{PVStringCount: 1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(groups[registry.Meter]) != 0 {
		t.Fatal("no meter entities expected without a meter")
	}
	if len(groups[registry.Storage]) != 0 || len(groups[registry.Configuration]) != 0 {
		t.Fatal("no storage entities expected without a battery")
	}
	if len(groups[registry.Optimizer]) != 0 {
		t.Fatal("no optimizer entities expected without optimizers")
	}

	inverter := groups[registry.Inverter]
	findEntity(t, inverter, "inverter_alarms")
	findEntity(t, inverter, "inverter_pv_01_voltage")
	for _, e := range inverter {
		if e.ID == "inverter_pv_02_voltage" {
			t.Fatal("pv string 2 built for a single-string installation")
		}
		if e.ID == "inverter_nb_online_optimizers" {
			t.Fatal("optimizer count built without optimizers")
		}
	}
}

func TestBuildFullInstallation(t *testing.T) {
	t.Parallel()
	groups, err := Build(Capabilities{
		PVStringCount:           2,
		HasOptimizers:           true,
		MeterPhases:             3,
		BatteryType:             BatteryLuna2000,
		BatteryUnits:            2,
		SupportsCapacityControl: true,
		OptimizerIDs:            []int{1, 2},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	findEntity(t, groups[registry.Inverter], "inverter_nb_online_optimizers")
	findEntity(t, groups[registry.Meter], "power_meter_grid_b_voltage")
	findEntity(t, groups[registry.Storage], "battery_storage_state_of_capacity")
	findEntity(t, groups[registry.Storage], "battery_1_storage_unit_1_battery_temperature")
	findEntity(t, groups[registry.Storage], "battery_2_storage_unit_2_battery_temperature")
	findEntity(t, groups[registry.Configuration], "battery_"+string(registry.StorageCapacityControl))
	findEntity(t, groups[registry.Optimizer], "optimizer_2_output_power")

	// rated_charge_power exists on unit 1 only
	for _, e := range groups[registry.Storage] {
		if e.ID == "battery_2_storage_unit_2_rated_charge_power" {
			t.Fatal("unit-1-only register built for unit 2")
		}
	}
}

func TestBuildSinglePhaseMeterNames(t *testing.T) {
	t.Parallel()
	groups, err := Build(Capabilities{PVStringCount: 1, MeterPhases: 1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	voltage := findEntity(t, groups[registry.Meter], "power_meter_grid_a_voltage")
	if voltage.Name != "Voltage" {
		t.Fatalf("single-phase voltage name = %q, want Voltage", voltage.Name)
	}
	for _, e := range groups[registry.Meter] {
		if e.ID == "power_meter_grid_b_voltage" {
			t.Fatal("three-phase register built for a single-phase meter")
		}
	}
}

func TestBuildRejectsInvalidCapabilities(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		caps Capabilities
	}{
		{"zero pv strings", Capabilities{PVStringCount: 0}},
		{"too many pv strings", Capabilities{PVStringCount: 25}},
		{"bad meter phases", Capabilities{PVStringCount: 1, MeterPhases: 2}},
		{"too many battery units", Capabilities{PVStringCount: 1, BatteryUnits: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(tc.caps); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
