package entity

import (
	"fmt"

	"solar-monitor/internal/registry"
)

// BatteryType identifies the connected storage product, which decides the
// time-of-use period layout.
type BatteryType string

const (
	BatteryNone     BatteryType = "none"
	BatteryLGResu   BatteryType = "lg_resu"
	BatteryLuna2000 BatteryType = "luna2000"
)

// Capabilities describes the discovered installation. Discovery itself is an
// input; building the entity set from it is a one-time, pure decision.
type Capabilities struct {
	PVStringCount int
	HasOptimizers bool
	// MeterPhases is 0 (no meter), 1 or 3.
	MeterPhases int
	BatteryType BatteryType
	// BatteryUnits is the number of installed battery units (0..2).
	BatteryUnits            int
	SupportsCapacityControl bool
	// OptimizerIDs lists the discovered optimizers for detail sensors.
	OptimizerIDs []int
}

// Build derives the finalized entity set from the discovered capabilities,
// grouped by the register group (and thus coordinator) that feeds them.
func Build(caps Capabilities) (map[registry.Group][]*Entity, error) {
	if caps.PVStringCount < 1 || caps.PVStringCount > 24 {
		return nil, fmt.Errorf("pv string count %d out of range 1..24", caps.PVStringCount)
	}
	switch caps.MeterPhases {
	case 0, 1, 3:
	default:
		return nil, fmt.Errorf("meter phase count %d not supported", caps.MeterPhases)
	}
	if caps.BatteryUnits < 0 || caps.BatteryUnits > 2 {
		return nil, fmt.Errorf("battery unit count %d out of range 0..2", caps.BatteryUnits)
	}
	if caps.BatteryType == "" {
		caps.BatteryType = BatteryNone
	}

	out := make(map[registry.Group][]*Entity)

	inverter := make([]*Entity, 0, len(InverterDescriptions)+2*caps.PVStringCount+2)
	for _, desc := range InverterDescriptions {
		inverter = append(inverter, NewSensor("inverter", desc))
	}
	inverter = append(inverter, NewAlarmAggregate("inverter"))
	for _, desc := range PVStringDescriptions(caps.PVStringCount) {
		inverter = append(inverter, NewSensor("inverter", desc))
	}
	if caps.HasOptimizers {
		for _, desc := range OptimizerCountDescriptions {
			inverter = append(inverter, NewSensor("inverter", desc))
		}
	}
	out[registry.Inverter] = inverter

	switch caps.MeterPhases {
	case 1:
		out[registry.Meter] = buildSensors("power_meter", SinglePhaseMeterDescriptions)
	case 3:
		out[registry.Meter] = buildSensors("power_meter", ThreePhaseMeterDescriptions)
	}

	if caps.BatteryType != BatteryNone {
		storage := buildSensors("battery", StorageDescriptions)
		for unit := 1; unit <= caps.BatteryUnits; unit++ {
			deviceID := fmt.Sprintf("battery_%d", unit)
			for _, tpl := range BatteryUnitTemplates {
				if !tpl.appliesTo(unit) {
					continue
				}
				storage = append(storage, NewSensor(deviceID, Description{
					Key:         registry.BatteryUnit(unit, tpl.Suffix),
					Name:        displayName(tpl.Suffix),
					DeviceClass: tpl.DeviceClass,
					StateClass:  tpl.StateClass,
				}))
			}
		}
		out[registry.Storage] = storage

		configuration := []*Entity{
			NewTOUPeriods("battery", caps.BatteryType == BatteryLGResu),
			NewFixedChargePeriods("battery"),
			NewForcibleChargeSummary("battery"),
		}
		if caps.SupportsCapacityControl {
			configuration = append(configuration, NewCapacityControlPeriods("battery"))
		}
		out[registry.Configuration] = configuration
	}

	if len(caps.OptimizerIDs) > 0 {
		var optimizers []*Entity
		for _, id := range caps.OptimizerIDs {
			deviceID := fmt.Sprintf("optimizer_%d", id)
			for _, cfg := range OptimizerDetailDescriptions {
				optimizers = append(optimizers, NewOptimizerSensor(id, deviceID, cfg))
			}
		}
		out[registry.Optimizer] = optimizers
	}

	return out, nil
}

func buildSensors(deviceID string, descs []Description) []*Entity {
	out := make([]*Entity, 0, len(descs))
	for _, desc := range descs {
		out = append(out, NewSensor(deviceID, desc))
	}
	return out
}

func (t batteryUnitTemplate) appliesTo(unit int) bool {
	if len(t.Units) == 0 {
		return true
	}
	for _, u := range t.Units {
		if u == unit {
			return true
		}
	}
	return false
}
