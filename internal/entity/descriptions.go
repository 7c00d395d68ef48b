package entity

import (
	"strings"

	"solar-monitor/internal/registry"
)

// Device class and state class vocabulary shared with the host sink.
const (
	ClassPower       = "power"
	ClassReactive    = "reactive_power"
	ClassVoltage     = "voltage"
	ClassCurrent     = "current"
	ClassEnergy      = "energy"
	ClassTemperature = "temperature"
	ClassFrequency   = "frequency"
	ClassPowerFactor = "power_factor"
	ClassBattery     = "battery"
	ClassDuration    = "duration"
	ClassTimestamp   = "timestamp"

	StateMeasurement     = "measurement"
	StateTotal           = "total"
	StateTotalIncreasing = "total_increasing"
)

func joinStrings(v any) any {
	return strings.Join(v.([]string), ", ")
}

// InverterDescriptions are the sensors every inverter carries.
var InverterDescriptions = []Description{
	{Key: registry.InputPower, DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Key: registry.LineVoltageAB, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.LineVoltageBC, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.LineVoltageCA, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.PhaseAVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.PhaseBVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.PhaseCVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.PhaseACurrent, DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Key: registry.PhaseBCurrent, DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Key: registry.PhaseCCurrent, DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Key: registry.DayActivePowerPeak, DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Key: registry.ActivePower, DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Key: registry.ReactivePower, DeviceClass: ClassReactive, StateClass: StateMeasurement},
	{Key: registry.PowerFactor, DeviceClass: ClassPowerFactor, StateClass: StateMeasurement},
	{Key: registry.Efficiency, StateClass: StateMeasurement},
	{Key: registry.InternalTemperature, DeviceClass: ClassTemperature, StateClass: StateMeasurement},
	{Key: registry.InsulationResistance, StateClass: StateMeasurement},
	{Key: registry.DeviceStatus},
	{Key: registry.StartupTime, DeviceClass: ClassTimestamp},
	{Key: registry.ShutdownTime, DeviceClass: ClassTimestamp},
	{Key: registry.AccumulatedYield, DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Key: registry.TotalDCInputPower, DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Key: registry.CurrentGenStatsTime, DeviceClass: ClassTimestamp},
	{Key: registry.HourlyYield, DeviceClass: ClassEnergy, StateClass: StateTotal},
	{Key: registry.DailyYield, DeviceClass: ClassEnergy, StateClass: StateTotal},
	{Key: registry.State1, Convert: joinStrings},
	{Key: registry.State2 + "#0"},
	{Key: registry.State2 + "#1"},
	{Key: registry.State2 + "#2"},
	{Key: registry.State3 + "#0"},
	{Key: registry.State3 + "#1"},
}

// OptimizerCountDescriptions apply when the inverter reports attached
// optimizers.
var OptimizerCountDescriptions = []Description{
	{Key: registry.NBOnlineOptimizers, StateClass: StateMeasurement},
}

// SinglePhaseMeterDescriptions are the power meter sensors for a
// single-phase meter.
var SinglePhaseMeterDescriptions = []Description{
	{Key: registry.MeterStatus},
	{Key: registry.GridAVoltage, Name: "Voltage", DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.ActiveGridACurrent, Name: "Current", DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Key: registry.PowerMeterActivePower, DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Key: registry.PowerMeterReactive, DeviceClass: ClassReactive, StateClass: StateMeasurement},
	{Key: registry.ActiveGridPowerFactor, DeviceClass: ClassPowerFactor, StateClass: StateMeasurement},
	{Key: registry.ActiveGridFrequency, DeviceClass: ClassFrequency, StateClass: StateMeasurement},
	{Key: registry.GridExportedEnergy, DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Key: registry.GridAccumulatedEnergy, DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Key: registry.GridAccumulatedReact, StateClass: StateTotalIncreasing},
}

// ThreePhaseMeterDescriptions are the power meter sensors for a three-phase
// meter.
var ThreePhaseMeterDescriptions = []Description{
	{Key: registry.MeterStatus},
	{Key: registry.GridAVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.GridBVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.GridCVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.ActiveGridACurrent, DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Key: registry.ActiveGridBCurrent, DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Key: registry.ActiveGridCCurrent, DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Key: registry.PowerMeterActivePower, DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Key: registry.PowerMeterReactive, DeviceClass: ClassReactive, StateClass: StateMeasurement},
	{Key: registry.ActiveGridPowerFactor, DeviceClass: ClassPowerFactor, StateClass: StateMeasurement},
	{Key: registry.ActiveGridFrequency, DeviceClass: ClassFrequency, StateClass: StateMeasurement},
	{Key: registry.GridExportedEnergy, DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Key: registry.GridAccumulatedEnergy, DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Key: registry.GridAccumulatedReact, StateClass: StateTotalIncreasing},
	{Key: registry.ActiveGridABVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.ActiveGridBCVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.ActiveGridCAVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.ActiveGridAPower, DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Key: registry.ActiveGridBPower, DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Key: registry.ActiveGridCPower, DeviceClass: ClassPower, StateClass: StateMeasurement},
}

// StorageDescriptions are the aggregate energy-storage sensors.
var StorageDescriptions = []Description{
	{Key: registry.StorageStateOfCapacity, DeviceClass: ClassBattery, StateClass: StateMeasurement},
	{Key: registry.StorageRunningStatus},
	{Key: registry.StorageBusVoltage, DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Key: registry.StorageBusCurrent, DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Key: registry.StorageChargeDischarge, DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Key: registry.StorageTotalCharge, DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Key: registry.StorageTotalDischarge, DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Key: registry.StorageDayChargeCapacity, DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Key: registry.StorageDayDischargeCap, DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
}

// batteryUnitTemplate describes one per-battery-unit sensor; the register
// name is completed with the unit number at build time.
type batteryUnitTemplate struct {
	Suffix      string
	DeviceClass string
	StateClass  string
	// Units lists the battery units the register exists for; nil means all.
	Units []int
}

// BatteryUnitTemplates expand into sensors for each installed battery unit.
var BatteryUnitTemplates = []batteryUnitTemplate{
	{Suffix: "working_mode_b", Units: []int{1}},
	{Suffix: "rated_charge_power", DeviceClass: ClassPower, Units: []int{1}},
	{Suffix: "rated_discharge_power", DeviceClass: ClassPower, Units: []int{1}},
	{Suffix: "current_day_charge_capacity", DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Suffix: "current_day_discharge_capacity", DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Suffix: "bus_current", DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Suffix: "bus_voltage", DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Suffix: "battery_temperature", DeviceClass: ClassTemperature, StateClass: StateMeasurement},
	{Suffix: "remaining_charge_dis_charge_time", DeviceClass: ClassDuration, Units: []int{1}},
	{Suffix: "total_charge", DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Suffix: "total_discharge", DeviceClass: ClassEnergy, StateClass: StateTotalIncreasing},
	{Suffix: "state_of_capacity", DeviceClass: ClassBattery, StateClass: StateMeasurement},
	{Suffix: "running_status"},
	{Suffix: "charge_discharge_power", DeviceClass: ClassPower, StateClass: StateMeasurement},
}

// OptimizerDetailDescriptions are the per-optimizer detail sensors.
var OptimizerDetailDescriptions = []OptimizerSensorConfig{
	{Field: "output_power", Unit: "W", DeviceClass: ClassPower, StateClass: StateMeasurement},
	{Field: "voltage_to_ground", Unit: "V", DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Field: "output_voltage", Unit: "V", DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Field: "output_current", Unit: "A", DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Field: "input_voltage", Unit: "V", DeviceClass: ClassVoltage, StateClass: StateMeasurement},
	{Field: "input_current", Unit: "A", DeviceClass: ClassCurrent, StateClass: StateMeasurement},
	{Field: "temperature", Unit: "°C", DeviceClass: ClassTemperature, StateClass: StateMeasurement},
	{Field: "running_status"},
	{Field: "accumulated_energy_yield", Unit: "kWh", DeviceClass: ClassEnergy, StateClass: StateTotal},
	{Field: "alarm"},
}

// PVStringDescriptions returns the voltage and current sensors for count PV
// strings. Counts outside the hardware range are a configuration error.
func PVStringDescriptions(count int) []Description {
	if count < 1 || count > 24 {
		panic("pv string count out of range")
	}
	out := make([]Description, 0, 2*count)
	for i := 1; i <= count; i++ {
		out = append(out,
			Description{Key: registry.PVVoltage(i), DeviceClass: ClassVoltage, StateClass: StateMeasurement},
			Description{Key: registry.PVCurrent(i), DeviceClass: ClassCurrent, StateClass: StateMeasurement},
		)
	}
	return out
}
