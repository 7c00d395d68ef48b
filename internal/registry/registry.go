package registry

import (
	"fmt"
	"strings"
)

// Name identifies one logical register exposed by the installation.
type Name string

// Kind describes the shape of a register's decoded value.
type Kind int

const (
	Measurement Kind = iota // instantaneous numeric reading
	Counter                 // cumulative numeric reading
	Enum                    // enumerated status rendered as a string
	Timestamp               // unix timestamp
	Text                    // free-form string
	TextList                // fixed list of independent status strings
	AlarmList               // list of alarm records
	Schedule                // list of period records
	Record                  // structured record (per-optimizer running data)
)

// Group names the sub-device a register belongs to. Registers of one group
// are polled by the same coordinator.
type Group int

const (
	Inverter Group = iota
	Meter
	Storage
	Configuration
	Optimizer
)

func (g Group) String() string {
	switch g {
	case Inverter:
		return "inverter"
	case Meter:
		return "meter"
	case Storage:
		return "storage"
	case Configuration:
		return "configuration"
	case Optimizer:
		return "optimizer"
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// Meta is the static metadata for one register.
type Meta struct {
	Unit  string
	Kind  Kind
	Group Group
	// Arity is the number of independent sub-fields for TextList registers.
	// Zero for everything else.
	Arity int
}

// Inverter registers.
const (
	InputPower           Name = "input_power"
	LineVoltageAB        Name = "line_voltage_a_b"
	LineVoltageBC        Name = "line_voltage_b_c"
	LineVoltageCA        Name = "line_voltage_c_a"
	PhaseAVoltage        Name = "phase_a_voltage"
	PhaseBVoltage        Name = "phase_b_voltage"
	PhaseCVoltage        Name = "phase_c_voltage"
	PhaseACurrent        Name = "phase_a_current"
	PhaseBCurrent        Name = "phase_b_current"
	PhaseCCurrent        Name = "phase_c_current"
	DayActivePowerPeak   Name = "day_active_power_peak"
	ActivePower          Name = "active_power"
	ReactivePower        Name = "reactive_power"
	PowerFactor          Name = "power_factor"
	Efficiency           Name = "efficiency"
	InternalTemperature  Name = "internal_temperature"
	InsulationResistance Name = "insulation_resistance"
	DeviceStatus         Name = "device_status"
	StartupTime          Name = "startup_time"
	ShutdownTime         Name = "shutdown_time"
	AccumulatedYield     Name = "accumulated_yield_energy"
	TotalDCInputPower    Name = "total_dc_input_power"
	CurrentGenStatsTime  Name = "current_electricity_generation_statistics_time"
	HourlyYield          Name = "hourly_yield_energy"
	DailyYield           Name = "daily_yield_energy"
	State1               Name = "state_1"
	State2               Name = "state_2"
	State3               Name = "state_3"
	Alarm1               Name = "alarm_1"
	Alarm2               Name = "alarm_2"
	Alarm3               Name = "alarm_3"
	NBOnlineOptimizers   Name = "nb_online_optimizers"
)

// Power meter registers.
const (
	MeterStatus            Name = "meter_status"
	GridAVoltage           Name = "grid_a_voltage"
	GridBVoltage           Name = "grid_b_voltage"
	GridCVoltage           Name = "grid_c_voltage"
	ActiveGridACurrent     Name = "active_grid_a_current"
	ActiveGridBCurrent     Name = "active_grid_b_current"
	ActiveGridCCurrent     Name = "active_grid_c_current"
	PowerMeterActivePower  Name = "power_meter_active_power"
	PowerMeterReactive     Name = "power_meter_reactive_power"
	ActiveGridPowerFactor  Name = "active_grid_power_factor"
	ActiveGridFrequency    Name = "active_grid_frequency"
	GridExportedEnergy     Name = "grid_exported_energy"
	GridAccumulatedEnergy  Name = "grid_accumulated_energy"
	GridAccumulatedReact   Name = "grid_accumulated_reactive_power"
	ActiveGridABVoltage    Name = "active_grid_a_b_voltage"
	ActiveGridBCVoltage    Name = "active_grid_b_c_voltage"
	ActiveGridCAVoltage    Name = "active_grid_c_a_voltage"
	ActiveGridAPower       Name = "active_grid_a_power"
	ActiveGridBPower       Name = "active_grid_b_power"
	ActiveGridCPower       Name = "active_grid_c_power"
)

// Energy storage registers.
const (
	StorageStateOfCapacity     Name = "storage_state_of_capacity"
	StorageRunningStatus       Name = "storage_running_status"
	StorageBusVoltage          Name = "storage_bus_voltage"
	StorageBusCurrent          Name = "storage_bus_current"
	StorageChargeDischarge     Name = "storage_charge_discharge_power"
	StorageTotalCharge         Name = "storage_total_charge"
	StorageTotalDischarge      Name = "storage_total_discharge"
	StorageDayChargeCapacity   Name = "storage_current_day_charge_capacity"
	StorageDayDischargeCap     Name = "storage_current_day_discharge_capacity"
)

// Storage configuration registers.
const (
	StorageTOUPeriods          Name = "storage_time_of_use_charging_and_discharging_periods"
	StorageFixedPeriods        Name = "storage_fixed_charging_and_discharging_periods"
	StorageCapacityControl     Name = "storage_capacity_control_periods"
	StorageForcibleSettingMode Name = "storage_forcible_charge_discharge_setting_mode"
	StorageForcibleMode        Name = "storage_forcible_charge_discharge_write"
	StorageForcibleChargePower Name = "storage_forcible_charge_power"
	StorageForcibleDischPower  Name = "storage_forcible_discharge_power"
	StorageForciblePeriod      Name = "storage_forced_charging_and_discharging_period"
	StorageForcibleSOC         Name = "storage_forcible_charge_discharge_soc"
)

var catalog = map[Name]Meta{
	InputPower:           {Unit: "W", Kind: Measurement, Group: Inverter},
	LineVoltageAB:        {Unit: "V", Kind: Measurement, Group: Inverter},
	LineVoltageBC:        {Unit: "V", Kind: Measurement, Group: Inverter},
	LineVoltageCA:        {Unit: "V", Kind: Measurement, Group: Inverter},
	PhaseAVoltage:        {Unit: "V", Kind: Measurement, Group: Inverter},
	PhaseBVoltage:        {Unit: "V", Kind: Measurement, Group: Inverter},
	PhaseCVoltage:        {Unit: "V", Kind: Measurement, Group: Inverter},
	PhaseACurrent:        {Unit: "A", Kind: Measurement, Group: Inverter},
	PhaseBCurrent:        {Unit: "A", Kind: Measurement, Group: Inverter},
	PhaseCCurrent:        {Unit: "A", Kind: Measurement, Group: Inverter},
	DayActivePowerPeak:   {Unit: "W", Kind: Measurement, Group: Inverter},
	ActivePower:          {Unit: "W", Kind: Measurement, Group: Inverter},
	ReactivePower:        {Unit: "var", Kind: Measurement, Group: Inverter},
	PowerFactor:          {Kind: Measurement, Group: Inverter},
	Efficiency:           {Unit: "%", Kind: Measurement, Group: Inverter},
	InternalTemperature:  {Unit: "°C", Kind: Measurement, Group: Inverter},
	InsulationResistance: {Unit: "MOhm", Kind: Measurement, Group: Inverter},
	DeviceStatus:         {Kind: Enum, Group: Inverter},
	StartupTime:          {Kind: Timestamp, Group: Inverter},
	ShutdownTime:         {Kind: Timestamp, Group: Inverter},
	AccumulatedYield:     {Unit: "kWh", Kind: Counter, Group: Inverter},
	TotalDCInputPower:    {Unit: "W", Kind: Measurement, Group: Inverter},
	CurrentGenStatsTime:  {Kind: Timestamp, Group: Inverter},
	HourlyYield:          {Unit: "kWh", Kind: Counter, Group: Inverter},
	DailyYield:           {Unit: "kWh", Kind: Counter, Group: Inverter},
	State1:               {Kind: TextList, Group: Inverter},
	State2:               {Kind: TextList, Group: Inverter, Arity: 3},
	State3:               {Kind: TextList, Group: Inverter, Arity: 2},
	Alarm1:               {Kind: AlarmList, Group: Inverter},
	Alarm2:               {Kind: AlarmList, Group: Inverter},
	Alarm3:               {Kind: AlarmList, Group: Inverter},
	NBOnlineOptimizers:   {Kind: Measurement, Group: Inverter},

	MeterStatus:           {Kind: Enum, Group: Meter},
	GridAVoltage:          {Unit: "V", Kind: Measurement, Group: Meter},
	GridBVoltage:          {Unit: "V", Kind: Measurement, Group: Meter},
	GridCVoltage:          {Unit: "V", Kind: Measurement, Group: Meter},
	ActiveGridACurrent:    {Unit: "A", Kind: Measurement, Group: Meter},
	ActiveGridBCurrent:    {Unit: "A", Kind: Measurement, Group: Meter},
	ActiveGridCCurrent:    {Unit: "A", Kind: Measurement, Group: Meter},
	PowerMeterActivePower: {Unit: "W", Kind: Measurement, Group: Meter},
	PowerMeterReactive:    {Unit: "var", Kind: Measurement, Group: Meter},
	ActiveGridPowerFactor: {Kind: Measurement, Group: Meter},
	ActiveGridFrequency:   {Unit: "Hz", Kind: Measurement, Group: Meter},
	GridExportedEnergy:    {Unit: "kWh", Kind: Counter, Group: Meter},
	GridAccumulatedEnergy: {Unit: "kWh", Kind: Counter, Group: Meter},
	GridAccumulatedReact:  {Unit: "kvarh", Kind: Counter, Group: Meter},
	ActiveGridABVoltage:   {Unit: "V", Kind: Measurement, Group: Meter},
	ActiveGridBCVoltage:   {Unit: "V", Kind: Measurement, Group: Meter},
	ActiveGridCAVoltage:   {Unit: "V", Kind: Measurement, Group: Meter},
	ActiveGridAPower:      {Unit: "W", Kind: Measurement, Group: Meter},
	ActiveGridBPower:      {Unit: "W", Kind: Measurement, Group: Meter},
	ActiveGridCPower:      {Unit: "W", Kind: Measurement, Group: Meter},

	StorageStateOfCapacity:   {Unit: "%", Kind: Measurement, Group: Storage},
	StorageRunningStatus:     {Kind: Enum, Group: Storage},
	StorageBusVoltage:        {Unit: "V", Kind: Measurement, Group: Storage},
	StorageBusCurrent:        {Unit: "A", Kind: Measurement, Group: Storage},
	StorageChargeDischarge:   {Unit: "W", Kind: Measurement, Group: Storage},
	StorageTotalCharge:       {Unit: "kWh", Kind: Counter, Group: Storage},
	StorageTotalDischarge:    {Unit: "kWh", Kind: Counter, Group: Storage},
	StorageDayChargeCapacity: {Unit: "kWh", Kind: Counter, Group: Storage},
	StorageDayDischargeCap:   {Unit: "kWh", Kind: Counter, Group: Storage},

	StorageTOUPeriods:          {Kind: Schedule, Group: Configuration},
	StorageFixedPeriods:        {Kind: Schedule, Group: Configuration},
	StorageCapacityControl:     {Kind: Schedule, Group: Configuration},
	StorageForcibleSettingMode: {Kind: Enum, Group: Configuration},
	StorageForcibleMode:        {Kind: Enum, Group: Configuration},
	StorageForcibleChargePower: {Unit: "W", Kind: Measurement, Group: Configuration},
	StorageForcibleDischPower:  {Unit: "W", Kind: Measurement, Group: Configuration},
	StorageForciblePeriod:      {Unit: "min", Kind: Measurement, Group: Configuration},
	StorageForcibleSOC:         {Unit: "%", Kind: Measurement, Group: Configuration},
}

func init() {
	// Per-PV-string and per-battery-unit registers follow a fixed naming
	// scheme; generate their catalog entries instead of spelling them out.
	for i := 1; i <= maxPVStrings; i++ {
		catalog[PVVoltage(i)] = Meta{Unit: "V", Kind: Measurement, Group: Inverter}
		catalog[PVCurrent(i)] = Meta{Unit: "A", Kind: Measurement, Group: Inverter}
	}
	for unit := 1; unit <= maxBatteryUnits; unit++ {
		for suffix, meta := range batteryUnitSuffixes {
			catalog[BatteryUnit(unit, suffix)] = meta
		}
	}
}

const (
	maxPVStrings    = 24
	maxBatteryUnits = 2
)

// Battery-unit register suffixes and their metadata. Full names are
// "storage_unit_<n>_<suffix>".
var batteryUnitSuffixes = map[string]Meta{
	"working_mode_b":                   {Kind: Enum, Group: Storage},
	"rated_charge_power":               {Unit: "W", Kind: Measurement, Group: Storage},
	"rated_discharge_power":            {Unit: "W", Kind: Measurement, Group: Storage},
	"current_day_charge_capacity":      {Unit: "kWh", Kind: Counter, Group: Storage},
	"current_day_discharge_capacity":   {Unit: "kWh", Kind: Counter, Group: Storage},
	"bus_current":                      {Unit: "A", Kind: Measurement, Group: Storage},
	"bus_voltage":                      {Unit: "V", Kind: Measurement, Group: Storage},
	"battery_temperature":              {Unit: "°C", Kind: Measurement, Group: Storage},
	"remaining_charge_dis_charge_time": {Unit: "min", Kind: Measurement, Group: Storage},
	"total_charge":                     {Unit: "kWh", Kind: Counter, Group: Storage},
	"total_discharge":                  {Unit: "kWh", Kind: Counter, Group: Storage},
	"state_of_capacity":                {Unit: "%", Kind: Measurement, Group: Storage},
	"running_status":                   {Kind: Enum, Group: Storage},
	"charge_discharge_power":           {Unit: "W", Kind: Measurement, Group: Storage},
}

// PVVoltage returns the voltage register name for PV string i (1-based).
func PVVoltage(i int) Name { return Name(fmt.Sprintf("pv_%02d_voltage", i)) }

// PVCurrent returns the current register name for PV string i (1-based).
func PVCurrent(i int) Name { return Name(fmt.Sprintf("pv_%02d_current", i)) }

// BatteryUnit returns the register name for a per-unit battery register.
func BatteryUnit(unit int, suffix string) Name {
	return Name(fmt.Sprintf("storage_unit_%d_%s", unit, suffix))
}

// OptimizerData returns the register name carrying the running data record
// of one optimizer.
func OptimizerData(id int) Name { return Name(fmt.Sprintf("optimizer_%d", id)) }

// Lookup returns the metadata for a register name.
func Lookup(n Name) (Meta, bool) {
	if m, ok := catalog[n]; ok {
		return m, true
	}
	if strings.HasPrefix(string(n), "optimizer_") {
		return Meta{Kind: Record, Group: Optimizer}, true
	}
	return Meta{}, false
}

// MustLookup is Lookup for names that are known at build time. Unknown names
// are a programming error.
func MustLookup(n Name) Meta {
	m, ok := Lookup(n)
	if !ok {
		panic(fmt.Sprintf("unknown register %q", n))
	}
	return m
}
