package device

import "fmt"

// Alarm is one active alarm record as reported by an alarm register.
type Alarm struct {
	Level int
	ID    int
	Name  string
}

// DayMask is a day-of-week bitmask. Bit 0 is Sunday, bits 1..6 are
// Monday..Saturday, matching the register encoding.
type DayMask uint8

// Set reports whether the day at bit index i (0 = Sunday) is selected.
func (m DayMask) Set(i int) bool { return m&(1<<uint(i)) != 0 }

// ChargeFlag marks a time-of-use period as charging or discharging.
type ChargeFlag int

const (
	FlagCharge ChargeFlag = iota
	FlagDischarge
)

// TimeOfUsePricePeriod is one time-of-use period with an electricity price
// (LG RESU style storage).
type TimeOfUsePricePeriod struct {
	StartTime        int // minutes since midnight
	EndTime          int
	ElectricityPrice float64
}

// TimeOfUsePeriod is one time-of-use period with effective days and a
// charge/discharge flag (LUNA2000 style storage).
type TimeOfUsePeriod struct {
	StartTime     int
	EndTime       int
	DaysEffective DayMask
	ChargeFlag    ChargeFlag
}

// ChargeDischargePeriod is one fixed charge/discharge period.
type ChargeDischargePeriod struct {
	StartTime int
	EndTime   int
	Power     int // W, negative discharges
}

// PeakSettingPeriod is one capacity-control period with a power limit.
type PeakSettingPeriod struct {
	StartTime     int
	EndTime       int
	DaysEffective DayMask
	Power         int // W
}

// ForcibleChargeMode is the storage forcible charge/discharge operating mode.
type ForcibleChargeMode int

const (
	ForcibleStop ForcibleChargeMode = iota
	ForcibleCharge
	ForcibleDischarge
)

func (m ForcibleChargeMode) String() string {
	switch m {
	case ForcibleStop:
		return "Stop"
	case ForcibleCharge:
		return "Charge"
	case ForcibleDischarge:
		return "Discharge"
	}
	return fmt.Sprintf("ForcibleChargeMode(%d)", int(m))
}

// ForcibleChargeTarget selects whether a forcible charge/discharge runs for a
// duration or until a state-of-charge target.
type ForcibleChargeTarget int

const (
	TargetDuration ForcibleChargeTarget = iota
	TargetSOC
)

func (t ForcibleChargeTarget) String() string {
	switch t {
	case TargetDuration:
		return "Duration"
	case TargetSOC:
		return "SOC"
	}
	return fmt.Sprintf("ForcibleChargeTarget(%d)", int(t))
}

// OptimizerRunningStatus is the reported state of one optimizer.
type OptimizerRunningStatus int

const (
	OptimizerOffline OptimizerRunningStatus = iota
	OptimizerStandby
	OptimizerFaulty
	OptimizerRunning
	OptimizerPowerOff
)

func (s OptimizerRunningStatus) String() string {
	switch s {
	case OptimizerOffline:
		return "Offline"
	case OptimizerStandby:
		return "Standby"
	case OptimizerFaulty:
		return "Faulty"
	case OptimizerRunning:
		return "Running"
	case OptimizerPowerOff:
		return "Power off"
	}
	return fmt.Sprintf("OptimizerRunningStatus(%d)", int(s))
}

// OptimizerRunningData is the per-optimizer detail record.
type OptimizerRunningData struct {
	OutputPower            float64 // W
	VoltageToGround        float64 // V
	OutputVoltage          float64 // V
	OutputCurrent          float64 // A
	InputVoltage           float64 // V
	InputCurrent           float64 // A
	Temperature            float64 // °C
	RunningStatus          OptimizerRunningStatus
	AccumulatedEnergyYield float64 // kWh
	Alarms                 []string
}
