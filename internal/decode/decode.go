// Package decode renders structured register values into the strings and
// attribute maps exposed by entities. Everything here is a pure function of
// its input.
package decode

import (
	"fmt"
	"strconv"
	"strings"

	"solar-monitor/internal/device"
)

// Clock renders minutes-since-midnight as HH:MM.
func Clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Days renders a day-of-week mask as concatenated day numbers. The register
// puts Sunday on bit 0, but the rendering numbers Monday as day 1 and Sunday
// as day 7, so bit 1 renders first and bit 0 renders last.
func Days(m device.DayMask) string {
	var b strings.Builder
	for i := 0; i < 7; i++ {
		if m.Set((i + 1) % 7) {
			b.WriteString(strconv.Itoa(i + 1))
		}
	}
	return b.String()
}

// Alarms renders the concatenated alarm records from all alarm registers as
// a single comma-separated string, or "None" when no alarm is active.
func Alarms(alarms []device.Alarm) string {
	if len(alarms) == 0 {
		return "None"
	}
	parts := make([]string, len(alarms))
	for i, a := range alarms {
		parts[i] = fmt.Sprintf("[%d] %d: %s", a.Level, a.ID, a.Name)
	}
	return strings.Join(parts, ", ")
}

// TOUPricePeriodText renders one price-kind time-of-use period.
func TOUPricePeriodText(p device.TimeOfUsePricePeriod) string {
	return fmt.Sprintf("%s-%s/%s", Clock(p.StartTime), Clock(p.EndTime), Number(p.ElectricityPrice))
}

// TOUPeriodText renders one day-mask time-of-use period.
func TOUPeriodText(p device.TimeOfUsePeriod) string {
	flag := "-"
	if p.ChargeFlag == device.FlagCharge {
		flag = "+"
	}
	return fmt.Sprintf("%s-%s/%s/%s", Clock(p.StartTime), Clock(p.EndTime), Days(p.DaysEffective), flag)
}

// FixedPeriodText renders one fixed charge/discharge period.
func FixedPeriodText(p device.ChargeDischargePeriod) string {
	return fmt.Sprintf("%s-%s/%dW", Clock(p.StartTime), Clock(p.EndTime), p.Power)
}

// PeakPeriodText renders one capacity-control period.
func PeakPeriodText(p device.PeakSettingPeriod) string {
	return fmt.Sprintf("%s-%s/%s/%dW", Clock(p.StartTime), Clock(p.EndTime), Days(p.DaysEffective), p.Power)
}

// TOUPricePeriods renders a price-kind schedule: entry count plus one
// "Period n" attribute per entry, in input order.
func TOUPricePeriods(ps []device.TimeOfUsePricePeriod) (int, map[string]string) {
	return describePeriods(ps, TOUPricePeriodText)
}

// TOUPeriods renders a day-mask schedule.
func TOUPeriods(ps []device.TimeOfUsePeriod) (int, map[string]string) {
	return describePeriods(ps, TOUPeriodText)
}

// FixedPeriods renders a fixed charge/discharge schedule.
func FixedPeriods(ps []device.ChargeDischargePeriod) (int, map[string]string) {
	return describePeriods(ps, FixedPeriodText)
}

// PeakPeriods renders a capacity-control schedule.
func PeakPeriods(ps []device.PeakSettingPeriod) (int, map[string]string) {
	return describePeriods(ps, PeakPeriodText)
}

func describePeriods[T any](ps []T, text func(T) string) (int, map[string]string) {
	attrs := make(map[string]string, len(ps))
	for i, p := range ps {
		attrs[fmt.Sprintf("Period %d", i+1)] = text(p)
	}
	return len(ps), attrs
}

// ForcibleCharge is the joined input of the six forcible charge/discharge
// registers.
type ForcibleCharge struct {
	Mode           device.ForcibleChargeMode
	Target         device.ForcibleChargeTarget
	ChargePower    float64 // W
	DischargePower float64 // W
	TargetSOC      float64 // %
	Duration       float64 // minutes
}

// Summary renders the forcible charge/discharge state as a one-line string
// plus the six raw inputs as attributes. A mode outside the defined
// enumeration means the transport broke its contract and panics.
func (f ForcibleCharge) Summary() (string, map[string]string) {
	var value string
	switch f.Mode {
	case device.ForcibleStop:
		value = "Stopped"
	case device.ForcibleCharge:
		if f.Target == device.TargetSOC {
			value = fmt.Sprintf("Charging at %sW until %s%%", Number(f.ChargePower), Number(f.TargetSOC))
		} else {
			value = fmt.Sprintf("Charging at %sW for %s minutes", Number(f.ChargePower), Number(f.Duration))
		}
	case device.ForcibleDischarge:
		if f.Target == device.TargetSOC {
			value = fmt.Sprintf("Discharging at %sW until %s%%", Number(f.DischargePower), Number(f.TargetSOC))
		} else {
			value = fmt.Sprintf("Discharging at %sW for %s minutes", Number(f.DischargePower), Number(f.Duration))
		}
	default:
		panic(fmt.Sprintf("forcible charge mode out of range: %d", int(f.Mode)))
	}

	attrs := map[string]string{
		"mode":            f.Mode.String(),
		"setting":         f.Target.String(),
		"charge_power":    Number(f.ChargePower),
		"discharge_power": Number(f.DischargePower),
		"target_soc":      Number(f.TargetSOC),
		"duration":        Number(f.Duration),
	}
	return value, attrs
}

// Number formats a float without trailing zeros ("2000", "0.5").
func Number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
