package decode

import (
	"testing"

	"solar-monitor/internal/device"
)

func TestClock(t *testing.T) {
	t.Parallel()
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "00:00"},
		{60, "01:00"},
		{61, "01:01"},
		{9*60 + 5, "09:05"},
		{23*60 + 59, "23:59"},
	}
	for _, tc := range cases {
		if got := Clock(tc.minutes); got != tc.want {
			t.Errorf("Clock(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func mask(days ...int) device.DayMask {
	var m device.DayMask
	for _, d := range days {
		m |= 1 << uint(d)
	}
	return m
}

func TestDays(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		m    device.DayMask
		want string
	}{
		{"empty", 0, ""},
		{"sunday only renders as 7", mask(0), "7"},
		{"monday only", mask(1), "1"},
		{"monday and wednesday", mask(1, 3), "13"},
		{"weekdays", mask(1, 2, 3, 4, 5), "12345"},
		{"weekend renders saturday then sunday", mask(0, 6), "67"},
		{"all days in monday-first order", mask(0, 1, 2, 3, 4, 5, 6), "1234567"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Days(tc.m); got != tc.want {
				t.Errorf("Days(%07b) = %q, want %q", tc.m, got, tc.want)
			}
		})
	}
}

func TestAlarms(t *testing.T) {
	t.Parallel()
	if got := Alarms(nil); got != "None" {
		t.Fatalf("Alarms(nil) = %q, want None", got)
	}
	one := []device.Alarm{{Level: 2, ID: 17, Name: "GridFault"}}
	if got := Alarms(one); got != "[2] 17: GridFault" {
		t.Fatalf("Alarms = %q", got)
	}
	alarms := []device.Alarm{
		{Level: 2, ID: 2063, Name: "Overtemperature"},
		{Level: 1, ID: 2032, Name: "Grid Loss"},
	}
	want := "[2] 2063: Overtemperature, [1] 2032: Grid Loss"
	if got := Alarms(alarms); got != want {
		t.Fatalf("Alarms = %q, want %q", got, want)
	}
}

func TestTOUPricePeriods(t *testing.T) {
	t.Parallel()
	count, attrs := TOUPricePeriods([]device.TimeOfUsePricePeriod{
		{StartTime: 60, EndTime: 300, ElectricityPrice: 0.25},
		{StartTime: 300, EndTime: 1439, ElectricityPrice: 1},
	})
	if count != 2 {
		t.Fatalf("expected 2 periods, got %d", count)
	}
	if got := attrs["Period 1"]; got != "01:00-05:00/0.25" {
		t.Errorf("Period 1 = %q", got)
	}
	if got := attrs["Period 2"]; got != "05:00-23:59/1" {
		t.Errorf("Period 2 = %q", got)
	}
}

func TestTOUPeriods(t *testing.T) {
	t.Parallel()
	count, attrs := TOUPeriods([]device.TimeOfUsePeriod{
		{StartTime: 0, EndTime: 360, DaysEffective: mask(0, 1, 2, 3, 4, 5, 6), ChargeFlag: device.FlagCharge},
		{StartTime: 1020, EndTime: 1260, DaysEffective: mask(1, 2, 3, 4, 5), ChargeFlag: device.FlagDischarge},
	})
	if count != 2 {
		t.Fatalf("expected 2 periods, got %d", count)
	}
	if got := attrs["Period 1"]; got != "00:00-06:00/1234567/+" {
		t.Errorf("Period 1 = %q", got)
	}
	if got := attrs["Period 2"]; got != "17:00-21:00/12345/-" {
		t.Errorf("Period 2 = %q", got)
	}
}

func TestFixedAndPeakPeriods(t *testing.T) {
	t.Parallel()
	count, attrs := FixedPeriods([]device.ChargeDischargePeriod{
		{StartTime: 90, EndTime: 330, Power: 2500},
	})
	if count != 1 || attrs["Period 1"] != "01:30-05:30/2500W" {
		t.Fatalf("FixedPeriods = %d %v", count, attrs)
	}

	count, attrs = PeakPeriods([]device.PeakSettingPeriod{
		{StartTime: 480, EndTime: 720, DaysEffective: mask(6, 0), Power: 4000},
	})
	if count != 1 || attrs["Period 1"] != "08:00-12:00/67/4000W" {
		t.Fatalf("PeakPeriods = %d %v", count, attrs)
	}
}

func TestEmptySchedule(t *testing.T) {
	t.Parallel()
	count, attrs := TOUPeriods(nil)
	if count != 0 {
		t.Fatalf("expected 0 periods, got %d", count)
	}
	if len(attrs) != 0 {
		t.Fatalf("expected no attributes, got %v", attrs)
	}
}

func TestForcibleChargeSummary(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   ForcibleCharge
		want string
	}{
		{
			name: "stopped",
			in:   ForcibleCharge{Mode: device.ForcibleStop},
			want: "Stopped",
		},
		{
			name: "charge to soc",
			in: ForcibleCharge{
				Mode: device.ForcibleCharge, Target: device.TargetSOC,
				ChargePower: 2000, TargetSOC: 80,
			},
			want: "Charging at 2000W until 80%",
		},
		{
			name: "charge for duration",
			in: ForcibleCharge{
				Mode: device.ForcibleCharge, Target: device.TargetDuration,
				ChargePower: 1500, Duration: 90,
			},
			want: "Charging at 1500W for 90 minutes",
		},
		{
			name: "discharge to soc",
			in: ForcibleCharge{
				Mode: device.ForcibleDischarge, Target: device.TargetSOC,
				DischargePower: 2500, TargetSOC: 20,
			},
			want: "Discharging at 2500W until 20%",
		},
		{
			name: "discharge for duration",
			in: ForcibleCharge{
				Mode: device.ForcibleDischarge, Target: device.TargetDuration,
				DischargePower: 500, Duration: 30,
			},
			want: "Discharging at 500W for 30 minutes",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			value, attrs := tc.in.Summary()
			if value != tc.want {
				t.Errorf("Summary = %q, want %q", value, tc.want)
			}
			for _, key := range []string{"mode", "setting", "charge_power", "discharge_power", "target_soc", "duration"} {
				if _, ok := attrs[key]; !ok {
					t.Errorf("attribute %q missing", key)
				}
			}
		})
	}
}

func TestForcibleChargeSummaryPanicsOnBadMode(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range mode")
		}
	}()
	ForcibleCharge{Mode: device.ForcibleChargeMode(9)}.Summary()
}

func TestNumber(t *testing.T) {
	t.Parallel()
	if got := Number(2000); got != "2000" {
		t.Errorf("Number(2000) = %q", got)
	}
	if got := Number(0.5); got != "0.5" {
		t.Errorf("Number(0.5) = %q", got)
	}
}
