package device

import (
	"context"
	"encoding/binary"
	"net"
	"strconv"
	"testing"
	"time"

	"solar-monitor/internal/registry"
	"solar-monitor/internal/simulator"
)

// be packs register words into the big-endian byte layout modbus returns.
func be(words ...uint16) []byte {
	out := make([]byte, 2*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(out[2*i:], w)
	}
	return out
}

func TestWordDecoders(t *testing.T) {
	t.Parallel()
	if v, err := u16(10)(be(2315)); err != nil || v != 231.5 {
		t.Fatalf("u16 gain 10 = %v, %v", v, err)
	}
	if v, err := i16(10)(be(0xFFF6)); err != nil || v != -1.0 {
		t.Fatalf("i16 gain 10 = %v, %v", v, err)
	}
	if v, err := i32(1)(be(0xFFFF, 0xFA24)); err != nil || v != -1500.0 {
		t.Fatalf("i32 gain 1 = %v, %v", v, err)
	}
	if v, err := u32(100)(be(0, 12345)); err != nil || v != 123.45 {
		t.Fatalf("u32 gain 100 = %v, %v", v, err)
	}
	if _, err := u32(1)(be(1)); err == nil {
		t.Fatal("u32 should reject short data")
	}
	if v, err := epochU32(be(0x60E3, 0x1A80)); err != nil || v != int64(0x60E31A80) {
		t.Fatalf("epochU32 = %v, %v", v, err)
	}
}

func TestEnumDecoder(t *testing.T) {
	t.Parallel()
	dec := enumU16(map[uint16]string{1: "normal"})
	if v, _ := dec(be(1)); v != "normal" {
		t.Fatalf("enum = %v", v)
	}
	if v, _ := dec(be(99)); v != "Unknown (99)" {
		t.Fatalf("enum fallback = %v", v)
	}
}

func TestStateDecoders(t *testing.T) {
	t.Parallel()
	v, err := decodeState2(be(0x0003))
	if err != nil {
		t.Fatalf("decodeState2 failed: %v", err)
	}
	got := v.([]string)
	want := []string{"Locked", "PV connected", "No DSP data collection"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("state_2[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	v, err = decodeState3(be(0x0000, 0x0001))
	if err != nil {
		t.Fatalf("decodeState3 failed: %v", err)
	}
	if got := v.([]string); got[0] != "Off-grid" || got[1] != "Off-grid switch disabled" {
		t.Fatalf("state_3 = %v", got)
	}
}

func TestAlarmBitsDecoder(t *testing.T) {
	t.Parallel()
	dec := decodeAlarmBits(alarmCodes1)

	v, err := dec(be(0))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if alarms := v.([]Alarm); len(alarms) != 0 {
		t.Fatalf("expected no alarms, got %v", alarms)
	}

	// bits 1 and 7 set
	v, err = dec(be(0x0082))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	alarms := v.([]Alarm)
	if len(alarms) != 2 || alarms[0].ID != 2002 || alarms[1].ID != 2032 {
		t.Fatalf("alarms = %v", alarms)
	}
}

func TestDecodeTOUPeriods(t *testing.T) {
	t.Parallel()
	data := be(
		2,
		60, 300, 0x8000|0x7F, // charge, every day
		1020, 1260, 0x003E, // discharge, weekdays
	)
	v, err := decodeTOUPeriods(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	periods := v.([]TimeOfUsePeriod)
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	p := periods[0]
	if p.StartTime != 60 || p.EndTime != 300 || p.ChargeFlag != FlagCharge || p.DaysEffective != 0x7F {
		t.Fatalf("period 1 = %+v", p)
	}
	p = periods[1]
	if p.ChargeFlag != FlagDischarge || p.DaysEffective != 0x3E {
		t.Fatalf("period 2 = %+v", p)
	}
}

func TestDecodeTOUPricePeriods(t *testing.T) {
	t.Parallel()
	v, err := decodeTOUPricePeriods(be(2, 0, 120, 300, 120, 1439, 1000))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	periods := v.([]TimeOfUsePricePeriod)
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	if p := periods[0]; p.StartTime != 0 || p.EndTime != 120 || p.ElectricityPrice != 0.3 {
		t.Fatalf("period 1 = %+v", p)
	}
	if periods[1].ElectricityPrice != 1.0 {
		t.Fatalf("period 2 = %+v", periods[1])
	}
}

func TestDecodeTOUPeriodsRejectsBadCount(t *testing.T) {
	t.Parallel()
	if _, err := decodeTOUPeriods(be(15)); err == nil {
		t.Fatal("expected error for count above maximum")
	}
	if _, err := decodeTOUPeriods(be(2, 60, 300, 0)); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func TestDecodeFixedPeriods(t *testing.T) {
	t.Parallel()
	negPower := int16(-2500)
	v, err := decodeFixedPeriods(be(1, 90, 330, uint16(negPower)))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	periods := v.([]ChargeDischargePeriod)
	if len(periods) != 1 || periods[0].Power != -2500 {
		t.Fatalf("periods = %v", periods)
	}
}

func TestDecodePeakPeriods(t *testing.T) {
	t.Parallel()
	v, err := decodePeakPeriods(be(1, 480, 720, 0x41, 4000))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	periods := v.([]PeakSettingPeriod)
	p := periods[0]
	if p.StartTime != 480 || p.EndTime != 720 || p.DaysEffective != 0x41 || p.Power != 4000 {
		t.Fatalf("period = %+v", p)
	}
}

func TestDecodeForcibleEnums(t *testing.T) {
	t.Parallel()
	if v, err := decodeForcibleMode(be(1)); err != nil || v != ForcibleCharge {
		t.Fatalf("mode 1 = %v, %v", v, err)
	}
	if _, err := decodeForcibleMode(be(3)); err == nil {
		t.Fatal("expected error for mode outside enumeration")
	}
	if v, err := decodeForcibleTarget(be(1)); err != nil || v != TargetSOC {
		t.Fatalf("target 1 = %v, %v", v, err)
	}
	if _, err := decodeForcibleTarget(be(2)); err == nil {
		t.Fatal("expected error for target outside enumeration")
	}
}

func TestDecodeOptimizerData(t *testing.T) {
	t.Parallel()
	data := make([]byte, 40)
	negVolt := int16(-5)
	copy(data, be(
		3500,            // output power 350.0
		uint16(negVolt), // voltage to ground -0.5
		420, 120, 385, 95, // output/input volts and amps
		451,  // temperature 45.1
		3,    // running
		0, 2, // yield high/low words
		0x11, // alarms: bits 0 and 4
	))
	v, err := decodeOptimizerData(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	d := v.(OptimizerRunningData)
	if d.OutputPower != 350.0 || d.VoltageToGround != -0.5 || d.Temperature != 45.1 {
		t.Fatalf("data = %+v", d)
	}
	if d.RunningStatus != OptimizerRunning {
		t.Fatalf("running status = %v", d.RunningStatus)
	}
	if d.AccumulatedEnergyYield != 0.02 {
		t.Fatalf("yield = %v", d.AccumulatedEnergyYield)
	}
	if len(d.Alarms) != 2 || d.Alarms[0] != "Output overvoltage" || d.Alarms[1] != "Overtemperature" {
		t.Fatalf("alarms = %v", d.Alarms)
	}
}

func TestDecodeOptimizerDataRejectsBadStatus(t *testing.T) {
	t.Parallel()
	data := make([]byte, 40)
	copy(data, be(0, 0, 0, 0, 0, 0, 0, 9))
	if _, err := decodeOptimizerData(data); err == nil {
		t.Fatal("expected error for status outside enumeration")
	}
}

func TestSpecForOptimizerBlocks(t *testing.T) {
	t.Parallel()
	spec, ok := specFor(registry.OptimizerData(3))
	if !ok {
		t.Fatal("optimizer block should resolve")
	}
	if spec.addr != 36040 || spec.qty != 20 {
		t.Fatalf("optimizer 3 block = %d+%d", spec.addr, spec.qty)
	}
	if _, ok := specFor("optimizer_zero"); ok {
		t.Fatal("malformed optimizer name should not resolve")
	}
}

// newSimulatedReader starts an in-process inverter and a reader against it.
func newSimulatedReader(t *testing.T, srv *simulator.Server, lgResu bool) *ModbusReader {
	t.Helper()
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("start simulator: %v", err)
	}
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	reader, err := NewModbusReader(ModbusConfig{
		Protocol:      "modbus-tcp",
		Host:          host,
		Port:          port,
		SlaveID:       1,
		Timeout:       2 * time.Second,
		LGResuBattery: lgResu,
	})
	if err != nil {
		t.Fatalf("connect reader: %v", err)
	}
	t.Cleanup(func() { _ = reader.Close() })
	return reader
}

func TestReadBatchPartialSuccess(t *testing.T) {
	t.Parallel()
	srv := simulator.NewServer()
	srv.SetScaled32(32064, 4650, 1)
	srv.SetU16(37100, 1)
	srv.MarkAbsent(37760, 30) // no battery attached

	reader := newSimulatedReader(t, srv, false)

	values, err := reader.ReadBatch(context.Background(), []registry.Name{
		registry.InputPower,
		registry.MeterStatus,
		registry.StorageStateOfCapacity,
	})
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}

	if v := values[registry.InputPower]; v != 4650.0 {
		t.Fatalf("input_power = %v, want 4650", v)
	}
	if v := values[registry.MeterStatus]; v != "normal" {
		t.Fatalf("meter_status = %v, want normal", v)
	}
	if _, ok := values[registry.StorageStateOfCapacity]; ok {
		t.Fatal("unimplemented register must be absent from the batch result")
	}
}

func TestReadBatchSkipsUnknownNames(t *testing.T) {
	t.Parallel()
	srv := simulator.NewServer()
	reader := newSimulatedReader(t, srv, false)

	values, err := reader.ReadBatch(context.Background(), []registry.Name{"bogus_register"})
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty result, got %v", values)
	}
}

func TestReadBatchSelectsTOULayoutByBattery(t *testing.T) {
	t.Parallel()
	seed := func() *simulator.Server {
		srv := simulator.NewServer()
		srv.SetU16(47255, 1)
		srv.SetU16(47256, 60)
		srv.SetU16(47257, 300)
		srv.SetU16(47258, 250)
		return srv
	}

	luna := newSimulatedReader(t, seed(), false)
	values, err := luna.ReadBatch(context.Background(), []registry.Name{registry.StorageTOUPeriods})
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}
	if _, ok := values[registry.StorageTOUPeriods].([]TimeOfUsePeriod); !ok {
		t.Fatalf("luna2000 layout = %T", values[registry.StorageTOUPeriods])
	}

	lg := newSimulatedReader(t, seed(), true)
	values, err = lg.ReadBatch(context.Background(), []registry.Name{registry.StorageTOUPeriods})
	if err != nil {
		t.Fatalf("ReadBatch failed: %v", err)
	}
	periods, ok := values[registry.StorageTOUPeriods].([]TimeOfUsePricePeriod)
	if !ok {
		t.Fatalf("lg_resu layout = %T", values[registry.StorageTOUPeriods])
	}
	if len(periods) != 1 || periods[0].ElectricityPrice != 0.25 {
		t.Fatalf("lg_resu periods = %+v", periods)
	}
}

func TestReadBatchHonorsContext(t *testing.T) {
	t.Parallel()
	srv := simulator.NewServer()
	reader := newSimulatedReader(t, srv, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := reader.ReadBatch(ctx, []registry.Name{registry.InputPower}); err == nil {
		t.Fatal("expected context cancellation error")
	}
}
