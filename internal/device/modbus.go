package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	mb "github.com/goburrow/modbus"

	"solar-monitor/internal/registry"
)

// ModbusConfig configures the modbus transport to the inverter.
type ModbusConfig struct {
	Protocol string // modbus-tcp | modbus-rtu
	// TCP
	Host string
	Port int
	// RTU
	SerialPort string
	BaudRate   int
	DataBits   int
	StopBits   int
	Parity     string

	SlaveID    uint8
	Timeout    time.Duration
	RetryCount int

	// LGResuBattery selects the LG RESU time-of-use period layout
	// (start, end, price) instead of the LUNA2000 one (start, end,
	// day mask and charge flag) for register 47255.
	LGResuBattery bool
}

// ModbusReader implements Reader against a modbus-attached inverter.
// Batches are serialized: the device tolerates only one request in flight.
type ModbusReader struct {
	cfg      ModbusConfig
	handler  handlerWithConn
	client   mb.Client
	connAddr string

	mu sync.Mutex
}

// handlerWithConn embeds mb.ClientHandler and exposes Connect/Close used for lifecycle.
type handlerWithConn interface {
	mb.ClientHandler
	Connect() error
	Close() error
}

// NewModbusReader builds the handler, connects (with simple retries) and
// returns a ready reader.
func NewModbusReader(cfg ModbusConfig) (*ModbusReader, error) {
	r := &ModbusReader{cfg: cfg}

	h, addr, err := r.newHandler()
	if err != nil {
		return nil, err
	}
	r.handler = h
	r.connAddr = addr

	retry := cfg.RetryCount
	if retry < 0 {
		retry = 0
	}
	for attempts := 0; ; attempts++ {
		if err := h.Connect(); err != nil {
			if attempts == retry {
				return nil, fmt.Errorf("connect %s: %w", addr, err)
			}
			time.Sleep(time.Second)
			continue
		}
		break
	}

	r.client = mb.NewClient(h)
	return r, nil
}

func (r *ModbusReader) newHandler() (handlerWithConn, string, error) {
	proto := strings.ToLower(strings.TrimSpace(r.cfg.Protocol))
	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	switch proto {
	case "modbus-tcp", "tcp", "":
		address := fmt.Sprintf("%s:%d", r.cfg.Host, r.cfg.Port)
		h := mb.NewTCPClientHandler(address)
		h.Timeout = timeout
		h.SlaveId = r.cfg.SlaveID
		return h, address, nil
	case "modbus-rtu", "rtu":
		port := r.cfg.SerialPort
		if strings.TrimSpace(port) == "" {
			return nil, "", fmt.Errorf("serial_port is required for RTU")
		}
		h := mb.NewRTUClientHandler(port)
		if r.cfg.BaudRate > 0 {
			h.BaudRate = r.cfg.BaudRate
		}
		if r.cfg.DataBits > 0 {
			h.DataBits = r.cfg.DataBits
		}
		if r.cfg.StopBits > 0 {
			h.StopBits = r.cfg.StopBits
		}
		if p := strings.ToUpper(strings.TrimSpace(r.cfg.Parity)); p != "" {
			h.Parity = p
		}
		h.Timeout = timeout
		h.SlaveId = r.cfg.SlaveID
		return h, port, nil
	default:
		return nil, "", fmt.Errorf("protocol %s not implemented", r.cfg.Protocol)
	}
}

// Close releases the underlying connection.
func (r *ModbusReader) Close() error {
	if r.handler == nil {
		return nil
	}
	return r.handler.Close()
}

// ReadBatch reads the requested registers one by one. A modbus exception for
// a single register drops that register from the result; a connection-level
// error (after one reconnect attempt) fails the whole batch.
func (r *ModbusReader) ReadBatch(ctx context.Context, names []registry.Name) (map[registry.Name]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[registry.Name]any, len(names))
	for _, name := range names {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		spec, ok := r.specFor(name)
		if !ok {
			// Register not reachable over this transport; absent from
			// the result, dependents go unavailable.
			continue
		}

		data, err := r.readRegisters(spec.addr, spec.qty)
		if err != nil {
			var mbErr *mb.ModbusError
			if errors.As(err, &mbErr) {
				log.Printf("modbus %s: register %s@%d: %v", r.connAddr, name, spec.addr, err)
				continue
			}
			return nil, fmt.Errorf("read %s@%d: %w", name, spec.addr, err)
		}

		v, err := spec.decode(data)
		if err != nil {
			log.Printf("modbus %s: decode %s: %v", r.connAddr, name, err)
			continue
		}
		out[name] = v
	}
	return out, nil
}

func (r *ModbusReader) readRegisters(addr, qty uint16) ([]byte, error) {
	data, err := r.client.ReadHoldingRegisters(addr, qty)
	if err == nil {
		return data, nil
	}
	var mbErr *mb.ModbusError
	if errors.As(err, &mbErr) {
		return nil, err
	}
	// Attempt one reconnect and retry.
	if recErr := r.reconnect(); recErr != nil {
		return nil, err
	}
	return r.client.ReadHoldingRegisters(addr, qty)
}

func (r *ModbusReader) reconnect() error {
	if r.handler == nil {
		return errors.New("no handler")
	}
	r.handler.Close()
	time.Sleep(200 * time.Millisecond)
	return r.handler.Connect()
}

// regSpec describes where a register lives and how its words decode.
type regSpec struct {
	addr   uint16
	qty    uint16
	decode func([]byte) (any, error)
}

// specFor resolves the layout of a register for this reader. The time-of-use
// schedule shares one address across battery products but not one encoding,
// so its decoder follows the configured battery type.
func (r *ModbusReader) specFor(name registry.Name) (regSpec, bool) {
	spec, ok := specFor(name)
	if !ok {
		return regSpec{}, false
	}
	if name == registry.StorageTOUPeriods && r.cfg.LGResuBattery {
		spec.decode = decodeTOUPricePeriods
	}
	return spec, true
}

// specFor resolves the modbus layout of a register name. Per-optimizer data
// blocks are derived from the name instead of being enumerated.
func specFor(name registry.Name) (regSpec, bool) {
	if s, ok := regMap[name]; ok {
		return s, true
	}
	if id, ok := optimizerID(name); ok {
		return regSpec{
			addr:   uint16(36000 + 20*(id-1)),
			qty:    20,
			decode: decodeOptimizerData,
		}, true
	}
	return regSpec{}, false
}

func optimizerID(name registry.Name) (int, bool) {
	s := string(name)
	if !strings.HasPrefix(s, "optimizer_") {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(s, "optimizer_"))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

var regMap = map[registry.Name]regSpec{
	registry.State1: {32000, 1, decodeState1},
	registry.State2: {32002, 1, decodeState2},
	registry.State3: {32003, 2, decodeState3},
	registry.Alarm1: {32008, 1, decodeAlarmBits(alarmCodes1)},
	registry.Alarm2: {32009, 1, decodeAlarmBits(alarmCodes2)},
	registry.Alarm3: {32010, 1, decodeAlarmBits(alarmCodes3)},

	registry.InputPower:           {32064, 2, i32(1)},
	registry.LineVoltageAB:        {32066, 1, u16(10)},
	registry.LineVoltageBC:        {32067, 1, u16(10)},
	registry.LineVoltageCA:        {32068, 1, u16(10)},
	registry.PhaseAVoltage:        {32069, 1, u16(10)},
	registry.PhaseBVoltage:        {32070, 1, u16(10)},
	registry.PhaseCVoltage:        {32071, 1, u16(10)},
	registry.PhaseACurrent:        {32072, 2, i32(1000)},
	registry.PhaseBCurrent:        {32074, 2, i32(1000)},
	registry.PhaseCCurrent:        {32076, 2, i32(1000)},
	registry.DayActivePowerPeak:   {32078, 2, i32(1)},
	registry.ActivePower:          {32080, 2, i32(1)},
	registry.ReactivePower:        {32082, 2, i32(1)},
	registry.PowerFactor:          {32084, 1, i16(1000)},
	registry.Efficiency:           {32086, 1, u16(100)},
	registry.InternalTemperature:  {32087, 1, i16(10)},
	registry.InsulationResistance: {32088, 1, u16(1000)},
	registry.DeviceStatus:         {32089, 1, enumU16(deviceStatusLabels)},
	registry.StartupTime:          {32091, 2, epochU32},
	registry.ShutdownTime:         {32093, 2, epochU32},
	registry.AccumulatedYield:     {32106, 2, u32(100)},
	registry.TotalDCInputPower:    {32108, 2, i32(1)},
	registry.CurrentGenStatsTime:  {32110, 2, epochU32},
	registry.HourlyYield:          {32112, 2, u32(100)},
	registry.DailyYield:           {32114, 2, u32(100)},
	registry.NBOnlineOptimizers:   {37200, 1, u16(1)},

	registry.MeterStatus:           {37100, 1, enumU16(meterStatusLabels)},
	registry.GridAVoltage:          {37101, 2, i32(10)},
	registry.GridBVoltage:          {37103, 2, i32(10)},
	registry.GridCVoltage:          {37105, 2, i32(10)},
	registry.ActiveGridACurrent:    {37107, 2, i32(100)},
	registry.ActiveGridBCurrent:    {37109, 2, i32(100)},
	registry.ActiveGridCCurrent:    {37111, 2, i32(100)},
	registry.PowerMeterActivePower: {37113, 2, i32(1)},
	registry.PowerMeterReactive:    {37115, 2, i32(1)},
	registry.ActiveGridPowerFactor: {37117, 1, i16(1000)},
	registry.ActiveGridFrequency:   {37118, 1, i16(100)},
	registry.GridExportedEnergy:    {37119, 2, i32(100)},
	registry.GridAccumulatedEnergy: {37121, 2, i32(100)},
	registry.GridAccumulatedReact:  {37123, 2, i32(100)},
	registry.ActiveGridABVoltage:   {37126, 2, i32(10)},
	registry.ActiveGridBCVoltage:   {37128, 2, i32(10)},
	registry.ActiveGridCAVoltage:   {37130, 2, i32(10)},
	registry.ActiveGridAPower:      {37132, 2, i32(1)},
	registry.ActiveGridBPower:      {37134, 2, i32(1)},
	registry.ActiveGridCPower:      {37136, 2, i32(1)},

	registry.StorageStateOfCapacity: {37760, 1, u16(10)},
	registry.StorageRunningStatus:   {37762, 1, enumU16(storageStatusLabels)},
	registry.StorageBusVoltage:      {37763, 1, u16(10)},
	registry.StorageBusCurrent:      {37764, 1, i16(10)},
	registry.StorageChargeDischarge: {37765, 2, i32(1)},
	registry.StorageTotalCharge:     {37780, 2, u32(100)},
	registry.StorageTotalDischarge:  {37782, 2, u32(100)},
	registry.StorageDayChargeCapacity: {37784, 2, u32(100)},
	registry.StorageDayDischargeCap:   {37786, 2, u32(100)},

	registry.StorageTOUPeriods:          {47255, 43, decodeTOUPeriods},
	registry.StorageFixedPeriods:        {47200, 31, decodeFixedPeriods},
	registry.StorageCapacityControl:     {47086, 57, decodePeakPeriods},
	registry.StorageForcibleMode:        {47100, 1, decodeForcibleMode},
	registry.StorageForcibleSettingMode: {47101, 1, decodeForcibleTarget},
	registry.StorageForcibleSOC:         {47102, 1, u16(10)},
	registry.StorageForciblePeriod:      {47103, 1, u16(1)},
	registry.StorageForcibleChargePower: {47247, 2, u32(1)},
	registry.StorageForcibleDischPower:  {47249, 2, u32(1)},
}

func init() {
	for i := 1; i <= 24; i++ {
		base := uint16(32016 + 2*(i-1))
		regMap[registry.PVVoltage(i)] = regSpec{base, 1, i16(10)}
		regMap[registry.PVCurrent(i)] = regSpec{base + 1, 1, i16(100)}
	}
	for unit, base := range map[int]uint16{1: 37000, 2: 37741} {
		for suffix, off := range batteryUnitLayout {
			regMap[registry.BatteryUnit(unit, suffix)] = regSpec{base + off.offset, off.qty, off.decode}
		}
	}
}

type unitField struct {
	offset uint16
	qty    uint16
	decode func([]byte) (any, error)
}

var batteryUnitLayout = map[string]unitField{
	"running_status":                   {0, 1, enumU16(storageStatusLabels)},
	"charge_discharge_power":           {1, 2, i32(1)},
	"bus_voltage":                      {3, 1, u16(10)},
	"state_of_capacity":                {4, 1, u16(10)},
	"working_mode_b":                   {6, 1, enumU16(workingModeLabels)},
	"rated_charge_power":               {7, 2, u32(1)},
	"rated_discharge_power":            {9, 2, u32(1)},
	"current_day_charge_capacity":      {12, 2, u32(100)},
	"current_day_discharge_capacity":   {14, 2, u32(100)},
	"bus_current":                      {21, 1, i16(10)},
	"battery_temperature":              {22, 1, i16(10)},
	"remaining_charge_dis_charge_time": {25, 1, u16(1)},
	"total_charge":                     {26, 2, u32(100)},
	"total_discharge":                  {28, 2, u32(100)},
}

// --- word decoders ---

func u16(gain float64) func([]byte) (any, error) {
	return func(data []byte) (any, error) {
		if len(data) < 2 {
			return nil, errors.New("insufficient data for uint16")
		}
		return float64(binary.BigEndian.Uint16(data[:2])) / gain, nil
	}
}

func i16(gain float64) func([]byte) (any, error) {
	return func(data []byte) (any, error) {
		if len(data) < 2 {
			return nil, errors.New("insufficient data for int16")
		}
		return float64(int16(binary.BigEndian.Uint16(data[:2]))) / gain, nil
	}
}

func u32(gain float64) func([]byte) (any, error) {
	return func(data []byte) (any, error) {
		if len(data) < 4 {
			return nil, errors.New("insufficient data for uint32")
		}
		return float64(binary.BigEndian.Uint32(data[:4])) / gain, nil
	}
}

func i32(gain float64) func([]byte) (any, error) {
	return func(data []byte) (any, error) {
		if len(data) < 4 {
			return nil, errors.New("insufficient data for int32")
		}
		return float64(int32(binary.BigEndian.Uint32(data[:4]))) / gain, nil
	}
}

// epochU32 decodes a unix timestamp register.
func epochU32(data []byte) (any, error) {
	if len(data) < 4 {
		return nil, errors.New("insufficient data for timestamp")
	}
	return int64(binary.BigEndian.Uint32(data[:4])), nil
}

func enumU16(labels map[uint16]string) func([]byte) (any, error) {
	return func(data []byte) (any, error) {
		if len(data) < 2 {
			return nil, errors.New("insufficient data for enum")
		}
		code := binary.BigEndian.Uint16(data[:2])
		if label, ok := labels[code]; ok {
			return label, nil
		}
		return fmt.Sprintf("Unknown (%d)", code), nil
	}
}

var deviceStatusLabels = map[uint16]string{
	0x0000: "Standby: initializing",
	0x0001: "Standby: detecting insulation resistance",
	0x0002: "Standby: detecting irradiation",
	0x0003: "Standby: grid detecting",
	0x0100: "Starting",
	0x0200: "On-grid",
	0x0201: "Grid connection: power limited",
	0x0202: "Grid connection: self-derating",
	0x0300: "Shutdown: fault",
	0x0301: "Shutdown: command",
	0x0302: "Shutdown: OVGR",
	0x0303: "Shutdown: communication disconnected",
	0x0304: "Shutdown: power limited",
	0x0305: "Shutdown: manual startup required",
	0x0306: "Shutdown: DC switches disconnected",
	0x0401: "Grid scheduling: cos(phi)-P curve",
	0x0402: "Grid scheduling: Q-U curve",
	0x0500: "Spot-check ready",
	0x0501: "Spot-checking",
	0x0600: "Inspecting",
	0x0700: "AFCI self check",
	0x0800: "I-V scanning",
	0x0900: "DC input detection",
	0xA000: "Standby: no irradiation",
}

var meterStatusLabels = map[uint16]string{
	0: "offline",
	1: "normal",
}

var storageStatusLabels = map[uint16]string{
	0: "offline",
	1: "standby",
	2: "running",
	3: "fault",
	4: "sleep mode",
}

var workingModeLabels = map[uint16]string{
	0: "none",
	1: "Forcible charge/discharge",
	2: "Time of Use (LG)",
	3: "Fixed charge/discharge",
	4: "Maximise self consumption",
	5: "Fully fed to grid",
	6: "Time of Use (LUNA2000)",
}

func decodeState1(data []byte) (any, error) {
	if len(data) < 2 {
		return nil, errors.New("insufficient data for state_1")
	}
	bits := binary.BigEndian.Uint16(data[:2])
	var states []string
	for i, label := range state1Labels {
		if bits&(1<<uint(i)) != 0 {
			states = append(states, label)
		}
	}
	return states, nil
}

var state1Labels = []string{
	"Standby",
	"Grid-connected",
	"Grid-connected normally",
	"Grid connection with derating due to power rationing",
	"Grid connection with derating due to internal causes of the solar inverter",
	"Normal stop",
	"Stop due to faults",
	"Stop due to power rationing",
	"Shutdown",
	"Spot check",
}

// decodeState2 always yields the three status words in register bit order.
func decodeState2(data []byte) (any, error) {
	if len(data) < 2 {
		return nil, errors.New("insufficient data for state_2")
	}
	bits := binary.BigEndian.Uint16(data[:2])
	return []string{
		pick(bits&0x1 != 0, "Locked", "Unlocked"),
		pick(bits&0x2 != 0, "PV connected", "PV disconnected"),
		pick(bits&0x4 != 0, "Collecting DSP data", "No DSP data collection"),
	}, nil
}

func decodeState3(data []byte) (any, error) {
	if len(data) < 4 {
		return nil, errors.New("insufficient data for state_3")
	}
	bits := binary.BigEndian.Uint32(data[:4])
	return []string{
		pick(bits&0x1 != 0, "Off-grid", "On-grid"),
		pick(bits&0x2 != 0, "Off-grid switch enabled", "Off-grid switch disabled"),
	}, nil
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func decodeAlarmBits(codes []Alarm) func([]byte) (any, error) {
	return func(data []byte) (any, error) {
		if len(data) < 2 {
			return nil, errors.New("insufficient data for alarm register")
		}
		bits := binary.BigEndian.Uint16(data[:2])
		alarms := []Alarm{}
		for i, a := range codes {
			if bits&(1<<uint(i)) != 0 {
				alarms = append(alarms, a)
			}
		}
		return alarms, nil
	}
}

// Alarm code tables: bit position -> alarm record.
var alarmCodes1 = []Alarm{
	{1, 2001, "High String Input Voltage"},
	{1, 2002, "DC Arc Fault"},
	{1, 2011, "String Reverse Connection"},
	{3, 2012, "String Current Backfeed"},
	{3, 2013, "Abnormal String Power"},
	{1, 2021, "AFCI Self-Check Fail"},
	{1, 2031, "Phase Wire Short-Circuited to PE"},
	{1, 2032, "Grid Loss"},
	{1, 2033, "Grid Undervoltage"},
	{1, 2034, "Grid Overvoltage"},
	{1, 2035, "Grid Voltage Imbalance"},
	{1, 2036, "Grid Overfrequency"},
	{1, 2037, "Grid Underfrequency"},
	{1, 2038, "Unstable Grid Frequency"},
	{1, 2039, "Output Overcurrent"},
	{1, 2040, "Output DC Component Overhigh"},
}

var alarmCodes2 = []Alarm{
	{1, 2051, "Abnormal Residual Current"},
	{1, 2061, "Abnormal Grounding"},
	{1, 2062, "Low Insulation Resistance"},
	{2, 2063, "Overtemperature"},
	{1, 2064, "Device Fault"},
	{1, 2065, "Upgrade Failed or Version Mismatch"},
	{3, 2066, "License Expired"},
	{2, 61440, "Faulty Monitoring Unit"},
	{1, 2067, "Faulty Power Collector"},
	{1, 2068, "Battery abnormal"},
	{3, 2070, "Active Islanding"},
	{3, 2071, "Passive Islanding"},
	{3, 2072, "Emergency Stop"},
}

var alarmCodes3 = []Alarm{
	{1, 2080, "Abnormal PV Module Configuration"},
	{3, 2081, "Optimizer Fault"},
	{3, 2082, "Built-in PID Operation Abnormal"},
	{2, 2085, "High Input String Voltage to Ground"},
	{1, 2014, "External Fan Abnormal"},
	{1, 2086, "Battery Reverse Connection"},
	{3, 2087, "On-grid/Off-grid Controller Abnormal"},
	{3, 2088, "PV String Loss"},
	{3, 2089, "Internal Fan Abnormal"},
	{1, 2090, "DC Protection Unit Abnormal"},
}

// --- schedule decoders ---

// Periods are encoded as a count word followed by fixed-size slots:
// time-of-use: start, end, flags (low byte day mask, bit 15 charge flag).
func decodeTOUPeriods(data []byte) (any, error) {
	const slot = 3
	count, err := periodCount(data, slot, 14)
	if err != nil {
		return nil, fmt.Errorf("time-of-use periods: %w", err)
	}
	periods := make([]TimeOfUsePeriod, 0, count)
	for i := 0; i < count; i++ {
		w := words(data, 1+i*slot, slot)
		flag := FlagDischarge
		if w[2]&0x8000 != 0 {
			flag = FlagCharge
		}
		periods = append(periods, TimeOfUsePeriod{
			StartTime:     int(w[0]),
			EndTime:       int(w[1]),
			DaysEffective: DayMask(w[2] & 0x7F),
			ChargeFlag:    flag,
		})
	}
	return periods, nil
}

// LG RESU time-of-use: start, end, electricity price scaled by 1000.
func decodeTOUPricePeriods(data []byte) (any, error) {
	const slot = 3
	count, err := periodCount(data, slot, 14)
	if err != nil {
		return nil, fmt.Errorf("time-of-use price periods: %w", err)
	}
	periods := make([]TimeOfUsePricePeriod, 0, count)
	for i := 0; i < count; i++ {
		w := words(data, 1+i*slot, slot)
		periods = append(periods, TimeOfUsePricePeriod{
			StartTime:        int(w[0]),
			EndTime:          int(w[1]),
			ElectricityPrice: float64(w[2]) / 1000,
		})
	}
	return periods, nil
}

// fixed charge/discharge: start, end, power (signed W).
func decodeFixedPeriods(data []byte) (any, error) {
	const slot = 3
	count, err := periodCount(data, slot, 10)
	if err != nil {
		return nil, fmt.Errorf("fixed periods: %w", err)
	}
	periods := make([]ChargeDischargePeriod, 0, count)
	for i := 0; i < count; i++ {
		w := words(data, 1+i*slot, slot)
		periods = append(periods, ChargeDischargePeriod{
			StartTime: int(w[0]),
			EndTime:   int(w[1]),
			Power:     int(int16(w[2])),
		})
	}
	return periods, nil
}

// capacity control: start, end, day mask, power limit (W).
func decodePeakPeriods(data []byte) (any, error) {
	const slot = 4
	count, err := periodCount(data, slot, 14)
	if err != nil {
		return nil, fmt.Errorf("capacity control periods: %w", err)
	}
	periods := make([]PeakSettingPeriod, 0, count)
	for i := 0; i < count; i++ {
		w := words(data, 1+i*slot, slot)
		periods = append(periods, PeakSettingPeriod{
			StartTime:     int(w[0]),
			EndTime:       int(w[1]),
			DaysEffective: DayMask(w[2] & 0x7F),
			Power:         int(w[3]),
		})
	}
	return periods, nil
}

func periodCount(data []byte, slot, max int) (int, error) {
	if len(data) < 2 {
		return 0, errors.New("missing count word")
	}
	count := int(binary.BigEndian.Uint16(data[:2]))
	if count > max {
		return 0, fmt.Errorf("count %d exceeds maximum %d", count, max)
	}
	if len(data) < 2*(1+count*slot) {
		return 0, fmt.Errorf("%d bytes too short for %d periods", len(data), count)
	}
	return count, nil
}

// words extracts n consecutive register words starting at word offset off.
func words(data []byte, off, n int) []uint16 {
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint16(data[2*(off+i):])
	}
	return out
}

func decodeForcibleMode(data []byte) (any, error) {
	if len(data) < 2 {
		return nil, errors.New("insufficient data for forcible mode")
	}
	switch code := binary.BigEndian.Uint16(data[:2]); code {
	case 0:
		return ForcibleStop, nil
	case 1:
		return ForcibleCharge, nil
	case 2:
		return ForcibleDischarge, nil
	default:
		return nil, fmt.Errorf("forcible charge mode out of range: %d", code)
	}
}

func decodeForcibleTarget(data []byte) (any, error) {
	if len(data) < 2 {
		return nil, errors.New("insufficient data for forcible target mode")
	}
	switch code := binary.BigEndian.Uint16(data[:2]); code {
	case 0:
		return TargetDuration, nil
	case 1:
		return TargetSOC, nil
	default:
		return nil, fmt.Errorf("forcible target mode out of range: %d", code)
	}
}

// decodeOptimizerData unpacks one optimizer's 20-word running data block.
func decodeOptimizerData(data []byte) (any, error) {
	if len(data) < 40 {
		return nil, errors.New("insufficient data for optimizer block")
	}
	w := words(data, 0, 11)

	status := OptimizerRunningStatus(w[7])
	if status > OptimizerPowerOff {
		return nil, fmt.Errorf("optimizer running status out of range: %d", w[7])
	}

	var alarms []string
	for i, label := range optimizerAlarmLabels {
		if w[10]&(1<<uint(i)) != 0 {
			alarms = append(alarms, label)
		}
	}

	return OptimizerRunningData{
		OutputPower:            float64(w[0]) / 10,
		VoltageToGround:        float64(int16(w[1])) / 10,
		OutputVoltage:          float64(w[2]) / 10,
		OutputCurrent:          float64(w[3]) / 100,
		InputVoltage:           float64(w[4]) / 10,
		InputCurrent:           float64(w[5]) / 100,
		Temperature:            float64(int16(w[6])) / 10,
		RunningStatus:          status,
		AccumulatedEnergyYield: float64(uint32(w[8])<<16|uint32(w[9])) / 100,
		Alarms:                 alarms,
	}, nil
}

var optimizerAlarmLabels = []string{
	"Output overvoltage",
	"Output overcurrent",
	"Input overvoltage",
	"Input overcurrent",
	"Overtemperature",
	"Internal fault",
	"Abnormal voltage to ground",
	"Upgrade failed",
}
