// Package entity turns register snapshots into the rendered values published
// to the host sink. Entities are built from data-only descriptions; only the
// structured decoders (schedules, alarms, forcible charge) get dedicated
// constructors.
package entity

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"solar-monitor/internal/coordinator"
	"solar-monitor/internal/decode"
	"solar-monitor/internal/device"
	"solar-monitor/internal/registry"
)

// State is the externally visible state of one entity. Every publish
// replaces the previous state wholesale.
type State struct {
	EntityID    string
	Name        string
	DeviceID    string
	Unit        string
	DeviceClass string
	StateClass  string
	Value       any // nil when unavailable
	Available   bool
	Attributes  map[string]string
}

// Sink receives entity states. Implementations must not block on device I/O.
type Sink interface {
	Publish(st State) error
}

// Description declares one register-backed sensor. The zero value of every
// field except Key is usable; presentation metadata defaults from the
// register catalog.
type Description struct {
	Key registry.Name // register name, optionally with an "#i" index selector
	// Name overrides the display name derived from Key.
	Name        string
	DeviceClass string
	StateClass  string
	// Convert transforms the raw register value before publishing.
	Convert func(any) any
}

// Entity renders one observable value from one or more registers.
type Entity struct {
	ID          string
	Name        string
	DeviceID    string
	Unit        string
	DeviceClass string
	StateClass  string

	deps []registry.Name
	// anyOf entities (the alarm aggregator) are available when at least one
	// dependency is present; all others require every dependency.
	anyOf bool
	// availableFn, when set, further restricts availability beyond register
	// presence (per-optimizer sensors while the optimizer is offline).
	availableFn func(coordinator.Snapshot) bool
	render      func(coordinator.Snapshot) (any, map[string]string)

	sink Sink
	sub  *coordinator.Subscription
}

// Attach subscribes the entity to a coordinator registry and directs its
// published states to sink.
func (e *Entity) Attach(reg *coordinator.Registry, sink Sink) error {
	e.sink = sink
	sub, err := reg.Register(e.ID, e.deps, e.handle)
	if err != nil {
		return fmt.Errorf("attach %s: %w", e.ID, err)
	}
	e.sub = sub
	return nil
}

// Detach removes the entity's subscription. Safe to call when not attached.
func (e *Entity) Detach(reg *coordinator.Registry) {
	reg.Unregister(e.sub)
	e.sub = nil
}

// Dependencies returns the registers this entity needs each cycle.
func (e *Entity) Dependencies() []registry.Name {
	return append([]registry.Name(nil), e.deps...)
}

// handle recomputes the entity state for one snapshot and publishes it.
func (e *Entity) handle(snap coordinator.Snapshot) {
	st := e.Render(snap)
	if err := e.sink.Publish(st); err != nil {
		log.Printf("entity %s: publish: %v", e.ID, err)
	}
}

// Render computes the entity state for one snapshot without publishing it.
func (e *Entity) Render(snap coordinator.Snapshot) State {
	st := State{
		EntityID:    e.ID,
		Name:        e.Name,
		DeviceID:    e.DeviceID,
		Unit:        e.Unit,
		DeviceClass: e.DeviceClass,
		StateClass:  e.StateClass,
	}

	available := snap.HasAll(e.deps...)
	if e.anyOf {
		available = snap.HasAny(e.deps...)
	}
	if available && e.availableFn != nil {
		available = e.availableFn(snap)
	}
	if !available {
		return st
	}

	st.Available = true
	st.Value, st.Attributes = e.render(snap)
	return st
}

// NewSensor builds a plain register-backed sensor from its description.
// An index selector outside the register's declared arity is a programming
// error and panics at construction time.
func NewSensor(deviceID string, desc Description) *Entity {
	base, idx := splitKey(desc.Key)
	meta := registry.MustLookup(base)

	if idx >= 0 {
		if meta.Kind != registry.TextList {
			panic(fmt.Sprintf("register %q has no sub-fields", base))
		}
		if meta.Arity == 0 {
			// Variable-length lists have no addressable positions.
			panic(fmt.Sprintf("register %q has no fixed arity, sub-field selectors not allowed", base))
		}
		if idx >= meta.Arity {
			panic(fmt.Sprintf("register %q sub-field %d out of range (arity %d)", base, idx, meta.Arity))
		}
	}

	e := newEntity(deviceID, desc.Key, desc, meta)
	e.deps = []registry.Name{base}
	e.render = func(snap coordinator.Snapshot) (any, map[string]string) {
		v, _ := snap.Value(base)
		if idx >= 0 {
			list, ok := v.([]string)
			if !ok {
				panic(fmt.Sprintf("register %q: expected []string, got %T", base, v))
			}
			if idx >= len(list) {
				panic(fmt.Sprintf("register %q: sub-field %d missing from %d-element value", base, idx, len(list)))
			}
			v = list[idx]
		}
		if desc.Convert != nil {
			v = desc.Convert(v)
		}
		return v, nil
	}
	return e
}

// NewAlarmAggregate builds the inverter alarm sensor over the three alarm
// registers. It stays available while at least one alarm register could be
// read and renders only the records of the readable ones.
func NewAlarmAggregate(deviceID string) *Entity {
	deps := []registry.Name{registry.Alarm1, registry.Alarm2, registry.Alarm3}

	e := &Entity{
		ID:       entityID(deviceID, "alarms"),
		Name:     "Alarms",
		DeviceID: deviceID,
		deps:     deps,
		anyOf:    true,
	}
	e.render = func(snap coordinator.Snapshot) (any, map[string]string) {
		var alarms []device.Alarm
		for _, name := range deps {
			v, ok := snap.Value(name)
			if !ok {
				continue
			}
			alarms = append(alarms, mustBe[[]device.Alarm](name, v)...)
		}
		return decode.Alarms(alarms), nil
	}
	return e
}

// NewTOUPeriods builds the time-of-use schedule sensor. lgResu selects the
// price-kind period layout instead of the day-mask one.
func NewTOUPeriods(deviceID string, lgResu bool) *Entity {
	key := registry.StorageTOUPeriods
	e := &Entity{
		ID:       entityID(deviceID, string(key)),
		Name:     "Time of use periods",
		DeviceID: deviceID,
		deps:     []registry.Name{key},
	}
	e.render = func(snap coordinator.Snapshot) (any, map[string]string) {
		v, _ := snap.Value(key)
		if lgResu {
			n, attrs := decode.TOUPricePeriods(mustBe[[]device.TimeOfUsePricePeriod](key, v))
			return n, attrs
		}
		n, attrs := decode.TOUPeriods(mustBe[[]device.TimeOfUsePeriod](key, v))
		return n, attrs
	}
	return e
}

// NewFixedChargePeriods builds the fixed charge/discharge schedule sensor.
func NewFixedChargePeriods(deviceID string) *Entity {
	key := registry.StorageFixedPeriods
	e := &Entity{
		ID:       entityID(deviceID, string(key)),
		Name:     "Fixed charging periods",
		DeviceID: deviceID,
		deps:     []registry.Name{key},
	}
	e.render = func(snap coordinator.Snapshot) (any, map[string]string) {
		v, _ := snap.Value(key)
		n, attrs := decode.FixedPeriods(mustBe[[]device.ChargeDischargePeriod](key, v))
		return n, attrs
	}
	return e
}

// NewCapacityControlPeriods builds the capacity-control schedule sensor.
func NewCapacityControlPeriods(deviceID string) *Entity {
	key := registry.StorageCapacityControl
	e := &Entity{
		ID:       entityID(deviceID, string(key)),
		Name:     "Capacity control periods",
		DeviceID: deviceID,
		deps:     []registry.Name{key},
	}
	e.render = func(snap coordinator.Snapshot) (any, map[string]string) {
		v, _ := snap.Value(key)
		n, attrs := decode.PeakPeriods(mustBe[[]device.PeakSettingPeriod](key, v))
		return n, attrs
	}
	return e
}

// forcibleChargeRegisters are the six co-dependent registers behind the
// forcible charge summary. All must be present for the entity to render.
var forcibleChargeRegisters = []registry.Name{
	registry.StorageForcibleSettingMode,
	registry.StorageForcibleMode,
	registry.StorageForcibleChargePower,
	registry.StorageForcibleDischPower,
	registry.StorageForciblePeriod,
	registry.StorageForcibleSOC,
}

// NewForcibleChargeSummary builds the forcible charge/discharge summary
// sensor.
func NewForcibleChargeSummary(deviceID string) *Entity {
	e := &Entity{
		ID:       entityID(deviceID, "forcible_charge_summary"),
		Name:     "Forcible charge summary",
		DeviceID: deviceID,
		deps:     append([]registry.Name(nil), forcibleChargeRegisters...),
	}
	e.render = func(snap coordinator.Snapshot) (any, map[string]string) {
		in := decode.ForcibleCharge{
			Mode:           mustValue[device.ForcibleChargeMode](snap, registry.StorageForcibleMode),
			Target:         mustValue[device.ForcibleChargeTarget](snap, registry.StorageForcibleSettingMode),
			ChargePower:    mustValue[float64](snap, registry.StorageForcibleChargePower),
			DischargePower: mustValue[float64](snap, registry.StorageForcibleDischPower),
			TargetSOC:      mustValue[float64](snap, registry.StorageForcibleSOC),
			Duration:       mustValue[float64](snap, registry.StorageForciblePeriod),
		}
		value, attrs := in.Summary()
		return value, attrs
	}
	return e
}

// optimizerFields maps the detail-sensor field names to their accessors.
// Resolution happens once at build time; an unknown field is a programming
// error.
var optimizerFields = map[string]func(device.OptimizerRunningData) any{
	"output_power":             func(d device.OptimizerRunningData) any { return d.OutputPower },
	"voltage_to_ground":        func(d device.OptimizerRunningData) any { return d.VoltageToGround },
	"output_voltage":           func(d device.OptimizerRunningData) any { return d.OutputVoltage },
	"output_current":           func(d device.OptimizerRunningData) any { return d.OutputCurrent },
	"input_voltage":            func(d device.OptimizerRunningData) any { return d.InputVoltage },
	"input_current":            func(d device.OptimizerRunningData) any { return d.InputCurrent },
	"temperature":              func(d device.OptimizerRunningData) any { return d.Temperature },
	"running_status":           func(d device.OptimizerRunningData) any { return d.RunningStatus.String() },
	"accumulated_energy_yield": func(d device.OptimizerRunningData) any { return d.AccumulatedEnergyYield },
	"alarm": func(d device.OptimizerRunningData) any {
		if len(d.Alarms) == 0 {
			return "None"
		}
		return strings.Join(d.Alarms, ", ")
	},
}

// OptimizerSensorConfig declares one per-optimizer detail sensor.
type OptimizerSensorConfig struct {
	Field       string
	Unit        string
	DeviceClass string
	StateClass  string
}

// NewOptimizerSensor builds a detail sensor for one optimizer. Fields other
// than running_status only carry sensible data while the optimizer is not
// offline; the sensor goes unavailable in that case.
func NewOptimizerSensor(optimizerID int, deviceID string, cfg OptimizerSensorConfig) *Entity {
	accessor, ok := optimizerFields[cfg.Field]
	if !ok {
		panic(fmt.Sprintf("unknown optimizer field %q", cfg.Field))
	}
	key := registry.OptimizerData(optimizerID)

	e := &Entity{
		ID:          entityID(deviceID, cfg.Field),
		Name:        displayName(cfg.Field),
		DeviceID:    deviceID,
		Unit:        cfg.Unit,
		DeviceClass: cfg.DeviceClass,
		StateClass:  cfg.StateClass,
		deps:        []registry.Name{key},
	}
	// Optimizer data fields only return sensible data when the optimizer
	// is not offline.
	if cfg.Field != "running_status" {
		e.availableFn = func(snap coordinator.Snapshot) bool {
			return mustValue[device.OptimizerRunningData](snap, key).RunningStatus != device.OptimizerOffline
		}
	}
	e.render = func(snap coordinator.Snapshot) (any, map[string]string) {
		return accessor(mustValue[device.OptimizerRunningData](snap, key)), nil
	}
	return e
}

func newEntity(deviceID string, key registry.Name, desc Description, meta registry.Meta) *Entity {
	name := desc.Name
	if name == "" {
		name = displayName(strings.ReplaceAll(string(key), "#", "_"))
	}
	return &Entity{
		ID:          entityID(deviceID, strings.ReplaceAll(string(key), "#", "_")),
		Name:        name,
		DeviceID:    deviceID,
		Unit:        meta.Unit,
		DeviceClass: desc.DeviceClass,
		StateClass:  desc.StateClass,
	}
}

func entityID(deviceID, key string) string {
	return deviceID + "_" + key
}

func displayName(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if i == 0 && w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// splitKey separates an "#i" index selector from a register name.
func splitKey(key registry.Name) (registry.Name, int) {
	s := string(key)
	hash := strings.IndexByte(s, '#')
	if hash < 0 {
		return key, -1
	}
	idx, err := strconv.Atoi(s[hash+1:])
	if err != nil || idx < 0 {
		panic(fmt.Sprintf("bad index selector in register key %q", s))
	}
	return registry.Name(s[:hash]), idx
}

// mustBe asserts the transport returned the expected shape for a register.
// A mismatch is a contract violation, not an availability state.
func mustBe[T any](name registry.Name, v any) T {
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("register %q: expected %T, got %T", name, t, v))
	}
	return t
}

func mustValue[T any](snap coordinator.Snapshot, name registry.Name) T {
	v, ok := snap.Value(name)
	if !ok {
		panic(fmt.Sprintf("register %q missing from snapshot", name))
	}
	return mustBe[T](name, v)
}
