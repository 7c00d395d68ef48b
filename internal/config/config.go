// Package config loads the monitor configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"solar-monitor/internal/device"
	"solar-monitor/internal/entity"
)

// Root configuration for the monitor. This mirrors config/config.yaml.
type Root struct {
	Device     DeviceConfig             `yaml:"device"`
	Frequency  map[string]time.Duration `yaml:"frequency"`
	Inverter   InverterConfig           `yaml:"inverter"`
	MQTT       MQTTConfig               `yaml:"mqtt"`
	Influx     InfluxConfig             `yaml:"influx"`
	Store      StoreConfig              `yaml:"store"`
	LogUpdates bool                     `yaml:"log_updates"`
}

type DeviceConfig struct {
	Protocol   string        `yaml:"protocol"` // modbus-tcp | modbus-rtu
	Connection Connection    `yaml:"connection"`
	SlaveID    uint8         `yaml:"slave_id"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
}

type Connection struct {
	// TCP
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RTU
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
	DataBits   int    `yaml:"data_bits"`
	StopBits   int    `yaml:"stop_bits"`
	Parity     string `yaml:"parity"`
}

// InverterConfig describes the installation. It feeds entity construction;
// nothing here is probed at runtime.
type InverterConfig struct {
	PVStrings               int    `yaml:"pv_strings"`
	Optimizers              []int  `yaml:"optimizers"`
	MeterPhases             int    `yaml:"meter_phases"`
	BatteryType             string `yaml:"battery_type"` // none | lg_resu | luna2000
	BatteryUnits            int    `yaml:"battery_units"`
	SupportsCapacityControl bool   `yaml:"supports_capacity_control"`
}

type MQTTConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Broker          string        `yaml:"broker"`
	TopicPrefix     string        `yaml:"topic_prefix"`
	ClientID        string        `yaml:"client_id"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	DiscoveryPrefix string        `yaml:"discovery_prefix"`
	DedupTTL        time.Duration `yaml:"dedup_ttl"`
}

type InfluxConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (Root, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Root{}, err
	}
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Root{}, fmt.Errorf("parse %s: %w", path, err)
	}

	// Defaults
	if cfg.Device.Protocol == "" {
		cfg.Device.Protocol = "modbus-tcp"
	}
	if cfg.Device.Connection.Port == 0 {
		cfg.Device.Connection.Port = 502
	}
	if cfg.Device.SlaveID == 0 {
		cfg.Device.SlaveID = 1
	}
	if cfg.Device.Timeout <= 0 {
		cfg.Device.Timeout = 5 * time.Second
	}
	if cfg.Frequency == nil {
		cfg.Frequency = map[string]time.Duration{}
	}
	if cfg.Inverter.PVStrings == 0 {
		cfg.Inverter.PVStrings = 2
	}
	if cfg.Inverter.BatteryType == "" {
		cfg.Inverter.BatteryType = "none"
	}
	if cfg.Store.Enabled && cfg.Store.DBPath == "" {
		cfg.Store.DBPath = "data/solar.db"
	}

	// Basic validation
	switch strings.ToLower(cfg.Device.Protocol) {
	case "modbus-tcp", "tcp":
		if cfg.Device.Connection.Host == "" {
			return Root{}, fmt.Errorf("device.connection.host is required for %s", cfg.Device.Protocol)
		}
	case "modbus-rtu", "rtu":
		if cfg.Device.Connection.SerialPort == "" {
			return Root{}, fmt.Errorf("device.connection.serial_port is required for %s", cfg.Device.Protocol)
		}
	default:
		return Root{}, fmt.Errorf("unsupported device.protocol %q", cfg.Device.Protocol)
	}
	if cfg.Inverter.PVStrings < 1 || cfg.Inverter.PVStrings > 24 {
		return Root{}, fmt.Errorf("inverter.pv_strings %d out of range 1..24", cfg.Inverter.PVStrings)
	}
	switch cfg.Inverter.MeterPhases {
	case 0, 1, 3:
	default:
		return Root{}, fmt.Errorf("inverter.meter_phases %d not supported", cfg.Inverter.MeterPhases)
	}
	switch cfg.Inverter.BatteryType {
	case "none", "lg_resu", "luna2000":
	default:
		return Root{}, fmt.Errorf("unsupported inverter.battery_type %q", cfg.Inverter.BatteryType)
	}
	if cfg.Inverter.BatteryUnits < 0 || cfg.Inverter.BatteryUnits > 2 {
		return Root{}, fmt.Errorf("inverter.battery_units %d out of range 0..2", cfg.Inverter.BatteryUnits)
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return Root{}, fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if cfg.Influx.Enabled && cfg.Influx.URL == "" {
		return Root{}, fmt.Errorf("influx.url is required when influx is enabled")
	}

	return cfg, nil
}

// ModbusConfig maps the device section onto the transport configuration.
func (r Root) ModbusConfig() device.ModbusConfig {
	return device.ModbusConfig{
		Protocol:   r.Device.Protocol,
		Host:       r.Device.Connection.Host,
		Port:       r.Device.Connection.Port,
		SerialPort: r.Device.Connection.SerialPort,
		BaudRate:   r.Device.Connection.BaudRate,
		DataBits:   r.Device.Connection.DataBits,
		StopBits:   r.Device.Connection.StopBits,
		Parity:     r.Device.Connection.Parity,
		SlaveID:    r.Device.SlaveID,
		Timeout:    r.Device.Timeout,
		RetryCount: r.Device.RetryCount,

		LGResuBattery: r.Inverter.BatteryType == "lg_resu",
	}
}

// Capabilities maps the inverter section onto the entity builder input.
func (r Root) Capabilities() entity.Capabilities {
	return entity.Capabilities{
		PVStringCount:           r.Inverter.PVStrings,
		HasOptimizers:           len(r.Inverter.Optimizers) > 0,
		MeterPhases:             r.Inverter.MeterPhases,
		BatteryType:             entity.BatteryType(r.Inverter.BatteryType),
		BatteryUnits:            r.Inverter.BatteryUnits,
		SupportsCapacityControl: r.Inverter.SupportsCapacityControl,
		OptimizerIDs:            r.Inverter.Optimizers,
	}
}

// Interval returns the poll interval for a register group, falling back to
// the given default when the group has no explicit frequency.
func (r Root) Interval(group string, def time.Duration) time.Duration {
	if d, ok := r.Frequency[group]; ok && d > 0 {
		return d
	}
	return def
}
