package sink

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"solar-monitor/internal/entity"
	"solar-monitor/internal/utils"
)

// MQTTConfig configures the Home Assistant MQTT sink.
type MQTTConfig struct {
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	// DiscoveryPrefix is Home Assistant's discovery topic root.
	DiscoveryPrefix string
	// DedupTTL suppresses republishing unchanged states for this long.
	DedupTTL time.Duration
}

// MQTT publishes entity states as retained Home Assistant sensor topics,
// announcing each entity once via MQTT discovery.
type MQTT struct {
	client    mqtt.Client
	prefix    string
	discovery string
	cache     *utils.StateCache

	mu         sync.Mutex
	configured map[string]bool
}

// NewMQTT connects to the broker and returns a ready sink.
func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "solar_monitor"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "solar_monitor"
	}
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetWill(cfg.TopicPrefix+"/status", "offline", 0, true)
	opts.OnConnect = func(client mqtt.Client) {
		client.Publish(cfg.TopicPrefix+"/status", 0, true, "online").Wait()
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.Broker, token.Error())
	}

	return &MQTT{
		client:     client,
		prefix:     cfg.TopicPrefix,
		discovery:  cfg.DiscoveryPrefix,
		cache:      utils.NewStateCache(cfg.DedupTTL),
		configured: make(map[string]bool),
	}, nil
}

// Close announces the sink offline and disconnects.
func (m *MQTT) Close() {
	m.client.Publish(m.prefix+"/status", 0, true, "offline").Wait()
	m.client.Disconnect(250)
}

// Publish sends state, availability and attributes for one entity,
// replacing the previously retained values wholesale.
func (m *MQTT) Publish(st entity.State) error {
	if err := m.ensureConfigured(st); err != nil {
		return err
	}

	stateTopic := m.stateTopic(st.EntityID)
	availability := "offline"
	statePayload := ""
	if st.Available {
		availability = "online"
		statePayload = fmt.Sprint(st.Value)
	}

	attrs, err := json.Marshal(st.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes for %s: %w", st.EntityID, err)
	}

	fingerprint := availability + "|" + statePayload + "|" + string(attrs)
	if prev, ok := m.cache.GetState(st.EntityID); ok && prev == fingerprint {
		return nil
	}

	if token := m.client.Publish(stateTopic+"/available", 0, true, availability); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if st.Available {
		if token := m.client.Publish(stateTopic, 0, true, statePayload); token.Wait() && token.Error() != nil {
			return token.Error()
		}
	}
	if token := m.client.Publish(stateTopic+"/attributes", 0, true, attrs); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	m.cache.SetState(st.EntityID, fingerprint)
	return nil
}

func (m *MQTT) stateTopic(entityID string) string {
	return m.prefix + "/" + entityID
}

func (m *MQTT) ensureConfigured(st entity.State) error {
	m.mu.Lock()
	done := m.configured[st.EntityID]
	m.mu.Unlock()
	if done {
		return nil
	}

	payload, err := json.Marshal(autoconfigFor(st, m.stateTopic(st.EntityID)))
	if err != nil {
		return fmt.Errorf("marshal discovery config for %s: %w", st.EntityID, err)
	}

	topic := m.discovery + "/sensor/" + st.EntityID + "/config"
	if token := m.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	m.mu.Lock()
	m.configured[st.EntityID] = true
	m.mu.Unlock()
	return nil
}

// hassAutoconfig is the Home Assistant MQTT discovery payload for a sensor.
type hassAutoconfig struct {
	DeviceClass         string               `json:"dev_cla,omitempty"`
	UnitOfMeasurement   string               `json:"unit_of_meas,omitempty"`
	Name                string               `json:"name"`
	StatusTopic         string               `json:"stat_t"`
	AvailabilityTopic   string               `json:"avty_t"`
	JSONAttributesTopic string               `json:"json_attr_t"`
	UniqueID            string               `json:"uniq_id"`
	StateClass          string               `json:"stat_cla,omitempty"`
	Device              hassAutoconfigDevice `json:"dev"`
}

type hassAutoconfigDevice struct {
	IDs  string `json:"ids"`
	Name string `json:"name"`
}

func autoconfigFor(st entity.State, stateTopic string) hassAutoconfig {
	return hassAutoconfig{
		DeviceClass:         st.DeviceClass,
		UnitOfMeasurement:   st.Unit,
		Name:                st.Name,
		StatusTopic:         stateTopic,
		AvailabilityTopic:   stateTopic + "/available",
		JSONAttributesTopic: stateTopic + "/attributes",
		UniqueID:            st.EntityID,
		StateClass:          st.StateClass,
		Device: hassAutoconfigDevice{
			IDs:  st.DeviceID,
			Name: st.DeviceID,
		},
	}
}
