package sink

import (
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"solar-monitor/internal/entity"
)

// InfluxConfig configures the InfluxDB v2 sink.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// Influx writes numeric entity states as InfluxDB points. Non-numeric
// states (status texts, schedules) are skipped; they have no place in a
// time series.
type Influx struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPI
	measurement string
}

// NewInflux creates the client and starts draining async write errors.
func NewInflux(cfg InfluxConfig) *Influx {
	if cfg.Measurement == "" {
		cfg.Measurement = "solar"
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.Printf("influx write error: %v", err)
		}
	}()
	return &Influx{client: client, writeAPI: writeAPI, measurement: cfg.Measurement}
}

func (s *Influx) Publish(st entity.State) error {
	if !st.Available {
		return nil
	}
	value, ok := numeric(st.Value)
	if !ok {
		return nil
	}
	p := influxdb2.NewPoint(s.measurement,
		map[string]string{"entity": st.EntityID, "device": st.DeviceID},
		map[string]interface{}{"value": value},
		time.Now())
	s.writeAPI.WritePoint(p)
	return nil
}

// Close flushes buffered points and shuts the client down.
func (s *Influx) Close() {
	s.writeAPI.Flush()
	s.client.Close()
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
