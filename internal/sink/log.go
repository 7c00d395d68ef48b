// Package sink carries rendered entity states to the outside world: a log
// sink for development, an MQTT sink speaking Home Assistant discovery, an
// optional InfluxDB sink for numeric measurements, and a latest-value store.
package sink

import (
	"log"

	"solar-monitor/internal/entity"
)

// Log prints every published state. It is the default sink.
type Log struct{}

func (Log) Publish(st entity.State) error {
	if !st.Available {
		log.Printf("%s unavailable", st.EntityID)
		return nil
	}
	if len(st.Attributes) > 0 {
		log.Printf("%s = %v %s (%d attributes)", st.EntityID, st.Value, st.Unit, len(st.Attributes))
		return nil
	}
	log.Printf("%s = %v %s", st.EntityID, st.Value, st.Unit)
	return nil
}
