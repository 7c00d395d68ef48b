package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"solar-monitor/internal/store"
)

// WriteJSON writes latest entity states to a JSON file with pretty formatting.
func WriteJSON(path string, states []store.LatestState) error {
	b, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteCSV flattens latest entity states and writes to a CSV file.
// Columns: entity_id,device_id,name,unit,available,value,attributes,updated_at
func WriteCSV(path string, states []store.LatestState) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"entity_id", "device_id", "name", "unit", "available", "value", "attributes", "updated_at"}
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, st := range states {
		available := "0"
		if st.Available {
			available = "1"
		}
		rec := []string{
			st.EntityID,
			st.DeviceID,
			st.Name,
			st.Unit,
			available,
			st.Value,
			flattenAttributes(st.Attributes),
			timeToRFC3339(st.UpdatedAt),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func flattenAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, "; ")
}

func timeToRFC3339(t time.Time) string { return t.Format(time.RFC3339Nano) }
