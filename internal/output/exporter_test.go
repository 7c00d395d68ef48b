package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"solar-monitor/internal/store"
)

func sampleStates() []store.LatestState {
	return []store.LatestState{
		{
			EntityID:  "inverter_input_power",
			DeviceID:  "inverter",
			Name:      "Input power",
			Unit:      "W",
			Available: true,
			Value:     "4650",
			UpdatedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		},
		{
			EntityID:  "battery_tou",
			DeviceID:  "battery",
			Name:      "Time of use periods",
			Available: true,
			Value:     "1",
			Attributes: map[string]string{
				"Period 1": "01:00-05:00/1234567/+",
			},
			UpdatedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "export.json")
	if err := WriteJSON(path, sampleStates()); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var got []store.LatestState
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(got) != 2 || got[0].EntityID != "inverter_input_power" {
		t.Fatalf("export = %+v", got)
	}
	if got[1].Attributes["Period 1"] != "01:00-05:00/1234567/+" {
		t.Fatalf("attributes = %v", got[1].Attributes)
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := WriteCSV(path, sampleStates()); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "entity_id" {
		t.Fatalf("header = %v", records[0])
	}
	if records[1][0] != "inverter_input_power" || records[1][5] != "4650" {
		t.Fatalf("row 1 = %v", records[1])
	}
	if records[2][6] != "Period 1=01:00-05:00/1234567/+" {
		t.Fatalf("row 2 attributes = %q", records[2][6])
	}
}
