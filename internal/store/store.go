// Package store keeps the latest rendered value of every entity in SQLite
// so the exporter and other offline tooling can read the last known state
// without a live device connection.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"solar-monitor/internal/entity"
)

// Store wraps the sqlite connection.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS latest_states (
	entity_id  TEXT PRIMARY KEY,
	device_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	unit       TEXT NOT NULL,
	available  INTEGER NOT NULL,
	value      TEXT NOT NULL,
	attributes TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_latest_states_device ON latest_states(device_id);
`

// Open opens the SQLite database and creates the schema if missing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent coordinator publishes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Publish upserts the latest state for an entity. It implements entity.Sink.
func (s *Store) Publish(st entity.State) error {
	value := ""
	if st.Available {
		value = fmt.Sprint(st.Value)
	}
	attrs, err := json.Marshal(st.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes for %s: %w", st.EntityID, err)
	}
	available := 0
	if st.Available {
		available = 1
	}
	_, err = s.db.Exec(`INSERT INTO latest_states
		(entity_id, device_id, name, unit, available, value, attributes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			device_id = excluded.device_id,
			name = excluded.name,
			unit = excluded.unit,
			available = excluded.available,
			value = excluded.value,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at`,
		st.EntityID, st.DeviceID, st.Name, st.Unit, available, value, string(attrs), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", st.EntityID, err)
	}
	return nil
}

// LatestState mirrors one latest_states row.
type LatestState struct {
	EntityID   string            `json:"entity_id"`
	DeviceID   string            `json:"device_id"`
	Name       string            `json:"name"`
	Unit       string            `json:"unit"`
	Available  bool              `json:"available"`
	Value      string            `json:"value"`
	Attributes map[string]string `json:"attributes,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Latest returns the latest state of every entity, ordered by entity id.
func (s *Store) Latest(ctx context.Context) ([]LatestState, error) {
	return s.query(ctx, `SELECT entity_id, device_id, name, unit, available, value, attributes, updated_at
		FROM latest_states ORDER BY entity_id`)
}

// LatestForDevice returns the latest states belonging to one device.
func (s *Store) LatestForDevice(ctx context.Context, deviceID string) ([]LatestState, error) {
	return s.query(ctx, `SELECT entity_id, device_id, name, unit, available, value, attributes, updated_at
		FROM latest_states WHERE device_id = ? ORDER BY entity_id`, deviceID)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]LatestState, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LatestState
	for rows.Next() {
		var (
			st        LatestState
			available int
			attrs     string
		)
		if err := rows.Scan(&st.EntityID, &st.DeviceID, &st.Name, &st.Unit, &available, &st.Value, &attrs, &st.UpdatedAt); err != nil {
			return nil, err
		}
		st.Available = available != 0
		if attrs != "" && attrs != "null" {
			if err := json.Unmarshal([]byte(attrs), &st.Attributes); err != nil {
				return nil, fmt.Errorf("decode attributes for %s: %w", st.EntityID, err)
			}
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
