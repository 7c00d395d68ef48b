package device

import (
	"context"

	"solar-monitor/internal/registry"
)

// Reader reads a batch of named registers from the installation.
//
// A batch read may return a strict subset of the requested names: a name
// whose individual read failed (unsupported register, modbus exception) is
// simply absent from the result. Only a transport-level failure, such as a
// lost connection, returns an error.
//
// Values are returned fully decoded: scalars as float64/int/string,
// timestamps as int64, structured registers as the record types of this
// package ([]Alarm, []TimeOfUsePeriod, OptimizerRunningData, ...).
type Reader interface {
	ReadBatch(ctx context.Context, names []registry.Name) (map[registry.Name]any, error)
}
