package coordinator

import "solar-monitor/internal/registry"

// Snapshot is the result of one successful poll cycle: register name ->
// freshly read value. A register the cycle attempted but failed to read is
// absent, never present with a nil value. A nil Snapshot means the whole
// cycle failed and no data is available.
//
// Snapshots are never mutated after construction; consumers receive them
// read-only and a new cycle replaces the previous Snapshot wholesale.
type Snapshot map[registry.Name]any

// Value returns the value for a register and whether it was read this cycle.
func (s Snapshot) Value(n registry.Name) (any, bool) {
	v, ok := s[n]
	return v, ok
}

// HasAll reports whether every given register is present.
func (s Snapshot) HasAll(names ...registry.Name) bool {
	for _, n := range names {
		if _, ok := s[n]; !ok {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one of the given registers is present.
func (s Snapshot) HasAny(names ...registry.Name) bool {
	for _, n := range names {
		if _, ok := s[n]; ok {
			return true
		}
	}
	return false
}
