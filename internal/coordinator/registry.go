package coordinator

import (
	"errors"
	"sort"
	"sync"

	"solar-monitor/internal/registry"
)

// Subscription ties one consumer to the set of registers it needs. The
// handle returned by Register identifies the subscription for Unregister.
type Subscription struct {
	id     string
	names  []registry.Name
	notify func(Snapshot)
}

// Names returns the registers this subscription depends on, in registration
// order.
func (s *Subscription) Names() []registry.Name { return s.names }

// Registry tracks live subscriptions and derives the minimal register set a
// poll cycle must fetch. Register/Unregister may run concurrently with
// RequiredNames.
type Registry struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[*Subscription]struct{})}
}

// Register adds a subscription for the given registers. The notify callback
// is invoked once per poll cycle with that cycle's Snapshot. An empty
// register set is rejected.
func (r *Registry) Register(id string, names []registry.Name, notify func(Snapshot)) (*Subscription, error) {
	if len(names) == 0 {
		return nil, errors.New("subscription needs at least one register")
	}
	if notify == nil {
		return nil, errors.New("subscription needs a notify callback")
	}

	sub := &Subscription{
		id:     id,
		names:  append([]registry.Name(nil), names...),
		notify: notify,
	}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	return sub, nil
}

// Unregister removes a subscription. Unknown or nil handles are a no-op.
func (r *Registry) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	delete(r.subs, sub)
	r.mu.Unlock()
}

// RequiredNames returns the deduplicated union of all live subscriptions'
// registers, sorted for deterministic batches.
func (r *Registry) RequiredNames() []registry.Name {
	r.mu.RLock()
	seen := make(map[registry.Name]struct{})
	for sub := range r.subs {
		for _, n := range sub.names {
			seen[n] = struct{}{}
		}
	}
	r.mu.RUnlock()

	names := make([]registry.Name, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// subscribers returns a point-in-time copy of the live subscriptions.
func (r *Registry) subscribers() []*Subscription {
	r.mu.RLock()
	out := make([]*Subscription, 0, len(r.subs))
	for sub := range r.subs {
		out = append(out, sub)
	}
	r.mu.RUnlock()
	return out
}
