package coordinator

import (
	"context"
	"log"
	"sync"
	"time"

	"solar-monitor/internal/device"
)

// Coordinator owns the polling loop for one register group: on each tick it
// fetches the union of subscribed registers, builds a Snapshot and fans it
// out to every live subscriber exactly once.
type Coordinator struct {
	name        string
	reader      device.Reader
	registry    *Registry
	interval    time.Duration
	readTimeout time.Duration

	// current is the snapshot delivered by the most recent cycle. Only the
	// polling goroutine touches it.
	current Snapshot
	cycle   uint64
}

// New creates a coordinator polling reader every interval. Each batch read
// runs under readTimeout so a hung device surfaces as a failed cycle instead
// of stalling the loop.
func New(name string, reader device.Reader, reg *Registry, interval, readTimeout time.Duration) *Coordinator {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if readTimeout <= 0 {
		readTimeout = interval
	}
	return &Coordinator{
		name:        name,
		reader:      reader,
		registry:    reg,
		interval:    interval,
		readTimeout: readTimeout,
	}
}

// Registry returns the subscription registry consumers register with.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Run polls until ctx is cancelled. The first poll happens immediately.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Poll(ctx)
		}
	}
}

// Poll runs one cycle: read the required registers, build the Snapshot and
// notify subscribers. Failed cycles deliver a nil Snapshot (all registers
// absent) and the next scheduled tick is the retry.
func (c *Coordinator) Poll(ctx context.Context) {
	names := c.registry.RequiredNames()
	if len(names) == 0 {
		// Nothing to fetch; re-deliver the previous snapshot unchanged.
		c.notifyAll(c.current)
		return
	}

	rctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	values, err := c.reader.ReadBatch(rctx, names)
	cancel()

	if err != nil {
		log.Printf("coordinator %s cycle %d: read failed: %v", c.name, c.cycle+1, err)
		c.current = nil
		c.cycle++
		c.notifyAll(nil)
		return
	}

	snap := Snapshot(values)
	c.current = snap
	c.cycle++
	c.notifyAll(snap)
}

func (c *Coordinator) notifyAll(snap Snapshot) {
	for _, sub := range c.registry.subscribers() {
		sub.notify(snap)
	}
}

// Manager runs several coordinators concurrently until the context is done.
type Manager struct {
	Coordinators []*Coordinator
}

func (m *Manager) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, c := range m.Coordinators {
		wg.Add(1)
		go func(c *Coordinator) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil {
				log.Printf("coordinator %s stopped: %v", c.name, err)
			}
		}(c)
	}

	<-ctx.Done()
	// give pollers a small grace period to exit their loops
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Printf("timeout waiting for coordinators to stop")
	}
	return nil
}
