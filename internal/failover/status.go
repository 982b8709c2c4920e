package failover

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// ServerStatus is the point-in-time view of one configured server.
type ServerStatus struct {
	Name         string `json:"name"`
	Addr         string `json:"addr"`
	Port         int    `json:"port"`
	Priority     int    `json:"priority"`
	Healthy      bool   `json:"healthy"`
	FailureCount int    `json:"failureCount"`
}

// StatusSnapshot is a derived, read-only view of the engine. It is
// recomputed on demand and never persisted.
type StatusSnapshot struct {
	Timestamp    time.Time      `json:"timestamp"`
	ActiveServer string         `json:"activeServer"`
	Servers      []ServerStatus `json:"servers"`
}

// Status probes every configured server and reports current health
// alongside the stored failure counts. The probes here are live but leave
// the counters and the active server untouched.
func (e *Engine) Status(ctx context.Context) StatusSnapshot {
	e.mu.RLock()
	snap := StatusSnapshot{
		Timestamp:    time.Now(),
		ActiveServer: e.active,
		Servers:      make([]ServerStatus, len(e.servers)),
	}
	for i, s := range e.servers {
		snap.Servers[i] = ServerStatus{
			Name:         s.Name,
			Addr:         s.Addr,
			Port:         s.Port,
			Priority:     s.Priority,
			FailureCount: e.tracker.count(s.Name),
		}
	}
	e.mu.RUnlock()

	p := pool.New()
	for i := range snap.Servers {
		i := i
		p.Go(func() {
			st := snap.Servers[i]
			snap.Servers[i].Healthy = e.prober.Probe(ctx,
				st.Addr, st.Port)
		})
	}
	p.Wait()
	return snap
}
