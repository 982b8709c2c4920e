package failover

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/slog"
)

// Engine owns all failover state: the active server name and the
// per-server consecutive-failure counters. One engine instance exists per
// process; whatever drives cycles is handed the engine explicitly.
type Engine struct {
	log    *slog.Logger
	store  DNSStore
	prober Prober

	domain     string
	recordType string
	ttl        int
	threshold  int

	// servers is sorted by (priority, name), so equal priorities
	// resolve lexicographically. Both the startup fallback and the
	// candidate scan rely on this order.
	servers []ServerSpec

	// mu guards active and the tracker. Cycle holds the write lock from
	// probe through switch, so cycles run to completion one at a time
	// even with the status reporter running alongside.
	mu      deadlock.RWMutex
	active  string
	tracker *tracker
}

type EngineOpts struct {
	Log    *slog.Logger
	Store  DNSStore
	Prober Prober

	Servers          []ServerSpec
	Domain           string
	RecordType       string
	TTL              int
	FailureThreshold int
}

// NewEngine validates the static configuration and resolves the initial
// active server from the DNS record. Resolution cannot fail: if the store
// is unreachable or the record matches no configured server, the
// highest-priority server is the default.
func NewEngine(ctx context.Context, opts EngineOpts) (*Engine, error) {
	if len(opts.Servers) < 2 {
		return nil, errors.New("at least two servers are required")
	}
	if opts.FailureThreshold < 1 {
		return nil, fmt.Errorf("invalid failure threshold: %d",
			opts.FailureThreshold)
	}
	servers := append([]ServerSpec{}, opts.Servers...)
	sort.SliceStable(servers, func(i, j int) bool {
		if servers[i].Priority != servers[j].Priority {
			return servers[i].Priority < servers[j].Priority
		}
		return servers[i].Name < servers[j].Name
	})
	for i := 1; i < len(servers); i++ {
		if servers[i].Name == servers[i-1].Name {
			return nil, fmt.Errorf("duplicate server name: %s",
				servers[i].Name)
		}
	}

	e := &Engine{
		log:        opts.Log,
		store:      opts.Store,
		prober:     opts.Prober,
		domain:     opts.Domain,
		recordType: opts.RecordType,
		ttl:        opts.TTL,
		threshold:  opts.FailureThreshold,
		servers:    servers,
		tracker:    newTracker(servers),
	}
	e.active = e.resolveActive(ctx)
	e.log.Info("resolved active server",
		slog.String("server", e.active))
	return e, nil
}

// resolveActive infers the active server from the record's current
// content. Any failure falls back to the first server in priority order.
func (e *Engine) resolveActive(ctx context.Context) string {
	rec, err := e.store.GetRecord(ctx, e.domain, e.recordType)
	if err != nil {
		e.log.Warn("could not read record, using default server",
			slog.Any("error", err),
			slog.String("domain", e.domain))
		return e.servers[0].Name
	}
	for _, s := range e.servers {
		if s.Addr == rec.Content {
			return s.Name
		}
	}
	e.log.Warn("record content matches no configured server",
		slog.String("content", rec.Content))
	return e.servers[0].Name
}

// Active returns the name of the server the record currently designates.
func (e *Engine) Active() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.active
}

// Cycle runs one evaluation: probe the active server, update its failure
// count, and fail over once the count reaches the threshold. Returned
// errors are reportable conditions, not fatal ones; the tripped state
// persists, so the next cycle retries.
func (e *Engine) Cycle(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cyclesTotal.Inc()

	active := e.serverByName(e.active)
	if e.prober.Probe(ctx, active.Addr, active.Port) {
		e.tracker.recordSuccess(active.Name)
		return nil
	}

	e.tracker.recordFailure(active.Name)
	probeFailuresTotal.WithLabelValues(active.Name).Inc()
	count := e.tracker.count(active.Name)
	e.log.Warn("active server unreachable",
		slog.String("server", active.Name),
		slog.String("addr", active.Addr),
		slog.Int("consecutiveFailures", count))

	if count < e.threshold {
		return nil
	}
	candidate, ok := e.nextAvailable(ctx)
	if !ok {
		return ErrNoCandidate
	}
	if err := e.switchTo(ctx, candidate); err != nil {
		return fmt.Errorf("switch to %s: %w", candidate.Name, err)
	}
	return nil
}

func (e *Engine) serverByName(name string) ServerSpec {
	for _, s := range e.servers {
		if s.Name == name {
			return s
		}
	}
	// Unreachable: active always names a configured server.
	return e.servers[0]
}
