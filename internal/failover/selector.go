package failover

import "context"

// nextAvailable scans the non-active servers in priority order and
// returns the first one that probes healthy right now. Stored failure
// counts are ignored: a candidate's history says nothing about whether it
// is reachable at this moment.
//
// Callers must hold e.mu.
func (e *Engine) nextAvailable(ctx context.Context) (ServerSpec, bool) {
	for _, s := range e.servers {
		if s.Name == e.active {
			continue
		}
		if e.prober.Probe(ctx, s.Addr, s.Port) {
			return s, true
		}
	}
	return ServerSpec{}, false
}
