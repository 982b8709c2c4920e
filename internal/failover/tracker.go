package failover

// tracker stores consecutive-failure counts per server. It holds no
// decision logic and is not safe for concurrent use; the engine's lock
// covers it.
type tracker struct {
	counts map[string]int
}

func newTracker(servers []ServerSpec) *tracker {
	counts := make(map[string]int, len(servers))
	for _, s := range servers {
		counts[s.Name] = 0
	}
	return &tracker{counts: counts}
}

func (t *tracker) recordSuccess(name string) {
	t.counts[name] = 0
}

func (t *tracker) recordFailure(name string) {
	t.counts[name]++
}

func (t *tracker) count(name string) int {
	return t.counts[name]
}
