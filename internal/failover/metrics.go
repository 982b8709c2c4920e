package failover

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dnsfailover",
		Name:      "cycles_total",
		Help:      "Evaluation cycles run.",
	})
	probeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dnsfailover",
		Name:      "probe_failures_total",
		Help:      "Failed probes of the active server, by server.",
	}, []string{"server"})
	failoversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dnsfailover",
		Name:      "failovers_total",
		Help:      "Completed DNS record switches.",
	}, []string{"from", "to"})
	switchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dnsfailover",
		Name:      "switch_failures_total",
		Help:      "Switch attempts aborted by record lookup or update failures.",
	})
)
