package access

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// decisions counts resolved access decisions by outcome and method.
var decisions = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "pharmview_access_decisions_total",
		Help: "Number of resolved access control decisions, by outcome and access method.",
	},
	[]string{"outcome", "method"},
)

func observeDecision(d Decision) {
	outcome := "denied"
	if d.Granted {
		outcome = "granted"
	}

	method := string(d.Method)
	if method == "" {
		method = "none"
	}

	decisions.WithLabelValues(outcome, method).Inc()
}
