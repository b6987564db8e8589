package metrics

import (
	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry bundles the Prometheus registry of one incarnation with the
// admin API metrics registered on it.
type Registry struct {
	*prometheus.Registry
	HTTP *HTTPMetrics
}

// NewRegistry creates a fresh registry with the Go runtime, process and
// lifecycle collectors. A fresh registry per incarnation lets a restart in
// place register everything again without collisions.
func NewRegistry(st *lifecycle.State, exec ExecutorStats) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewCollector(st, exec),
	)
	return &Registry{
		Registry: reg,
		HTTP:     NewHTTPMetrics(reg),
	}
}
