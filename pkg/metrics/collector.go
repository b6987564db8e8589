// Package metrics exposes lifecycle state and admin API traffic as
// Prometheus metrics.
package metrics

import (
	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dittocore"

// ExecutorStats is the part of the executor the collector reports on.
type ExecutorStats interface {
	MaxWorkers() int
	Submitted() uint64
	Rejected() uint64
}

// Collector reads the lifecycle state on every scrape. Nothing is cached,
// so the exported values are exactly what the atomics held at scrape time.
type Collector struct {
	state *lifecycle.State
	exec  ExecutorStats

	active    *prometheus.Desc
	finished  *prometheus.Desc
	panics    *prometheus.Desc
	stopping  *prometheus.Desc
	reloading *prometheus.Desc
	subs      *prometheus.Desc
	uptime    *prometheus.Desc
	info      *prometheus.Desc

	execWorkers   *prometheus.Desc
	execSubmitted *prometheus.Desc
	execRejected  *prometheus.Desc
}

// NewCollector creates a collector for st. exec may be nil.
func NewCollector(st *lifecycle.State, exec ExecutorStats) *Collector {
	fq := func(sub, name string) string { return prometheus.BuildFQName(namespace, sub, name) }
	return &Collector{
		state: st,
		exec:  exec,
		active: prometheus.NewDesc(fq("lifecycle", "active"),
			"Units of work currently in flight by stage", []string{"stage"}, nil),
		finished: prometheus.NewDesc(fq("lifecycle", "finished_total"),
			"Units of work completed normally by stage", []string{"stage"}, nil),
		panics: prometheus.NewDesc(fq("lifecycle", "panics_total"),
			"Units of work that ended in a panic", nil, nil),
		stopping: prometheus.NewDesc(fq("lifecycle", "stopping"),
			"1 once a stop has been requested", nil, nil),
		reloading: prometheus.NewDesc(fq("lifecycle", "reloading"),
			"1 when the requested stop is a restart", nil, nil),
		subs: prometheus.NewDesc(fq("lifecycle", "signal_subscribers"),
			"Live lifecycle signal subscriptions", nil, nil),
		uptime: prometheus.NewDesc(fq("lifecycle", "uptime_seconds"),
			"Seconds since this incarnation started", nil, nil),
		info: prometheus.NewDesc(fq("lifecycle", "info"),
			"Identity of the running incarnation", []string{"instance"}, nil),
		execWorkers: prometheus.NewDesc(fq("executor", "max_workers"),
			"Executor concurrency limit", nil, nil),
		execSubmitted: prometheus.NewDesc(fq("executor", "submitted_total"),
			"Tasks accepted by the executor", nil, nil),
		execRejected: prometheus.NewDesc(fq("executor", "rejected_total"),
			"Tasks dropped because the executor was closed", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.finished
	ch <- c.panics
	ch <- c.stopping
	ch <- c.reloading
	ch <- c.subs
	ch <- c.uptime
	ch <- c.info
	if c.exec != nil {
		ch <- c.execWorkers
		ch <- c.execSubmitted
		ch <- c.execRejected
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.state.Counters().Snapshot()

	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(snap.SpawnActive), lifecycle.StageSpawn.String())
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(snap.HandleActive), lifecycle.StageHandle.String())
	ch <- prometheus.MustNewConstMetric(c.finished, prometheus.CounterValue, float64(snap.SpawnFinished), lifecycle.StageSpawn.String())
	ch <- prometheus.MustNewConstMetric(c.finished, prometheus.CounterValue, float64(snap.HandleFinished), lifecycle.StageHandle.String())
	ch <- prometheus.MustNewConstMetric(c.panics, prometheus.CounterValue, float64(snap.Panics))

	ch <- prometheus.MustNewConstMetric(c.stopping, prometheus.GaugeValue, boolValue(c.state.Stopping()))
	ch <- prometheus.MustNewConstMetric(c.reloading, prometheus.GaugeValue, boolValue(c.state.Reloading()))
	ch <- prometheus.MustNewConstMetric(c.subs, prometheus.GaugeValue, float64(c.state.Subscribers()))
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, c.state.Uptime().Seconds())
	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, c.state.ID())

	if c.exec != nil {
		ch <- prometheus.MustNewConstMetric(c.execWorkers, prometheus.GaugeValue, float64(c.exec.MaxWorkers()))
		ch <- prometheus.MustNewConstMetric(c.execSubmitted, prometheus.CounterValue, float64(c.exec.Submitted()))
		ch <- prometheus.MustNewConstMetric(c.execRejected, prometheus.CounterValue, float64(c.exec.Rejected()))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
