package pipeline

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics collects in-process counters and gauges about a running Pipeline,
// grounded on the promauto.NewGaugeVec/NewCounterVec pattern from
// zhulik-skylytics's internal/metrics/collector.go. Unlike that collector,
// which exposes a /metrics HTTP endpoint via promhttp, Metrics here keeps
// its registry private and never listens on a socket — no network I/O is a
// hard requirement of this module, so Dump writes the Prometheus text
// exposition format to an io.Writer instead (stderr, a file, or a test
// buffer) rather than serving it.
type Metrics struct {
	registry *prometheus.Registry

	queueDepth     *prometheus.GaugeVec
	itemsForwarded *prometheus.CounterVec
	itemsDropped   *prometheus.CounterVec
}

// NewMetrics builds a Metrics instance with its own private registry, so
// multiple independent Pipelines (as cmd/lanepipe-loadgen runs concurrently)
// never collide on Prometheus's global default registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lanepipe_queue_depth",
			Help: "Current occupancy of a stage's bounded queue.",
		}, []string{"stage"}),
		itemsForwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lanepipe_items_forwarded_total",
			Help: "Items a stage has handed to its downstream neighbour, including the sentinel.",
		}, []string{"stage"}),
		itemsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lanepipe_items_dropped_total",
			Help: "Items a stage dropped because its transform reported failure.",
		}, []string{"stage"}),
	}
}

func (m *Metrics) observeForward(stage string) {
	if m == nil {
		return
	}
	m.itemsForwarded.WithLabelValues(stage).Inc()
}

func (m *Metrics) observeDrop(stage string) {
	if m == nil {
		return
	}
	m.itemsDropped.WithLabelValues(stage).Inc()
}

func (m *Metrics) setQueueDepth(stage string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(stage).Set(float64(depth))
}

// Dump writes every collected metric family to w in the Prometheus text
// exposition format. Intended for an occasional diagnostic snapshot (e.g.
// cmd/lanepipe-loadgen writing to stderr at the end of a run), not for
// continuous scraping.
func (m *Metrics) Dump(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return err
		}
	}
	return nil
}
