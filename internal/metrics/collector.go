// Package metrics exports batch progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/mj1618/list-import/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector is a workflow.Observer that turns progress snapshots into
// counters. Each outcome is counted once, however many snapshots repeat it.
type Collector struct {
	items        *prometheus.CounterVec
	itemDuration *prometheus.HistogramVec
	batches      *prometheus.CounterVec
	running      prometheus.Gauge
	gatherer     prometheus.Gatherer

	logger *zap.Logger

	mu      sync.Mutex
	runID   string
	counted int
	closed  bool
}

// NewCollector registers the batch metrics with reg.
func NewCollector(namespace string, reg *prometheus.Registry, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	return &Collector{
		items: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_total",
				Help:      "Identifiers processed, by outcome",
			},
			[]string{"outcome"},
		),
		itemDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "item_duration_seconds",
				Help:      "Time from search to outcome for one identifier",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"outcome"},
		),
		batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Finished batches, by how they ended",
			},
			[]string{"result"},
		),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_running",
			Help:      "1 while a batch is running",
		}),
		gatherer: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}
}

// ProgressChanged implements workflow.Observer.
func (c *Collector) ProgressChanged(p workflow.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.RunID != c.runID {
		c.runID, c.counted, c.closed = p.RunID, 0, false
	}
	for _, item := range p.Outcomes[min(c.counted, len(p.Outcomes)):] {
		label := item.Outcome.String()
		c.items.WithLabelValues(label).Inc()
		c.itemDuration.WithLabelValues(label).Observe(item.Elapsed.Seconds())
	}
	c.counted = max(c.counted, len(p.Outcomes))

	if p.Running {
		c.running.Set(1)
		return
	}
	c.running.Set(0)
	if p.RunID != "" && !p.FinishedAt.IsZero() && !c.closed {
		c.closed = true
		c.batches.WithLabelValues(batchResult(p)).Inc()
		c.logger.Debug("batch recorded", zap.String("run_id", p.RunID))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func batchResult(p workflow.Progress) string {
	switch {
	case p.Err != "":
		return "aborted"
	case p.Stopped:
		return "stopped"
	default:
		return "completed"
	}
}
