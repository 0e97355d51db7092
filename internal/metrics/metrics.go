// Package metrics exposes relay activity and hub state to Prometheus.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webitel/im-relay-service/internal/domain/model"
)

const namespace = "im_relay"

// StatsSource is satisfied by the hub.
type StatsSource interface {
	Stats() (model.HubStats, error)
}

// Metrics counts activity records and owns the registry served on /metrics.
type Metrics struct {
	registry   *prometheus.Registry
	activities *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activities_total",
				Help:      "Number of relay activity records by kind",
			},
			[]string{"kind"},
		),
	}
	m.registry.MustRegister(
		m.activities,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe implements the hub observer contract.
func (m *Metrics) Observe(a *model.Activity) {
	if a == nil {
		return
	}
	m.activities.WithLabelValues(string(a.Kind)).Inc()
}

// Watch registers gauges read from src on every scrape.
func (m *Metrics) Watch(src StatsSource, logger *slog.Logger) error {
	return m.registry.Register(newHubCollector(src, logger))
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type hubCollector struct {
	src    StatsSource
	logger *slog.Logger

	connected    *prometheus.Desc
	queued       *prometheus.Desc
	receivers    *prometheus.Desc
	groups       *prometheus.Desc
	dedupEntries *prometheus.Desc
	dedupResets  *prometheus.Desc
	knownKeys    *prometheus.Desc
}

func newHubCollector(src StatsSource, logger *slog.Logger) *hubCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &hubCollector{
		src:          src,
		logger:       logger,
		connected:    desc("connected_users", "Users with a live connection"),
		queued:       desc("queued_messages", "Messages waiting for an offline recipient"),
		receivers:    desc("queued_receivers", "Offline recipients with at least one queued message"),
		groups:       desc("groups", "Known groups"),
		dedupEntries: desc("dedup_entries", "Message ids held by the dedup cache"),
		dedupResets:  desc("dedup_resets_total", "Times the dedup cache was cleared at capacity"),
		knownKeys:    desc("known_public_keys", "Entries in the public key directory"),
	}
}

func (c *hubCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connected
	ch <- c.queued
	ch <- c.receivers
	ch <- c.groups
	ch <- c.dedupEntries
	ch <- c.dedupResets
	ch <- c.knownKeys
}

func (c *hubCollector) Collect(ch chan<- prometheus.Metric) {
	st, err := c.src.Stats()
	if err != nil {
		c.logger.Debug("METRICS_STATS_UNAVAILABLE", "err", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, float64(st.ConnectedUsers))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(st.QueuedMessages))
	ch <- prometheus.MustNewConstMetric(c.receivers, prometheus.GaugeValue, float64(st.QueuedReceivers))
	ch <- prometheus.MustNewConstMetric(c.groups, prometheus.GaugeValue, float64(st.Groups))
	ch <- prometheus.MustNewConstMetric(c.dedupEntries, prometheus.GaugeValue, float64(st.DedupEntries))
	ch <- prometheus.MustNewConstMetric(c.dedupResets, prometheus.CounterValue, float64(st.DedupResets))
	ch <- prometheus.MustNewConstMetric(c.knownKeys, prometheus.GaugeValue, float64(st.KnownKeys))
}
