// Package metrics exports cache activity to Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Keksclan/goRawrStash/cache"
)

const namespace = "stash"

// Cache implements cache.Metrics with Prometheus counters.
type Cache struct {
	hits            *prometheus.CounterVec
	misses          prometheus.Counter
	promotions      prometheus.Counter
	evictions       prometheus.Counter
	expirations     *prometheus.CounterVec
	durableFailures *prometheus.CounterVec
}

var _ cache.Metrics = (*Cache)(nil)

// New creates the cache counters and registers them with reg.
func New(reg prometheus.Registerer) *Cache {
	f := promauto.With(reg)
	return &Cache{
		hits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache reads answered, by the tier that answered them.",
		}, []string{"tier"}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache reads that found no live entry in any tier.",
		}),
		promotions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "promotions_total",
			Help:      "Durable hits copied into the memory tier.",
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Memory entries evicted to respect the capacity bound.",
		}),
		expirations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "expirations_total",
			Help:      "Expired entries removed, by tier.",
		}, []string{"tier"}),
		durableFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "durable_failures_total",
			Help:      "Durable store operations that failed, by operation.",
		}, []string{"op"}),
	}
}

func (c *Cache) Hit(tier cache.Tier)        { c.hits.WithLabelValues(string(tier)).Inc() }
func (c *Cache) Miss()                      { c.misses.Inc() }
func (c *Cache) Promotion()                 { c.promotions.Inc() }
func (c *Cache) Eviction()                  { c.evictions.Inc() }
func (c *Cache) Expiration(tier cache.Tier) { c.expirations.WithLabelValues(string(tier)).Inc() }
func (c *Cache) DurableFailure(op string)   { c.durableFailures.WithLabelValues(op).Inc() }

// StatsSource is anything that can report cache entry counts.
type StatsSource interface {
	Stats(ctx context.Context) cache.Stats
}

// entries exposes per-tier entry counts, reading Stats once per scrape.
type entries struct {
	src     StatsSource
	timeout time.Duration
	desc    *prometheus.Desc
}

// RegisterEntries registers the stash_cache_entries gauge backed by src.
func RegisterEntries(reg prometheus.Registerer, src StatsSource) error {
	return reg.Register(&entries{
		src:     src,
		timeout: 5 * time.Second,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Entries currently held, by tier. Includes expired entries not yet swept.",
			[]string{"tier"}, nil,
		),
	})
}

func (e *entries) Describe(ch chan<- *prometheus.Desc) { ch <- e.desc }

func (e *entries) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	s := e.src.Stats(ctx)
	ch <- prometheus.MustNewConstMetric(e.desc, prometheus.GaugeValue, float64(s.Memory), string(cache.TierMemory))
	ch <- prometheus.MustNewConstMetric(e.desc, prometheus.GaugeValue, float64(s.Durable), string(cache.TierDurable))
}
