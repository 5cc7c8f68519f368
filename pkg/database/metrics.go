package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// PoolStatsCollector exports go-redis connection pool statistics.
type PoolStatsCollector struct {
	client  *redis.Client
	service string

	hits       *prometheus.Desc
	misses     *prometheus.Desc
	timeouts   *prometheus.Desc
	totalConns *prometheus.Desc
	idleConns  *prometheus.Desc
	staleConns *prometheus.Desc
}

// NewPoolStatsCollector creates a collector for client's pool.
func NewPoolStatsCollector(client *redis.Client, service string) *PoolStatsCollector {
	labels := []string{"service"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("redis_pool_"+name, help, labels, nil)
	}
	return &PoolStatsCollector{
		client:     client,
		service:    service,
		hits:       desc("hits_total", "Times a free connection was found in the pool"),
		misses:     desc("misses_total", "Times a free connection was not found in the pool"),
		timeouts:   desc("timeouts_total", "Times a wait for a connection timed out"),
		totalConns: desc("connections", "Number of connections in the pool"),
		idleConns:  desc("idle_connections", "Number of idle connections in the pool"),
		staleConns: desc("stale_connections_total", "Stale connections removed from the pool"),
	}
}

// Describe sends the descriptors of all metrics to the provided channel.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.timeouts
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.staleConns
}

// Collect reads current pool statistics and sends them as Prometheus metrics.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.client.PoolStats()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits), c.service)
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses), c.service)
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(s.Timeouts), c.service)
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(s.TotalConns), c.service)
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(s.IdleConns), c.service)
	ch <- prometheus.MustNewConstMetric(c.staleConns, prometheus.CounterValue, float64(s.StaleConns), c.service)
}

// RegisterPoolMetrics registers a pool collector with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, client *redis.Client, service string) error {
	return reg.Register(NewPoolStatsCollector(client, service))
}
