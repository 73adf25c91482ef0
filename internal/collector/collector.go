// Package collector implements the Prometheus collector for the bridge and
// the telemetry observers of the gateway client, writer and poller.
package collector

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"onecta_bridge/internal/control"
	"onecta_bridge/internal/device"
	"onecta_bridge/internal/types"
)

// DeviceLister lists known devices.
type DeviceLister interface {
	List() []*device.Device
}

// StateLister lists entity states.
type StateLister interface {
	States() []types.EntityState
}

// RateLimitSource reports the last seen rate-limit counters.
type RateLimitSource interface {
	RateLimits() types.RateLimits
}

// RateLimitFunc adapts a function to RateLimitSource.
type RateLimitFunc func() types.RateLimits

// RateLimits calls f.
func (f RateLimitFunc) RateLimits() types.RateLimits { return f() }

// BridgeCollector implements prometheus.Collector. Device and entity metrics
// are read from memory at scrape time; it never calls the gateway.
type BridgeCollector struct {
	devices  DeviceLister
	entities StateLister
	limits   RateLimitSource
	metrics  *MetricSet
}

// NewBridgeCollector creates a collector. Any source may be nil.
func NewBridgeCollector(devices DeviceLister, entities StateLister, limits RateLimitSource) *BridgeCollector {
	return &BridgeCollector{
		devices:  devices,
		entities: entities,
		limits:   limits,
		metrics:  newMetricSet(),
	}
}

// Describe implements prometheus.Collector.
func (c *BridgeCollector) Describe(ch chan<- *prometheus.Desc) {
	// Device metrics
	ch <- c.metrics.deviceAvailable
	ch <- c.metrics.deviceLastUpdate
	ch <- c.metrics.deviceRevision

	// Entity metrics
	ch <- c.metrics.entityAvailable
	ch <- c.metrics.entityOption
	ch <- c.metrics.entityValue

	// Rate-limit metrics
	ch <- c.metrics.rateLimit
	ch <- c.metrics.rateLimitRemaining

	// Traffic metrics
	c.metrics.requests.Describe(ch)
	c.metrics.requestDuration.Describe(ch)
	c.metrics.writes.Describe(ch)
	c.metrics.polls.Describe(ch)
	c.metrics.pollDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *BridgeCollector) Collect(ch chan<- prometheus.Metric) {
	if c.devices != nil {
		c.emitDeviceMetrics(ch)
	}
	if c.entities != nil {
		c.emitEntityMetrics(ch)
	}
	if c.limits != nil {
		c.emitRateLimitMetrics(ch)
	}

	c.metrics.requests.Collect(ch)
	c.metrics.requestDuration.Collect(ch)
	c.metrics.writes.Collect(ch)
	c.metrics.polls.Collect(ch)
	c.metrics.pollDuration.Collect(ch)
}

// emitDeviceMetrics emits availability and freshness per device.
func (c *BridgeCollector) emitDeviceMetrics(ch chan<- prometheus.Metric) {
	for _, d := range c.devices.List() {
		labels := []string{d.ID, d.Name()}
		ch <- prometheus.MustNewConstMetric(c.metrics.deviceAvailable, prometheus.GaugeValue, boolValue(d.Available()), labels...)
		if ts := d.LastUpdated(); !ts.IsZero() {
			ch <- prometheus.MustNewConstMetric(c.metrics.deviceLastUpdate, prometheus.GaugeValue, float64(ts.Unix()), labels...)
		}
		ch <- prometheus.MustNewConstMetric(c.metrics.deviceRevision, prometheus.CounterValue, float64(d.Revision()), labels...)
	}
}

// emitEntityMetrics emits availability, one-hot options and numeric states.
func (c *BridgeCollector) emitEntityMetrics(ch chan<- prometheus.Metric) {
	for _, s := range c.entities.States() {
		labels := []string{s.DeviceID, s.UniqueID, s.Platform}
		ch <- prometheus.MustNewConstMetric(c.metrics.entityAvailable, prometheus.GaugeValue, boolValue(s.Available), labels...)

		current := ""
		if s.State != nil {
			current = *s.State
		}
		seen := make(map[string]bool, len(s.Options))
		for _, opt := range s.Options {
			if seen[opt] {
				continue
			}
			seen[opt] = true
			value := 0.0
			if opt == current {
				value = 1.0
			}
			ch <- prometheus.MustNewConstMetric(c.metrics.entityOption, prometheus.GaugeValue, value, append(labels, opt)...)
		}

		if s.State != nil {
			if v, err := strconv.ParseFloat(*s.State, 64); err == nil {
				ch <- prometheus.MustNewConstMetric(c.metrics.entityValue, prometheus.GaugeValue, v, labels...)
			}
		}
	}
}

// emitRateLimitMetrics emits the last rate-limit counters once any were seen.
func (c *BridgeCollector) emitRateLimitMetrics(ch chan<- prometheus.Metric) {
	l := c.limits.RateLimits()
	if l.UpdatedAt.IsZero() {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.metrics.rateLimit, prometheus.GaugeValue, float64(l.LimitMinute), "minute")
	ch <- prometheus.MustNewConstMetric(c.metrics.rateLimit, prometheus.GaugeValue, float64(l.LimitDay), "day")
	ch <- prometheus.MustNewConstMetric(c.metrics.rateLimitRemaining, prometheus.GaugeValue, float64(l.RemainingMinute), "minute")
	ch <- prometheus.MustNewConstMetric(c.metrics.rateLimitRemaining, prometheus.GaugeValue, float64(l.RemainingDay), "day")
}

// ObserveRequest records one gateway exchange.
func (c *BridgeCollector) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	c.metrics.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	c.metrics.requestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// ObserveRateLimits is a no-op; rate limits are read from the client at scrape time.
func (c *BridgeCollector) ObserveRateLimits(types.RateLimits) {}

// ObserveWrite counts final write states.
func (c *BridgeCollector) ObserveWrite(target types.WriteTarget, state control.WriteState) {
	if state != control.WriteConfirmed && state != control.WriteFailed {
		return
	}
	c.metrics.writes.WithLabelValues(target.Characteristic, state.String()).Inc()
}

// ObservePoll records a poll attempt.
func (c *BridgeCollector) ObservePoll(outcome string, elapsed time.Duration) {
	c.metrics.polls.WithLabelValues(outcome).Inc()
	c.metrics.pollDuration.Observe(elapsed.Seconds())
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
