package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label names.
const (
	LabelDeviceID   = "device_id"
	LabelDeviceName = "device_name"
	LabelUniqueID   = "unique_id"
	LabelPlatform   = "platform"
	LabelOption     = "option"
	LabelWindow     = "window"
	LabelMethod     = "method"
	LabelEndpoint   = "endpoint"
	LabelStatus     = "status"
	LabelChar       = "characteristic"
	LabelState      = "state"
	LabelOutcome    = "outcome"
)

// MetricSet holds all Prometheus metric descriptors for the bridge.
type MetricSet struct {
	// Device metrics
	deviceAvailable  *prometheus.Desc
	deviceLastUpdate *prometheus.Desc
	deviceRevision   *prometheus.Desc

	// Entity metrics
	entityAvailable *prometheus.Desc
	entityOption    *prometheus.Desc
	entityValue     *prometheus.Desc

	// Rate-limit metrics
	rateLimit          *prometheus.Desc
	rateLimitRemaining *prometheus.Desc

	// Gateway traffic
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	writes          *prometheus.CounterVec
	polls           *prometheus.CounterVec
	pollDuration    prometheus.Histogram
}

// newMetricSet creates all metric descriptors.
func newMetricSet() *MetricSet {
	deviceLabels := []string{LabelDeviceID, LabelDeviceName}
	entityLabels := []string{LabelDeviceID, LabelUniqueID, LabelPlatform}

	return &MetricSet{
		deviceAvailable: prometheus.NewDesc(
			"onecta_device_available",
			"Cloud connection up (1) / down (0)",
			deviceLabels, nil,
		),
		deviceLastUpdate: prometheus.NewDesc(
			"onecta_device_last_update_unix",
			"Last successful snapshot (unix seconds)",
			deviceLabels, nil,
		),
		deviceRevision: prometheus.NewDesc(
			"onecta_device_snapshot_revision",
			"Number of full snapshots applied to the device",
			deviceLabels, nil,
		),

		entityAvailable: prometheus.NewDesc(
			"onecta_entity_available",
			"Entity available (1) / unavailable (0)",
			entityLabels, nil,
		),
		entityOption: prometheus.NewDesc(
			"onecta_entity_option",
			"Entity options one-hot (1 for current, 0 for others)",
			append(entityLabels, LabelOption), nil,
		),
		entityValue: prometheus.NewDesc(
			"onecta_entity_value",
			"Numeric entity state",
			entityLabels, nil,
		),

		rateLimit: prometheus.NewDesc(
			"onecta_rate_limit",
			"Gateway request allowance per window",
			[]string{LabelWindow}, nil,
		),
		rateLimitRemaining: prometheus.NewDesc(
			"onecta_rate_limit_remaining",
			"Gateway requests remaining per window",
			[]string{LabelWindow}, nil,
		),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onecta_gateway_requests_total",
			Help: "Gateway requests by method, endpoint and status (0 for transport errors)",
		}, []string{LabelMethod, LabelEndpoint, LabelStatus}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onecta_gateway_request_duration_seconds",
			Help:    "Time spent in gateway requests",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{LabelMethod, LabelEndpoint}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onecta_writes_total",
			Help: "Characteristic writes by final state",
		}, []string{LabelChar, LabelState}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onecta_polls_total",
			Help: "Poll attempts by outcome",
		}, []string{LabelOutcome}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "onecta_poll_duration_seconds",
			Help:    "Time spent in poll attempts",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		}),
	}
}
