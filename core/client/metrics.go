package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"example.com/tinyntp/base/metrics"
)

type clientMetrics struct {
	reqsSent        prometheus.Counter
	respsAccepted   prometheus.Counter
	timeouts        prometheus.Counter
	shortPackets    prometheus.Counter
	incompleteReads prometheus.Counter
	syncs           prometheus.Counter
	offset          prometheus.Gauge
}

// newClientMetrics registers the client's metrics with reg. A nil reg yields
// working but unregistered metrics.
func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	f := promauto.With(reg)
	return &clientMetrics{
		reqsSent: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientReqsSentN,
			Help: metrics.ClientReqsSentH,
		}),
		respsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientRespsAcceptedN,
			Help: metrics.ClientRespsAcceptedH,
		}),
		timeouts: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientTimeoutsN,
			Help: metrics.ClientTimeoutsH,
		}),
		shortPackets: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientShortPacketsN,
			Help: metrics.ClientShortPacketsH,
		}),
		incompleteReads: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientIncompleteReadsN,
			Help: metrics.ClientIncompleteReadsH,
		}),
		syncs: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientSyncsN,
			Help: metrics.ClientSyncsH,
		}),
		offset: f.NewGauge(prometheus.GaugeOpts{
			Name: metrics.ClientOffsetN,
			Help: metrics.ClientOffsetH,
		}),
	}
}
