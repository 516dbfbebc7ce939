package dataport

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	bytesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataport_bytes_written_total",
		Help: "Total bytes committed into a dataport by the producer side.",
	}, []string{"port"})

	bytesRead = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataport_bytes_read_total",
		Help: "Total bytes committed out of a dataport by the consumer side.",
	}, []string{"port"})

	occupancyBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dataport_occupancy_bytes",
		Help: "Bytes currently buffered in a dataport, as last observed locally.",
	}, []string{"port"})
)

func init() {
	prometheus.MustRegister(bytesWritten, bytesRead, occupancyBytes)
}

// portStats caches the per-port label children so the hot path never touches
// the vec lookup.
type portStats struct {
	written   prometheus.Counter
	read      prometheus.Counter
	occupancy prometheus.Gauge
}

func newPortStats(name string) *portStats {
	return &portStats{
		written:   bytesWritten.WithLabelValues(name),
		read:      bytesRead.WithLabelValues(name),
		occupancy: occupancyBytes.WithLabelValues(name),
	}
}
