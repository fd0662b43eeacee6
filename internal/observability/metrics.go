package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesTx = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bactl",
			Subsystem: "ba",
			Name:      "frames_tx_total",
			Help:      "Block-ack action frames emitted, by action type.",
		},
		[]string{"action"},
	)
	framesRx = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bactl",
			Subsystem: "ba",
			Name:      "frames_rx_total",
			Help:      "Block-ack action frames received, by action type and outcome.",
		},
		[]string{"action", "outcome"},
	)
	timeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bactl",
			Subsystem: "ba",
			Name:      "timeouts_total",
			Help:      "Timer expirations that reached the engine, by kind.",
		},
		[]string{"kind"},
	)
	teardowns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bactl",
			Subsystem: "ba",
			Name:      "teardowns_total",
			Help:      "Agreement teardowns, by origin.",
		},
		[]string{"origin"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTx, framesRx, timeouts, teardowns)
	})
}

func RecordFrameTx(action string) {
	RegisterMetrics()
	framesTx.WithLabelValues(action).Inc()
}

func RecordFrameRx(action, outcome string) {
	RegisterMetrics()
	framesRx.WithLabelValues(action, outcome).Inc()
}

func RecordTimeout(kind string) {
	RegisterMetrics()
	timeouts.WithLabelValues(kind).Inc()
}

func RecordTeardown(origin string) {
	RegisterMetrics()
	teardowns.WithLabelValues(origin).Inc()
}
