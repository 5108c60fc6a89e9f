// Package metrics exposes Prometheus metrics of the serial link and
// the bridge.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l1/msgs"
)

// ResultOK is the result label of a successful request.
const ResultOK = "ok"

// NewRegistry creates a Registry with Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Metrics collects request statistics. It implements l0 comm.Observer
// for the serial link and comm.ServerObserver for the bridge.
type Metrics struct {
	SerialRequests  *prometheus.CounterVec   // labels: cmd, result
	SerialRegisters *prometheus.CounterVec   // labels: cmd
	SerialDuration  *prometheus.HistogramVec // labels: cmd
	BridgeRequests  *prometheus.CounterVec   // labels: op, result
	BridgeDuration  *prometheus.HistogramVec // labels: op
}

// New registers and returns the metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SerialRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servo2040_serial_requests_total",
			Help: "Frames exchanged on the serial link.",
		}, []string{"cmd", "result"}),
		SerialRegisters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servo2040_serial_registers_total",
			Help: "Registers carried by frames on the serial link.",
		}, []string{"cmd"}),
		SerialDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "servo2040_serial_request_duration_seconds",
			Help:    "Round trip time of serial frames.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"cmd"}),
		BridgeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servo2040_bridge_requests_total",
			Help: "Requests handled by the bridge.",
		}, []string{"op", "result"}),
		BridgeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "servo2040_bridge_request_duration_seconds",
			Help:    "Time handling bridged requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.SerialRequests, m.SerialRegisters, m.SerialDuration, m.BridgeRequests, m.BridgeDuration)
	return m
}

// ObserveRequest implements l0 comm.Observer.
func (m *Metrics) ObserveRequest(cmd l0.Command, start byte, count int, err error, elapsed time.Duration) {
	name := cmd.String()
	m.SerialRequests.WithLabelValues(name, result(err)).Inc()
	if err == nil {
		m.SerialRegisters.WithLabelValues(name).Add(float64(count))
	}
	m.SerialDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveReply implements comm.ServerObserver.
func (m *Metrics) ObserveReply(req *msgs.RegisterRequest, reply *msgs.RegisterReply, elapsed time.Duration) {
	op := req.Op.String()
	res := ResultOK
	if reply.Code != "" {
		res = reply.Code
	}
	m.BridgeRequests.WithLabelValues(op, res).Inc()
	m.BridgeDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func result(err error) string {
	if err == nil {
		return ResultOK
	}
	return msgs.ErrorCode(err)
}
