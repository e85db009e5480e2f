package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rfnode-go/types"
)

// NewRegistry returns a private registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// GatewayMetrics are the radio exchange and node gauges.
type GatewayMetrics struct {
	ExchangeTotal   *prometheus.CounterVec   // labels: command, result
	ExchangeSeconds *prometheus.HistogramVec // labels: command
	BatteryMV       prometheus.Gauge
	NodeAsleep      prometheus.Gauge
	Rejected        *prometheus.CounterVec // labels: reason
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		ExchangeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfgw_exchange_total",
			Help: "Radio exchanges by command verb and result code.",
		}, []string{"command", "result"}),
		ExchangeSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rfgw_exchange_seconds",
			Help:    "Radio exchange latency, send to reply.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 1.5, 2, 3, 5},
		}, []string{"command"}),
		BatteryMV: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rfgw_node_battery_millivolts",
			Help: "Last battery reading reported by the node.",
		}),
		NodeAsleep: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rfgw_node_asleep",
			Help: "1 while the node is inside a scheduled sleep window.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfgw_request_rejected_total",
			Help: "HTTP requests refused before reaching the radio.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.ExchangeTotal, m.ExchangeSeconds, m.BatteryMV, m.NodeAsleep, m.Rejected)
	return m
}

// ObserveExchange records one finished exchange. Nil receivers are no-ops so
// tests can run without a registry.
func (m *GatewayMetrics) ObserveExchange(r types.ExchangeResult) {
	if m == nil {
		return
	}
	verb := types.Verb(r.Command)
	m.ExchangeTotal.WithLabelValues(verb, r.Code).Inc()
	m.ExchangeSeconds.WithLabelValues(verb).Observe(r.Latency.Seconds())
}

func (m *GatewayMetrics) SetBattery(mv uint32) {
	if m == nil {
		return
	}
	m.BatteryMV.Set(float64(mv))
}

func (m *GatewayMetrics) SetAsleep(asleep bool) {
	if m == nil {
		return
	}
	if asleep {
		m.NodeAsleep.Set(1)
	} else {
		m.NodeAsleep.Set(0)
	}
}

func (m *GatewayMetrics) Reject(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}
