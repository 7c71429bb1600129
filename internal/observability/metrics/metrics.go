package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrchestratorMetrics exposes counters/histograms for the message flow.
type OrchestratorMetrics struct {
	inboundTotal   *prometheus.CounterVec
	decisionsTotal *prometheus.CounterVec
	flowLatency    *prometheus.HistogramVec
}

func NewOrchestratorMetrics(reg prometheus.Registerer) *OrchestratorMetrics {
	m := &OrchestratorMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalaid",
			Subsystem: "orchestrator",
			Name:      "inbound_total",
			Help:      "Total inbound chat messages",
		}, []string{"channel", "status"}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalaid",
			Subsystem: "orchestrator",
			Name:      "flow_decisions_total",
			Help:      "Flow decisions by mode and resulting step",
		}, []string{"flow_mode", "step"}),
		flowLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "legalaid",
			Subsystem: "orchestrator",
			Name:      "flow_latency_seconds",
			Help:      "Latency of processing one inbound message",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow_mode"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.decisionsTotal, m.flowLatency)
	return m
}

func (m *OrchestratorMetrics) ObserveInbound(channel, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *OrchestratorMetrics) ObserveDecision(flowMode, step string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(flowMode, step).Inc()
}

func (m *OrchestratorMetrics) ObserveFlowLatency(flowMode string, seconds float64) {
	if m == nil {
		return
	}
	m.flowLatency.WithLabelValues(flowMode).Observe(seconds)
}
