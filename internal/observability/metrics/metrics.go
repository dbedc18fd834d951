package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the inbound message
// pipeline. A nil *PipelineMetrics is safe: every observe method no-ops.
type PipelineMetrics struct {
	inboundTotal  *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
	tokensTotal   *prometheus.CounterVec
	voiceReplies  prometheus.Counter
	commandsTotal *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nipponflex",
			Subsystem: "pipeline",
			Name:      "inbound_total",
			Help:      "Inbound webhook events by terminal status",
		}, []string{"status", "modality"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nipponflex",
			Subsystem: "pipeline",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of one conversational turn",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"status"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nipponflex",
			Subsystem: "pipeline",
			Name:      "llm_tokens_total",
			Help:      "LLM tokens consumed",
		}, []string{"kind"}),
		voiceReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nipponflex",
			Subsystem: "pipeline",
			Name:      "voice_replies_total",
			Help:      "Replies delivered as voice notes",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nipponflex",
			Subsystem: "pipeline",
			Name:      "appointment_commands_total",
			Help:      "Appointment commands extracted from model replies",
		}, []string{"action", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.turnLatency, m.tokensTotal, m.voiceReplies, m.commandsTotal)
	return m
}

func (m *PipelineMetrics) ObserveInbound(status, modality string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status, modality).Inc()
}

func (m *PipelineMetrics) ObserveTurnLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(status).Observe(seconds)
}

func (m *PipelineMetrics) ObserveTokens(prompt, completion int) {
	if m == nil {
		return
	}
	m.tokensTotal.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensTotal.WithLabelValues("completion").Add(float64(completion))
}

func (m *PipelineMetrics) ObserveVoiceReply() {
	if m == nil {
		return
	}
	m.voiceReplies.Inc()
}

func (m *PipelineMetrics) ObserveCommand(action, outcome string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(action, outcome).Inc()
}
