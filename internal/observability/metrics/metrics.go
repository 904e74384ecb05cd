package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the WhatsApp webhook
// pipeline and outbound messaging.
type PipelineMetrics struct {
	inboundTotal      *prometheus.CounterVec
	outboundTotal     *prometheus.CounterVec
	appointmentsTotal *prometheus.CounterVec
	remindersTotal    *prometheus.CounterVec
	webhookLatency    *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendai",
			Subsystem: "pipeline",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhooks",
		}, []string{"message_type", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendai",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"status"}),
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendai",
			Subsystem: "pipeline",
			Name:      "appointments_total",
			Help:      "Appointments created or rejected by the pipeline",
		}, []string{"outcome"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendai",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Reminder sweep outcomes",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agendai",
			Subsystem: "pipeline",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of WhatsApp webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"message_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.appointmentsTotal, m.remindersTotal, m.webhookLatency)
	return m
}

func (m *PipelineMetrics) ObserveInbound(messageType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(messageType, status).Inc()
}

func (m *PipelineMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

// ObserveAppointment records a pipeline booking outcome: created, conflict,
// incomplete, or error.
func (m *PipelineMetrics) ObserveAppointment(outcome string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) ObserveReminder(status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveWebhookLatency(messageType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(messageType).Observe(seconds)
}
