package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the chat engine.
type ConversationMetrics struct {
	intentsTotal    *prometheus.CounterVec
	languagesTotal  *prometheus.CounterVec
	flowStepsTotal  *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	injectionsTotal prometheus.Counter
	turnLatency     prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "conversation",
			Name:      "intents_total",
			Help:      "Classified intents by name and source",
		}, []string{"intent", "source"}),
		languagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "conversation",
			Name:      "languages_total",
			Help:      "Detected message languages",
		}, []string{"language"}),
		flowStepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "conversation",
			Name:      "flow_steps_total",
			Help:      "Flow steps served, by flow and step",
		}, []string{"flow", "step"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "booking",
			Name:      "validation_rejections_total",
			Help:      "Booking validation rejections by rule",
		}, []string{"rule"}),
		injectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "conversation",
			Name:      "injection_attempts_total",
			Help:      "Messages refused by the injection guard",
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one chat turn end to end",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.intentsTotal, m.languagesTotal, m.flowStepsTotal,
		m.rejectionsTotal, m.injectionsTotal, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveIntent(intent, source string) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(intent, source).Inc()
}

func (m *ConversationMetrics) ObserveLanguage(lang string) {
	if m == nil {
		return
	}
	m.languagesTotal.WithLabelValues(lang).Inc()
}

func (m *ConversationMetrics) ObserveFlowStep(flow, step string) {
	if m == nil {
		return
	}
	m.flowStepsTotal.WithLabelValues(flow, step).Inc()
}

func (m *ConversationMetrics) ObserveRejection(rule string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(rule).Inc()
}

func (m *ConversationMetrics) ObserveInjection() {
	if m == nil {
		return
	}
	m.injectionsTotal.Inc()
}

func (m *ConversationMetrics) ObserveTurnLatency(seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.Observe(seconds)
}
