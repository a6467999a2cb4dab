package metrics

import "github.com/prometheus/client_golang/prometheus"

// Response sources recorded by ObserveResponse.
const (
	SourceModel       = "model"
	SourceEmpty       = "empty"
	SourceFallback    = "fallback"
	SourceCredential  = "credential"
	SourceQuota       = "quota"
	SourceRateLimited = "rate_limited"
)

// Submission outcomes recorded by ObserveSubmission.
const (
	OutcomeReply   = "reply"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
)

// Metrics exposes counters and histograms for the chat pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	responsesTotal   *prometheus.CounterVec
	generateLatency  prometheus.Histogram
	submissionsTotal *prometheus.CounterVec
	conversations    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		responsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "padi",
			Subsystem: "llm",
			Name:      "responses_total",
			Help:      "Generated responses by source",
		}, []string{"source"}),
		generateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "padi",
			Subsystem: "llm",
			Name:      "generate_duration_seconds",
			Help:      "Latency of model endpoint calls",
			Buckets:   prometheus.DefBuckets,
		}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "padi",
			Subsystem: "chat",
			Name:      "submissions_total",
			Help:      "Completed message submissions by outcome",
		}, []string{"outcome"}),
		conversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "padi",
			Subsystem: "chat",
			Name:      "conversations",
			Help:      "Conversations currently held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.responsesTotal, m.generateLatency, m.submissionsTotal, m.conversations)
	return m
}

func (m *Metrics) ObserveResponse(source string) {
	if m == nil {
		return
	}
	m.responsesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveGenerateLatency(seconds float64) {
	if m == nil {
		return
	}
	m.generateLatency.Observe(seconds)
}

func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetConversations(n int) {
	if m == nil {
		return
	}
	m.conversations.Set(float64(n))
}
