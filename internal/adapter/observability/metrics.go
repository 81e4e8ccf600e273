package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25},
		},
		[]string{"provider", "operation"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Tokens sent to and received from the model provider",
		},
		[]string{"provider", "kind"},
	)
	AICircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	// Answer outcome distributions
	AnswerScoreRatio = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "answer_score_ratio",
			Help:    "Distribution of score/max_score per evaluated answer",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"kind"},
	)
	FollowUpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "follow_up_questions_total",
			Help: "Follow-up decisions by source (reused, generated, unavailable)",
		},
		[]string{"source"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events published by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AITokensTotal)
	prometheus.MustRegister(AICircuitState)
	prometheus.MustRegister(AnswerScoreRatio)
	prometheus.MustRegister(FollowUpsTotal)
	prometheus.MustRegister(EventsPublishedTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAIRequest records one provider round trip.
func ObserveAIRequest(provider, operation, outcome string, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// ObserveAITokens adds prompt and completion token counts.
func ObserveAITokens(provider string, prompt, completion int) {
	if prompt > 0 {
		AITokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		AITokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// RecordCircuitState publishes the breaker state for name.
func RecordCircuitState(name string, state int) {
	AICircuitState.WithLabelValues(name).Set(float64(state))
}

// ObserveAnswerScore records score/maxScore for a main or follow-up answer.
func ObserveAnswerScore(kind string, score, maxScore int) {
	if maxScore <= 0 || score < 0 {
		return
	}
	ratio := float64(score) / float64(maxScore)
	if ratio > 1 {
		ratio = 1
	}
	AnswerScoreRatio.WithLabelValues(kind).Observe(ratio)
}

// CountFollowUp records how a follow-up decision was resolved.
func CountFollowUp(source string) {
	if source == "" {
		return
	}
	FollowUpsTotal.WithLabelValues(source).Inc()
}

// CountEvent records a publish attempt.
func CountEvent(topic string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	EventsPublishedTotal.WithLabelValues(topic, outcome).Inc()
}
