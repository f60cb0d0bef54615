package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics хранит метрики интервью в собственном реестре.
// Все методы безопасны для nil-получателя.
//
// Метрики:
//   - interview_sessions_started_total
//   - interview_sessions_completed_total{reason}
//   - interview_sessions_active
//   - interview_turns_total{action}
//   - interview_fallbacks_total{kind}
//   - interview_observer_step_seconds{step}
//   - interview_observer_step_failures_total{step}
//   - interview_api_calls_total{role,status}
//   - interview_api_call_seconds{role}
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted   prometheus.Counter
	SessionsCompleted *prometheus.CounterVec
	SessionsActive    prometheus.Gauge
	Turns             *prometheus.CounterVec
	Fallbacks         *prometheus.CounterVec
	StepDuration      *prometheus.HistogramVec
	StepFailures      *prometheus.CounterVec
	APICalls          *prometheus.CounterVec
	APICallDuration   *prometheus.HistogramVec
}

// NewMetrics создает метрики в новом реестре
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "interview_sessions_started_total",
			Help: "Total number of started interview sessions",
		}),
		SessionsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_sessions_completed_total",
			Help: "Total number of finished interview sessions by stop reason",
		}, []string{"reason"}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "interview_sessions_active",
			Help: "Number of sessions that have not produced a report yet",
		}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_turns_total",
			Help: "Total number of processed turns by interviewer action",
		}, []string{"action"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_fallbacks_total",
			Help: "Total number of fallback paths taken",
		}, []string{"kind"}),
		StepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_observer_step_seconds",
			Help:    "Duration of observer pipeline steps in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"step"}),
		StepFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_observer_step_failures_total",
			Help: "Total number of failed observer pipeline steps",
		}, []string{"step"}),
		APICalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_api_calls_total",
			Help: "Total number of completion service calls",
		}, []string{"role", "status"}),
		APICallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_api_call_seconds",
			Help:    "Duration of completion service calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"role"}),
	}
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP обработчик для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionStarted отмечает начало сессии
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// SessionCompleted отмечает завершение сессии
func (m *Metrics) SessionCompleted(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.SessionsCompleted.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()
}

// TurnProcessed отмечает обработанный ход
func (m *Metrics) TurnProcessed(action string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(action).Inc()
}

// Fallback отмечает срабатывание запасного пути
func (m *Metrics) Fallback(kind string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(kind).Inc()
}

// ObserveStep записывает длительность шага конвейера
func (m *Metrics) ObserveStep(step string, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(duration.Seconds())
	if failed {
		m.StepFailures.WithLabelValues(step).Inc()
	}
}

// RecordAPICall записывает вызов сервиса генерации
func (m *Metrics) RecordAPICall(role string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.APICalls.WithLabelValues(role, status).Inc()
	m.APICallDuration.WithLabelValues(role).Observe(duration.Seconds())
}
