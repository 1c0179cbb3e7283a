// Package metrics: счётчики Prometheus для операций кошелька,
// игр, задачи начисления и HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"serotonyl.ru/goldmine/internal/common"
)

// Metrics хранит все коллекторы сервиса.
type Metrics struct {
	Operations    *prometheus.CounterVec
	GamePlays     *prometheus.CounterVec
	AccrualCredit prometheus.Counter
	AccrualRuns   *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goldmine",
			Name:      "settlement_operations_total",
			Help:      "Settlement operations by name and outcome kind.",
		}, []string{"operation", "outcome"}),
		GamePlays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goldmine",
			Name:      "game_plays_total",
			Help:      "Settled game plays by variant and result.",
		}, []string{"variant", "result"}),
		AccrualCredit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goldmine",
			Name:      "accrual_credits_total",
			Help:      "Purchases credited with daily income.",
		}),
		AccrualRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goldmine",
			Name:      "accrual_runs_total",
			Help:      "Accrual job runs by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goldmine",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goldmine",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.Operations, m.GamePlays, m.AccrualCredit, m.AccrualRuns, m.HTTPRequests, m.HTTPDuration)
	return m
}

// ObserveOperation учитывает результат операции движка. Nil-safe.
func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(common.KindOf(err))
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
}

// ObserveGame учитывает сыгранную игру.
func (m *Metrics) ObserveGame(variant string, win bool) {
	if m == nil {
		return
	}
	result := "loss"
	if win {
		result = "win"
	}
	m.GamePlays.WithLabelValues(variant, result).Inc()
}

// ObserveAccrual учитывает запуск начисления и число зачислений.
func (m *Metrics) ObserveAccrual(credited int, err error) {
	if m == nil {
		return
	}
	m.AccrualCredit.Add(float64(credited))
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AccrualRuns.WithLabelValues(result).Inc()
}

// ObserveHTTP учитывает один HTTP-запрос.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
