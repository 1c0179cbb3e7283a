package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"serotonyl.ru/goldmine/internal/common"
)

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("purchase_plan", nil)
	m.ObserveOperation("purchase_plan", fmt.Errorf("x: %w", common.ErrInsufficientFunds))
	m.ObserveOperation("purchase_plan", errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("purchase_plan", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("purchase_plan", "insufficient_funds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("purchase_plan", "internal")))
}

func TestObserveAccrualAndGames(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAccrual(3, nil)
	m.ObserveAccrual(2, errors.New("partial"))
	m.ObserveGame("dice", true)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.AccrualCredit))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccrualRuns.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GamePlays.WithLabelValues("dice", "win")))
}

func TestObserveHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP("GET", "/api/plans", 200, 5*time.Millisecond)
	m.ObserveHTTP("GET", "/api/plans", 404, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/plans", "4xx")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("x", nil)
		m.ObserveGame("slot", false)
		m.ObserveAccrual(1, nil)
		m.ObserveHTTP("GET", "/", 200, 0)
	})
}
