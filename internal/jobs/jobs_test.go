package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/settlement"
)

func newRedisLease(t *testing.T) (*RedisLease, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLease(rdb), mr
}

func TestRedisLeaseIsExclusive(t *testing.T) {
	lease, mr := newRedisLease(t)
	ctx := context.Background()

	token, ok, err := lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Чужой токен не снимает аренду.
	require.NoError(t, lease.Release(ctx, "k", "someone-else"))
	assert.True(t, mr.Exists("k"))

	require.NoError(t, lease.Release(ctx, "k", token))
	assert.False(t, mr.Exists("k"))

	_, ok, err = lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLeaseExpires(t *testing.T) {
	lease, mr := newRedisLease(t)
	ctx := context.Background()

	_, ok, err := lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok, err = lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

type fakeAccruer struct {
	mu        sync.Mutex
	guarded   []time.Time
	unguarded int
	err       error
	block     chan struct{}
}

func (f *fakeAccruer) AccrueDailyIncome(context.Context) (*settlement.AccrualReport, error) {
	f.mu.Lock()
	f.unguarded++
	f.mu.Unlock()
	return &settlement.AccrualReport{Credited: 1, Total: decimal.NewFromInt(50)}, f.err
}

func (f *fakeAccruer) AccrueDailyIncomeOn(_ context.Context, day time.Time) (*settlement.AccrualReport, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.guarded = append(f.guarded, day)
	f.mu.Unlock()
	return &settlement.AccrualReport{Day: common.DateKey(day), Credited: 2, Total: decimal.NewFromInt(100)}, f.err
}

func (f *fakeAccruer) Location() *time.Location { return time.UTC }

func TestAccrualJobModes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 0, 0, 5, 0, time.UTC)

	acc := &fakeAccruer{}
	job := NewAccrualJob(acc, nil, time.Minute, true)
	job.now = func() time.Time { return now }
	report, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-10", report.Day)
	require.Len(t, acc.guarded, 1)
	assert.Equal(t, now, acc.guarded[0])
	assert.Zero(t, acc.unguarded)

	legacy := NewAccrualJob(acc, nil, time.Minute, false)
	_, err = legacy.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.unguarded)
}

func TestAccrualJobHoldsLease(t *testing.T) {
	lease, mr := newRedisLease(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 0, 0, 5, 0, time.UTC)

	acc := &fakeAccruer{block: make(chan struct{})}
	first := NewAccrualJob(acc, lease, time.Minute, true)
	first.now = func() time.Time { return now }
	second := NewAccrualJob(acc, lease, time.Minute, true)
	second.now = first.now

	done := make(chan error, 1)
	go func() {
		_, err := first.Run(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return mr.Exists(LeaseKey(now)) }, time.Second, 5*time.Millisecond)

	_, err := second.Run(ctx)
	assert.ErrorIs(t, err, ErrLeaseHeld)

	close(acc.block)
	require.NoError(t, <-done)
	assert.False(t, mr.Exists(LeaseKey(now)), "lease released after run")
	assert.Len(t, acc.guarded, 1)
}

func TestAccrualJobReleasesLeaseOnError(t *testing.T) {
	lease, mr := newRedisLease(t)
	acc := &fakeAccruer{err: errors.New("db down")}
	job := NewAccrualJob(acc, lease, time.Minute, true)

	report, err := job.Run(context.Background())
	assert.Error(t, err)
	assert.NotNil(t, report)
	assert.Empty(t, mr.Keys())
}

func TestLeaseKey(t *testing.T) {
	assert.Equal(t, "goldmine:accrual:2026-01-02", LeaseKey(time.Date(2026, 1, 2, 23, 0, 0, 0, time.UTC)))
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	job := NewAccrualJob(&fakeAccruer{}, nil, time.Minute, true)
	_, err := NewScheduler(job, "every day", time.UTC, nil)
	assert.Error(t, err)

	s, err := NewScheduler(job, "0 0 * * *", time.UTC, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestSchedulerReportsToAdmins(t *testing.T) {
	var sent []string
	job := NewAccrualJob(&fakeAccruer{}, nil, time.Minute, true)
	s, err := NewScheduler(job, "0 0 * * *", time.UTC, func(text string) { sent = append(sent, text) })
	require.NoError(t, err)

	s.runAndReport(context.Background())
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Начислено: 2 на ₹100.00")
	assert.False(t, strings.Contains(sent[0], "Ошибок"))
}

func TestFormatReportWithFailures(t *testing.T) {
	text := FormatReport(&settlement.AccrualReport{Active: 3, Credited: 2, Failed: 1, Total: decimal.NewFromInt(100)}, errors.New("x"))
	assert.Contains(t, text, "без привязки к дню")
	assert.Contains(t, text, "Ошибок: 1")
}
