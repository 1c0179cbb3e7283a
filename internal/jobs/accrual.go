package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/settlement"
)

// ErrLeaseHeld: начисление уже выполняет другой экземпляр.
var ErrLeaseHeld = errors.New("accrual is already running")

// Accruer: часть движка расчётов, нужная задаче начисления.
type Accruer interface {
	AccrueDailyIncome(ctx context.Context) (*settlement.AccrualReport, error)
	AccrueDailyIncomeOn(ctx context.Context, day time.Time) (*settlement.AccrualReport, error)
	Location() *time.Location
}

// AccrualJob начисляет дневной доход под арендой на текущие сутки.
type AccrualJob struct {
	accruer    Accruer
	lease      Lease
	leaseTTL   time.Duration
	idempotent bool
	now        func() time.Time
}

// NewAccrualJob создаёт задачу. lease == nil: аренда не нужна.
func NewAccrualJob(accruer Accruer, lease Lease, leaseTTL time.Duration, idempotent bool) *AccrualJob {
	if lease == nil {
		lease = NoopLease{}
	}
	return &AccrualJob{
		accruer:    accruer,
		lease:      lease,
		leaseTTL:   leaseTTL,
		idempotent: idempotent,
		now:        time.Now,
	}
}

// LeaseKey: ключ аренды для суток day.
func LeaseKey(day time.Time) string {
	return "goldmine:accrual:" + common.DateKey(day)
}

// Run выполняет один проход начисления.
func (j *AccrualJob) Run(ctx context.Context) (*settlement.AccrualReport, error) {
	now := j.now()
	key := LeaseKey(common.DayOf(now, j.accruer.Location()))

	token, ok, err := j.lease.Acquire(ctx, key, j.leaseTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.WithField("lease", key).Info("Начисление уже выполняется другим экземпляром")
		return nil, ErrLeaseHeld
	}
	defer func() {
		// Контекст запуска может быть уже отменён, аренду снимаем отдельно.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := j.lease.Release(releaseCtx, key, token); err != nil {
			log.WithError(err).WithField("lease", key).Warn("Не удалось снять аренду")
		}
	}()

	var report *settlement.AccrualReport
	if j.idempotent {
		report, err = j.accruer.AccrueDailyIncomeOn(ctx, now)
	} else {
		report, err = j.accruer.AccrueDailyIncome(ctx)
	}
	if err != nil {
		return report, fmt.Errorf("начисление дохода: %w", err)
	}
	return report, nil
}
