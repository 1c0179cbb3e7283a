package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/journal"
)

// AccrualReport: итог одного прохода начисления.
type AccrualReport struct {
	Day       string          `json:"day,omitempty"` // пусто для прохода без защиты по дню
	Active    int             `json:"active"`
	Credited  int             `json:"credited"`
	Completed int             `json:"completed"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Total     decimal.Decimal `json:"total"`
}

// AccrueDailyIncome начисляет дневной доход по всем активным покупкам.
// Защиты по дню нет: повторный вызов начислит ещё раз.
func (s *Service) AccrueDailyIncome(ctx context.Context) (*AccrualReport, error) {
	return s.accrue(ctx, nil)
}

// AccrueDailyIncomeOn начисляет доход за календарный день day. Покупки,
// по которым начисление за этот день уже было, пропускаются, поэтому
// вызов можно повторять и продолжать после сбоя.
func (s *Service) AccrueDailyIncomeOn(ctx context.Context, day time.Time) (*AccrualReport, error) {
	d := common.DayOf(day, s.loc)
	return s.accrue(ctx, &d)
}

func (s *Service) accrue(ctx context.Context, day *time.Time) (report *AccrualReport, err error) {
	report = &AccrualReport{Total: decimal.Zero}
	if day != nil {
		report.Day = common.DateKey(*day)
	}
	defer func() { s.metrics.ObserveAccrual(report.Credited, err) }()

	ids, err := s.store.ActivePurchaseIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("список активных покупок: %w", err)
	}
	report.Active = len(ids)

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		amount, completed, err := s.accrueOne(ctx, id, day)
		switch {
		case errors.Is(err, errSkipAccrual):
			report.Skipped++
		case err != nil:
			report.Failed++
			errs = append(errs, fmt.Errorf("purchase %s: %w", id, err))
			log.WithError(err).WithField("purchase_id", id).Error("Ошибка начисления по покупке")
		default:
			report.Credited++
			report.Total = report.Total.Add(amount)
			if completed {
				report.Completed++
			}
		}
	}

	log.WithFields(log.Fields{
		"day":       report.Day,
		"active":    report.Active,
		"credited":  report.Credited,
		"completed": report.Completed,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"total":     report.Total,
	}).Info("Начисление дневного дохода завершено")
	return report, errors.Join(errs...)
}

var errSkipAccrual = errors.New("skip accrual")

// accrueOne начисляет доход по одной покупке в собственной транзакции.
func (s *Service) accrueOne(ctx context.Context, id uuid.UUID, day *time.Time) (amount decimal.Decimal, completed bool, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.LockPurchase(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != journal.PurchaseActive {
			return errSkipAccrual
		}
		if day != nil && p.AccruedOn(*day) {
			return errSkipAccrual
		}

		acc, err := tx.LockAccount(ctx, p.UserID)
		if err != nil {
			return err
		}
		now := s.now()
		entry, err := accounts.Credit(acc, p.DailyIncome, accounts.KindDailyIncome, p.ID, now)
		if err != nil {
			return err
		}
		acc.TotalEarnings = acc.TotalEarnings.Add(p.DailyIncome)

		accrualDay := common.DayOf(now, s.loc)
		if day != nil {
			accrualDay = *day
		}
		completed = p.Accrue(accrualDay, now)
		amount = p.DailyIncome

		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.AppendEntries(ctx, entry); err != nil {
			return err
		}
		return tx.UpdatePurchase(ctx, p)
	})
	return amount, completed, err
}
