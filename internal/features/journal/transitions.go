package journal

import (
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/goldmine/internal/common"
)

// resolve переводит заявку из pending в итоговый статус ровно один раз.
func resolve(status *Status, processedAt **time.Time, to Status, at time.Time) error {
	if *status != StatusPending {
		return common.ErrAlreadyProcessed
	}
	*status = to
	*processedAt = &at
	return nil
}

// Approve помечает пополнение одобренным.
func (r *Recharge) Approve(at time.Time) error {
	return resolve(&r.Status, &r.ProcessedAt, StatusApproved, at)
}

// Reject помечает пополнение отклонённым.
func (r *Recharge) Reject(at time.Time) error {
	return resolve(&r.Status, &r.ProcessedAt, StatusRejected, at)
}

// Approve помечает вывод одобренным.
func (w *Withdrawal) Approve(at time.Time) error {
	return resolve(&w.Status, &w.ProcessedAt, StatusApproved, at)
}

// Reject помечает вывод отклонённым.
func (w *Withdrawal) Reject(at time.Time) error {
	return resolve(&w.Status, &w.ProcessedAt, StatusRejected, at)
}

// AccruedOn сообщает, было ли уже начисление за день day (или позже).
// Сравниваются календарные даты: колонка DATE возвращается полночью UTC,
// а day приходит полночью в поясе приложения.
func (p *Purchase) AccruedOn(day time.Time) bool {
	return p.LastAccruedOn != nil && common.DateKey(*p.LastAccruedOn) >= common.DateKey(day)
}

// Accrue учитывает дневной доход и закрывает план, когда получено
// не меньше TotalReturn. Возвращает true, если план завершился.
func (p *Purchase) Accrue(day, at time.Time) bool {
	p.IncomeReceived = p.IncomeReceived.Add(p.DailyIncome)
	p.LastAccruedOn = &day
	if p.IncomeReceived.GreaterThanOrEqual(p.TotalReturn) {
		p.Status = PurchaseCompleted
		p.CompletedAt = &at
		return true
	}
	return false
}

// WithdrawalTax считает налог с вывода: amount × rate с округлением до копеек.
func WithdrawalTax(amount, rate decimal.Decimal) (tax, net decimal.Decimal) {
	tax = amount.Mul(rate).Round(2)
	return tax, amount.Sub(tax)
}
