// Package accounts: кошельки пользователей.
// models.go описывает аккаунт и запись журнала движений по балансу.
package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account: пользователь платформы вместе с его кошельком.
// Баланс меняется только через Credit/Debit внутри транзакции хранилища.
type Account struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Handle         string          `db:"handle" json:"mobile"` // уникальный номер телефона
	Name           string          `db:"name" json:"name"`
	PasswordHash   string          `db:"password_hash" json:"-"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	TotalInvested  decimal.Decimal `db:"total_invested" json:"totalInvested"`
	TotalWithdrawn decimal.Decimal `db:"total_withdrawn" json:"totalWithdrawn"`
	TotalEarnings  decimal.Decimal `db:"total_earnings" json:"totalEarnings"`
	IsAdmin        bool            `db:"is_admin" json:"isAdmin"`
	ReferrerID     *uuid.UUID      `db:"referrer_id" json:"referredBy,omitempty"` // слабая ссылка, может указывать в никуда
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// Direction: направление движения средств.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Kind: причина движения средств.
type Kind string

const (
	KindRecharge      Kind = "recharge"       // Одобренное пополнение
	KindPlanPurchase  Kind = "plan_purchase"  // Покупка плана
	KindDailyIncome   Kind = "daily_income"   // Ежедневный доход по плану
	KindWithdrawal    Kind = "withdrawal"     // Одобренный вывод (брутто)
	KindGameStake     Kind = "game_stake"     // Ставка в игре
	KindGamePayout    Kind = "game_payout"    // Выигрыш в игре
	KindReferralBonus Kind = "referral_bonus" // Бонус за приглашённого
)

// Entry: одна запись журнала движений. Сумма всегда неотрицательна,
// знак задаёт Direction. Для каждого аккаунта
// Balance == Σ(credit) − Σ(debit).
type Entry struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	AccountID    uuid.UUID       `db:"account_id" json:"userId"`
	Direction    Direction       `db:"direction" json:"direction"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Kind         Kind            `db:"kind" json:"type"`
	ReferenceID  uuid.UUID       `db:"reference_id" json:"referenceId"` // запись журнала заявок, породившая движение
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balanceAfter"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

// Signed возвращает сумму со знаком: плюс для зачисления, минус для списания.
func (e Entry) Signed() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}
