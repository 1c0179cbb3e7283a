// Package accounts: ledger.go: единственные операции, меняющие баланс.
package accounts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/goldmine/internal/common"
)

// Credit зачисляет amount на баланс и возвращает запись журнала.
// Вызывающий обязан держать блокировку аккаунта.
func Credit(acc *Account, amount decimal.Decimal, kind Kind, ref uuid.UUID, at time.Time) (Entry, error) {
	if amount.IsNegative() {
		return Entry{}, fmt.Errorf("credit %s: %w", amount, common.ErrInvalidAmount)
	}
	acc.Balance = acc.Balance.Add(amount)
	return newEntry(acc, DirectionCredit, amount, kind, ref, at), nil
}

// Debit списывает amount с баланса. Баланс никогда не уходит в минус:
// при нехватке средств аккаунт не меняется и возвращается ErrInsufficientFunds.
func Debit(acc *Account, amount decimal.Decimal, kind Kind, ref uuid.UUID, at time.Time) (Entry, error) {
	if amount.IsNegative() {
		return Entry{}, fmt.Errorf("debit %s: %w", amount, common.ErrInvalidAmount)
	}
	if acc.Balance.LessThan(amount) {
		return Entry{}, common.ErrInsufficientFunds
	}
	acc.Balance = acc.Balance.Sub(amount)
	return newEntry(acc, DirectionDebit, amount, kind, ref, at), nil
}

func newEntry(acc *Account, dir Direction, amount decimal.Decimal, kind Kind, ref uuid.UUID, at time.Time) Entry {
	return Entry{
		ID:           uuid.New(),
		AccountID:    acc.ID,
		Direction:    dir,
		Amount:       amount,
		Kind:         kind,
		ReferenceID:  ref,
		BalanceAfter: acc.Balance,
		CreatedAt:    at,
	}
}

// Replay пересчитывает баланс по журналу движений.
func Replay(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Signed())
	}
	return sum
}
