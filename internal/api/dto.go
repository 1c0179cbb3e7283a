package api

import (
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/journal"
)

type registerInput struct {
	Name         string `json:"name"         validate:"required,max=100"`
	Mobile       string `json:"mobile"       validate:"required,max=32"`
	Password     string `json:"password"     validate:"required,max=128"`
	ReferralCode string `json:"referralCode" validate:"omitempty,max=32"`
}

type loginInput struct {
	Mobile   string `json:"mobile"   validate:"required"`
	Password string `json:"password" validate:"required"`
}

type purchaseInput struct {
	PlanID int `json:"planId" validate:"required,gt=0"`
}

// Суммы проверяет движок: положительные, не больше двух знаков.
type rechargeInput struct {
	Amount decimal.Decimal `json:"amount"`
	UTR    string          `json:"utr"    validate:"required,max=64"`
}

type withdrawInput struct {
	Amount  decimal.Decimal `json:"amount"`
	Method  string          `json:"method"  validate:"required,oneof=upi bank"`
	Details string          `json:"details" validate:"required,max=256"`
}

type playInput struct {
	GameType  string          `json:"gameType"  validate:"required"`
	BetAmount decimal.Decimal `json:"betAmount"`
}

// userView: аккаунт в ответах регистрации и входа.
type userView struct {
	*accounts.Account
	ReferralLink string `json:"referralLink"`
}

type sessionOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userView  `json:"user"`
}

type playOutput struct {
	Game       *journal.GamePlay `json:"gameResult"`
	NewBalance decimal.Decimal   `json:"newBalance"`
	Win        bool              `json:"win"`
	Winnings   decimal.Decimal   `json:"winnings"`
}

// Созданные и обработанные записи отдаются под именем сущности,
// как их читает веб-клиент: data.withdrawal.netAmount.
type purchaseOutput struct {
	Purchase *journal.Purchase `json:"purchase"`
}

type rechargeOutput struct {
	Recharge *journal.Recharge `json:"recharge"`
}

type withdrawalOutput struct {
	Withdrawal *journal.Withdrawal `json:"withdrawal"`
}
