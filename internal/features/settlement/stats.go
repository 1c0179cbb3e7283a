package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/journal"
	"serotonyl.ru/goldmine/internal/features/plans"
)

// UserStats: сводка для личного кабинета.
type UserStats struct {
	Balance        decimal.Decimal `json:"balance"`
	TotalInvested  decimal.Decimal `json:"totalInvested"`
	TotalWithdrawn decimal.Decimal `json:"totalWithdrawn"`
	TotalEarnings  decimal.Decimal `json:"totalEarnings"`
	ActivePlans    int             `json:"activePlans"`
	ReferralLink   string          `json:"referralLink"`
}

// Account возвращает аккаунт по ID.
func (s *Service) Account(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	return s.store.AccountByID(ctx, id)
}

// AccountByHandle возвращает аккаунт по хэндлу.
func (s *Service) AccountByHandle(ctx context.Context, handle string) (*accounts.Account, error) {
	return s.store.AccountByHandle(ctx, handle)
}

// ReferralLink: ссылка, по которой зарегистрированный пользователь
// приглашает других. Реферер находится по хэндлу.
func (s *Service) ReferralLink(acc *accounts.Account) string {
	return s.cfg.ReferralBaseURL + acc.Handle
}

// GetUserStats собирает сводку по кошельку вызывающего.
func (s *Service) GetUserStats(ctx context.Context, caller Caller) (*UserStats, error) {
	acc, err := s.store.AccountByID(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	purchases, err := s.store.PurchasesByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	active := 0
	for _, p := range purchases {
		if p.Status == journal.PurchaseActive {
			active++
		}
	}
	return &UserStats{
		Balance:        acc.Balance,
		TotalInvested:  acc.TotalInvested,
		TotalWithdrawn: acc.TotalWithdrawn,
		TotalEarnings:  acc.TotalEarnings,
		ActivePlans:    active,
		ReferralLink:   s.ReferralLink(acc),
	}, nil
}

// GetAdminSummary: сводка для админ-панели.
func (s *Service) GetAdminSummary(ctx context.Context, caller Caller) (*AdminSummary, error) {
	if err := caller.requireAdmin(); err != nil {
		return nil, err
	}
	return s.store.Summary(ctx)
}

// ListPlans возвращает каталог планов.
func (s *Service) ListPlans() []plans.Plan {
	return s.catalog.List()
}

// Purchases: покупки вызывающего.
func (s *Service) Purchases(ctx context.Context, caller Caller) ([]*journal.Purchase, error) {
	return s.store.PurchasesByUser(ctx, caller.ID)
}

// RechargeHistory: заявки на пополнение вызывающего.
func (s *Service) RechargeHistory(ctx context.Context, caller Caller) ([]*journal.Recharge, error) {
	return s.store.RechargesByUser(ctx, caller.ID)
}

// WithdrawalHistory: заявки на вывод вызывающего.
func (s *Service) WithdrawalHistory(ctx context.Context, caller Caller) ([]*journal.Withdrawal, error) {
	return s.store.WithdrawalsByUser(ctx, caller.ID)
}

// GameHistory: сыгранные игры вызывающего.
func (s *Service) GameHistory(ctx context.Context, caller Caller) ([]*journal.GamePlay, error) {
	return s.store.GamePlaysByUser(ctx, caller.ID)
}

// Transactions: журнал движений по балансу вызывающего.
func (s *Service) Transactions(ctx context.Context, caller Caller) ([]accounts.Entry, error) {
	return s.store.EntriesByUser(ctx, caller.ID)
}

// ListUsers: все пользователи (админ).
func (s *Service) ListUsers(ctx context.Context, caller Caller) ([]*accounts.Account, error) {
	if err := caller.requireAdmin(); err != nil {
		return nil, err
	}
	return s.store.ListAccounts(ctx)
}

// ListRecharges: заявки на пополнение с фильтром по статусу (админ).
func (s *Service) ListRecharges(ctx context.Context, caller Caller, status journal.Status) ([]*journal.Recharge, error) {
	if err := caller.requireAdmin(); err != nil {
		return nil, err
	}
	return s.store.ListRecharges(ctx, status)
}

// ListWithdrawals: заявки на вывод с фильтром по статусу (админ).
func (s *Service) ListWithdrawals(ctx context.Context, caller Caller, status journal.Status) ([]*journal.Withdrawal, error) {
	if err := caller.requireAdmin(); err != nil {
		return nil, err
	}
	return s.store.ListWithdrawals(ctx, status)
}
