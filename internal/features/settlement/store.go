// Package settlement: движок расчётов: все операции, меняющие баланс,
// и инварианты между ними.
// store.go описывает хранилище, с которым работает движок.
package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/journal"
)

// Reader: чтение без блокировок, для статистики и истории.
// Все методы возвращают common.ErrNotFound, если записи нет.
// Списки отсортированы от новых к старым.
type Reader interface {
	AccountByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error)
	AccountByHandle(ctx context.Context, handle string) (*accounts.Account, error)
	ListAccounts(ctx context.Context) ([]*accounts.Account, error)
	EntriesByUser(ctx context.Context, userID uuid.UUID) ([]accounts.Entry, error)

	ActivePurchaseIDs(ctx context.Context) ([]uuid.UUID, error)
	PurchasesByUser(ctx context.Context, userID uuid.UUID) ([]*journal.Purchase, error)
	RechargesByUser(ctx context.Context, userID uuid.UUID) ([]*journal.Recharge, error)
	WithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]*journal.Withdrawal, error)
	GamePlaysByUser(ctx context.Context, userID uuid.UUID) ([]*journal.GamePlay, error)

	// ListRecharges / ListWithdrawals: пустой status: все записи.
	ListRecharges(ctx context.Context, status journal.Status) ([]*journal.Recharge, error)
	ListWithdrawals(ctx context.Context, status journal.Status) ([]*journal.Withdrawal, error)
	CountPendingRechargesByUTR(ctx context.Context, utr string) (int, error)

	Summary(ctx context.Context) (*AdminSummary, error)
}

// Tx: операции внутри одной транзакции.
//
// Lock* берут эксклюзивную блокировку до конца транзакции. Блокировка
// записи журнала сначала блокирует аккаунт её владельца, поэтому порядок
// всегда «аккаунт → запись». Повторная блокировка в той же транзакции
// не ждёт.
type Tx interface {
	CreateAccount(ctx context.Context, acc *accounts.Account) error // ErrDuplicateUser при занятом хэндле
	LockAccount(ctx context.Context, id uuid.UUID) (*accounts.Account, error)
	LockAccountByHandle(ctx context.Context, handle string) (*accounts.Account, error)
	UpdateAccount(ctx context.Context, acc *accounts.Account) error
	AppendEntries(ctx context.Context, entries ...accounts.Entry) error

	PurchasesByUser(ctx context.Context, userID uuid.UUID) ([]*journal.Purchase, error)
	CreatePurchase(ctx context.Context, p *journal.Purchase) error
	LockPurchase(ctx context.Context, id uuid.UUID) (*journal.Purchase, error)
	UpdatePurchase(ctx context.Context, p *journal.Purchase) error

	CreateRecharge(ctx context.Context, r *journal.Recharge) error
	LockRecharge(ctx context.Context, id uuid.UUID) (*journal.Recharge, error)
	UpdateRecharge(ctx context.Context, r *journal.Recharge) error

	CreateWithdrawal(ctx context.Context, w *journal.Withdrawal) error
	// WithdrawalsByUserSince возвращает выводы, запрошенные строго позже since.
	WithdrawalsByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*journal.Withdrawal, error)
	LockWithdrawal(ctx context.Context, id uuid.UUID) (*journal.Withdrawal, error)
	UpdateWithdrawal(ctx context.Context, w *journal.Withdrawal) error

	CreateGamePlay(ctx context.Context, g *journal.GamePlay) error
}

// Store: хранилище движка. InTx выполняет fn в одной транзакции:
// любая ошибка fn откатывает все её изменения.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// AdminSummary: сводка для админ-панели.
type AdminSummary struct {
	TotalUsers         int `json:"totalUsers"`
	TotalPurchases     int `json:"totalPurchases"`
	ActivePurchases    int `json:"activePurchases"`
	TotalRecharges     int `json:"totalRecharges"`
	PendingRecharges   int `json:"pendingRecharges"`
	TotalWithdrawals   int `json:"totalWithdrawals"`
	PendingWithdrawals int `json:"pendingWithdrawals"`
	TotalGamePlays     int `json:"totalGamePlays"`
}
