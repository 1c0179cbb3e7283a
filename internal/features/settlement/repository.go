// Package settlement: repository.go: хранилище движка на PostgreSQL.
// Все изменения выполняются в транзакциях pgx, блокировки: SELECT ... FOR UPDATE.
// NUMERIC читается как ::text и разбирается в decimal.Decimal,
// записывается строкой: без потери точности на float.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/db/postgres"
	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/journal"
)

// Repository: Store поверх пула pgx.
type Repository struct {
	queries
	db *pgxpool.Pool
}

var (
	_ Store = (*Repository)(nil)
	_ Tx    = (*pgTx)(nil)
)

// NewRepository создаёт хранилище на PostgreSQL.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{queries: queries{q: db}, db: db}
}

// InTx выполняет fn в транзакции БД.
func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&pgTx{queries: queries{q: tx}})
	})
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries: запросы, общие для пула и транзакции.
type queries struct {
	q querier
}

type pgTx struct {
	queries
}

func notFound(err error, what string, key any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, key, common.ErrNotFound)
	}
	return fmt.Errorf("ошибка чтения %s %v: %w", what, key, err)
}

func parseMoney(dst *decimal.Decimal, raw string) error {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("некорректная сумма %q: %w", raw, err)
	}
	*dst = d
	return nil
}

func parseMoneys(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := parseMoney(pairs[i].(*decimal.Decimal), pairs[i+1].(string)); err != nil {
			return err
		}
	}
	return nil
}

// --- аккаунты ---

const accountColumns = `id, handle, name, password_hash, balance::text, total_invested::text,
	total_withdrawn::text, total_earnings::text, is_admin, referrer_id, created_at`

func scanAccount(row pgx.Row) (*accounts.Account, error) {
	var (
		acc                                   accounts.Account
		balance, invested, withdrawn, earnings string
	)
	err := row.Scan(&acc.ID, &acc.Handle, &acc.Name, &acc.PasswordHash, &balance, &invested,
		&withdrawn, &earnings, &acc.IsAdmin, &acc.ReferrerID, &acc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := parseMoneys(&acc.Balance, balance, &acc.TotalInvested, invested,
		&acc.TotalWithdrawn, withdrawn, &acc.TotalEarnings, earnings); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (q queries) AccountByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	acc, err := scanAccount(q.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return acc, nil
}

func (q queries) AccountByHandle(ctx context.Context, handle string) (*accounts.Account, error) {
	acc, err := scanAccount(q.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE handle = $1`, handle))
	if err != nil {
		return nil, notFound(err, "account", handle)
	}
	return acc, nil
}

func (q queries) ListAccounts(ctx context.Context) ([]*accounts.Account, error) {
	rows, err := q.q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователей: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*accounts.Account, error) {
		return scanAccount(row)
	})
}

func (t *pgTx) CreateAccount(ctx context.Context, acc *accounts.Account) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO accounts (id, handle, name, password_hash, balance, total_invested,
			total_withdrawn, total_earnings, is_admin, referrer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, acc.ID, acc.Handle, acc.Name, acc.PasswordHash, acc.Balance.String(), acc.TotalInvested.String(),
		acc.TotalWithdrawn.String(), acc.TotalEarnings.String(), acc.IsAdmin, acc.ReferrerID, acc.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return common.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("ошибка создания аккаунта: %w", err)
	}
	return nil
}

func (t *pgTx) LockAccount(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	acc, err := scanAccount(t.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return acc, nil
}

func (t *pgTx) LockAccountByHandle(ctx context.Context, handle string) (*accounts.Account, error) {
	acc, err := scanAccount(t.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE handle = $1 FOR UPDATE`, handle))
	if err != nil {
		return nil, notFound(err, "account", handle)
	}
	return acc, nil
}

func (t *pgTx) UpdateAccount(ctx context.Context, acc *accounts.Account) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE accounts
		SET name = $2, password_hash = $3, balance = $4, total_invested = $5,
			total_withdrawn = $6, total_earnings = $7, is_admin = $8
		WHERE id = $1
	`, acc.ID, acc.Name, acc.PasswordHash, acc.Balance.String(), acc.TotalInvested.String(),
		acc.TotalWithdrawn.String(), acc.TotalEarnings.String(), acc.IsAdmin)
	if err != nil {
		return fmt.Errorf("ошибка обновления аккаунта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", acc.ID, common.ErrNotFound)
	}
	return nil
}

func (t *pgTx) AppendEntries(ctx context.Context, entries ...accounts.Entry) error {
	for _, e := range entries {
		_, err := t.q.Exec(ctx, `
			INSERT INTO ledger_entries (id, account_id, direction, amount, kind, reference_id, balance_after, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.ID, e.AccountID, string(e.Direction), e.Amount.String(), string(e.Kind), e.ReferenceID,
			e.BalanceAfter.String(), e.CreatedAt)
		if err != nil {
			return fmt.Errorf("ошибка записи движения по балансу: %w", err)
		}
	}
	return nil
}

func (q queries) EntriesByUser(ctx context.Context, userID uuid.UUID) ([]accounts.Entry, error) {
	rows, err := q.q.Query(ctx, `
		SELECT id, account_id, direction, amount::text, kind, reference_id, balance_after::text, created_at
		FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения движений: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (accounts.Entry, error) {
		var (
			e             accounts.Entry
			amount, after string
		)
		if err := row.Scan(&e.ID, &e.AccountID, &e.Direction, &amount, &e.Kind, &e.ReferenceID, &after, &e.CreatedAt); err != nil {
			return e, err
		}
		return e, parseMoneys(&e.Amount, amount, &e.BalanceAfter, after)
	})
}

// --- покупки ---

const purchaseColumns = `id, user_id, plan_id, plan_name, price::text, daily_income::text, total_return::text,
	duration_days, income_received::text, status, purchased_at, last_accrued_on, completed_at`

func scanPurchase(row pgx.Row) (*journal.Purchase, error) {
	var (
		p                                   journal.Purchase
		price, daily, total, incomeReceived string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.PlanName, &price, &daily, &total,
		&p.DurationDays, &incomeReceived, &p.Status, &p.PurchasedAt, &p.LastAccruedOn, &p.CompletedAt)
	if err != nil {
		return nil, err
	}
	if err := parseMoneys(&p.Price, price, &p.DailyIncome, daily, &p.TotalReturn, total,
		&p.IncomeReceived, incomeReceived); err != nil {
		return nil, err
	}
	return &p, nil
}

func (q queries) ActivePurchaseIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.q.Query(ctx, `SELECT id FROM purchases WHERE status = 'active' ORDER BY purchased_at`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения активных покупок: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (q queries) PurchasesByUser(ctx context.Context, userID uuid.UUID) ([]*journal.Purchase, error) {
	rows, err := q.q.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE user_id = $1 ORDER BY purchased_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения покупок: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*journal.Purchase, error) {
		return scanPurchase(row)
	})
}

func (t *pgTx) CreatePurchase(ctx context.Context, p *journal.Purchase) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO purchases (id, user_id, plan_id, plan_name, price, daily_income, total_return,
			duration_days, income_received, status, purchased_at, last_accrued_on, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.UserID, p.PlanID, p.PlanName, p.Price.String(), p.DailyIncome.String(), p.TotalReturn.String(),
		p.DurationDays, p.IncomeReceived.String(), string(p.Status), p.PurchasedAt, p.LastAccruedOn, p.CompletedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания покупки: %w", err)
	}
	return nil
}

func (t *pgTx) LockPurchase(ctx context.Context, id uuid.UUID) (*journal.Purchase, error) {
	var userID uuid.UUID
	if err := t.q.QueryRow(ctx, `SELECT user_id FROM purchases WHERE id = $1`, id).Scan(&userID); err != nil {
		return nil, notFound(err, "purchase", id)
	}
	if _, err := t.LockAccount(ctx, userID); err != nil {
		return nil, err
	}
	p, err := scanPurchase(t.q.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "purchase", id)
	}
	return p, nil
}

func (t *pgTx) UpdatePurchase(ctx context.Context, p *journal.Purchase) error {
	_, err := t.q.Exec(ctx, `
		UPDATE purchases
		SET income_received = $2, status = $3, last_accrued_on = $4, completed_at = $5
		WHERE id = $1
	`, p.ID, p.IncomeReceived.String(), string(p.Status), p.LastAccruedOn, p.CompletedAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления покупки: %w", err)
	}
	return nil
}

// --- пополнения ---

const rechargeColumns = `id, user_id, amount::text, utr, status, requested_at, processed_at`

func scanRecharge(row pgx.Row) (*journal.Recharge, error) {
	var (
		r      journal.Recharge
		amount string
	)
	if err := row.Scan(&r.ID, &r.UserID, &amount, &r.UTR, &r.Status, &r.RequestedAt, &r.ProcessedAt); err != nil {
		return nil, err
	}
	return &r, parseMoney(&r.Amount, amount)
}

func (q queries) collectRecharges(ctx context.Context, sql string, args ...any) ([]*journal.Recharge, error) {
	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пополнений: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*journal.Recharge, error) {
		return scanRecharge(row)
	})
}

func (q queries) RechargesByUser(ctx context.Context, userID uuid.UUID) ([]*journal.Recharge, error) {
	return q.collectRecharges(ctx, `SELECT `+rechargeColumns+` FROM recharges WHERE user_id = $1 ORDER BY requested_at DESC`, userID)
}

func (q queries) ListRecharges(ctx context.Context, status journal.Status) ([]*journal.Recharge, error) {
	return q.collectRecharges(ctx, `
		SELECT `+rechargeColumns+` FROM recharges
		WHERE $1::text = '' OR status = $1::text
		ORDER BY requested_at DESC
	`, string(status))
}

func (q queries) CountPendingRechargesByUTR(ctx context.Context, utr string) (int, error) {
	var n int
	err := q.q.QueryRow(ctx, `SELECT COUNT(*) FROM recharges WHERE utr = $1 AND status = 'pending'`, utr).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка проверки UTR: %w", err)
	}
	return n, nil
}

func (t *pgTx) CreateRecharge(ctx context.Context, r *journal.Recharge) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO recharges (id, user_id, amount, utr, status, requested_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.UserID, r.Amount.String(), r.UTR, string(r.Status), r.RequestedAt, r.ProcessedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания пополнения: %w", err)
	}
	return nil
}

func (t *pgTx) LockRecharge(ctx context.Context, id uuid.UUID) (*journal.Recharge, error) {
	var userID uuid.UUID
	if err := t.q.QueryRow(ctx, `SELECT user_id FROM recharges WHERE id = $1`, id).Scan(&userID); err != nil {
		return nil, notFound(err, "recharge", id)
	}
	if _, err := t.LockAccount(ctx, userID); err != nil {
		return nil, err
	}
	r, err := scanRecharge(t.q.QueryRow(ctx, `SELECT `+rechargeColumns+` FROM recharges WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "recharge", id)
	}
	return r, nil
}

func (t *pgTx) UpdateRecharge(ctx context.Context, r *journal.Recharge) error {
	_, err := t.q.Exec(ctx, `UPDATE recharges SET status = $2, processed_at = $3 WHERE id = $1`,
		r.ID, string(r.Status), r.ProcessedAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления пополнения: %w", err)
	}
	return nil
}

// --- выводы ---

const withdrawalColumns = `id, user_id, amount::text, tax::text, net_amount::text, method, details,
	status, requested_at, processed_at`

func scanWithdrawal(row pgx.Row) (*journal.Withdrawal, error) {
	var (
		w                journal.Withdrawal
		amount, tax, net string
	)
	err := row.Scan(&w.ID, &w.UserID, &amount, &tax, &net, &w.Method, &w.Details,
		&w.Status, &w.RequestedAt, &w.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return &w, parseMoneys(&w.Amount, amount, &w.Tax, tax, &w.NetAmount, net)
}

func (q queries) collectWithdrawals(ctx context.Context, sql string, args ...any) ([]*journal.Withdrawal, error) {
	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения выводов: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*journal.Withdrawal, error) {
		return scanWithdrawal(row)
	})
}

func (q queries) WithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]*journal.Withdrawal, error) {
	return q.collectWithdrawals(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY requested_at DESC`, userID)
}

func (q queries) ListWithdrawals(ctx context.Context, status journal.Status) ([]*journal.Withdrawal, error) {
	return q.collectWithdrawals(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE $1::text = '' OR status = $1::text
		ORDER BY requested_at DESC
	`, string(status))
}

func (t *pgTx) WithdrawalsByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*journal.Withdrawal, error) {
	return t.collectWithdrawals(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE user_id = $1 AND requested_at > $2
		ORDER BY requested_at DESC
	`, userID, since)
}

func (t *pgTx) CreateWithdrawal(ctx context.Context, w *journal.Withdrawal) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO withdrawals (id, user_id, amount, tax, net_amount, method, details, status, requested_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, w.ID, w.UserID, w.Amount.String(), w.Tax.String(), w.NetAmount.String(), string(w.Method), w.Details,
		string(w.Status), w.RequestedAt, w.ProcessedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания вывода: %w", err)
	}
	return nil
}

func (t *pgTx) LockWithdrawal(ctx context.Context, id uuid.UUID) (*journal.Withdrawal, error) {
	var userID uuid.UUID
	if err := t.q.QueryRow(ctx, `SELECT user_id FROM withdrawals WHERE id = $1`, id).Scan(&userID); err != nil {
		return nil, notFound(err, "withdrawal", id)
	}
	if _, err := t.LockAccount(ctx, userID); err != nil {
		return nil, err
	}
	w, err := scanWithdrawal(t.q.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "withdrawal", id)
	}
	return w, nil
}

func (t *pgTx) UpdateWithdrawal(ctx context.Context, w *journal.Withdrawal) error {
	_, err := t.q.Exec(ctx, `UPDATE withdrawals SET status = $2, processed_at = $3 WHERE id = $1`,
		w.ID, string(w.Status), w.ProcessedAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления вывода: %w", err)
	}
	return nil
}

// --- игры ---

func (q queries) GamePlaysByUser(ctx context.Context, userID uuid.UUID) ([]*journal.GamePlay, error) {
	rows, err := q.q.Query(ctx, `
		SELECT id, user_id, variant, stake::text, win, payout::text, result, played_at
		FROM game_plays WHERE user_id = $1 ORDER BY played_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения игр: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*journal.GamePlay, error) {
		var (
			g             journal.GamePlay
			stake, payout string
		)
		if err := row.Scan(&g.ID, &g.UserID, &g.Variant, &stake, &g.Win, &payout, &g.Result, &g.PlayedAt); err != nil {
			return nil, err
		}
		return &g, parseMoneys(&g.Stake, stake, &g.Payout, payout)
	})
}

func (t *pgTx) CreateGamePlay(ctx context.Context, g *journal.GamePlay) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO game_plays (id, user_id, variant, stake, win, payout, result, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.UserID, g.Variant, g.Stake.String(), g.Win, g.Payout.String(), g.Result, g.PlayedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения игры: %w", err)
	}
	return nil
}

// --- сводка ---

func (q queries) Summary(ctx context.Context) (*AdminSummary, error) {
	var s AdminSummary
	err := q.q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM purchases),
			(SELECT COUNT(*) FROM purchases WHERE status = 'active'),
			(SELECT COUNT(*) FROM recharges),
			(SELECT COUNT(*) FROM recharges WHERE status = 'pending'),
			(SELECT COUNT(*) FROM withdrawals),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'),
			(SELECT COUNT(*) FROM game_plays)
	`).Scan(&s.TotalUsers, &s.TotalPurchases, &s.ActivePurchases, &s.TotalRecharges,
		&s.PendingRecharges, &s.TotalWithdrawals, &s.PendingWithdrawals, &s.TotalGamePlays)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сводки: %w", err)
	}
	return &s, nil
}
