package settlement

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/games"
	"serotonyl.ru/goldmine/internal/features/journal"
)

func TestMemoryStoreRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	acc := &accounts.Account{ID: uuid.New(), Handle: "h", Name: "n", PasswordHash: "x"}
	require.NoError(t, store.InTx(ctx, func(tx Tx) error { return tx.CreateAccount(ctx, acc) }))

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx Tx) error {
		locked, err := tx.LockAccount(ctx, acc.ID)
		if err != nil {
			return err
		}
		entry, err := accounts.Credit(locked, decimal.NewFromInt(100), accounts.KindRecharge, uuid.New(), time.Now())
		if err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, locked); err != nil {
			return err
		}
		if err := tx.AppendEntries(ctx, entry); err != nil {
			return err
		}
		if err := tx.CreateAccount(ctx, &accounts.Account{ID: uuid.New(), Handle: "other"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())
	entries, err := store.EntriesByUser(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = store.AccountByHandle(ctx, "other")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryStoreLockHonoursContext(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	acc := &accounts.Account{ID: uuid.New(), Handle: "h", Name: "n", PasswordHash: "x"}
	require.NoError(t, store.InTx(ctx, func(tx Tx) error { return tx.CreateAccount(ctx, acc) }))

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.InTx(ctx, func(tx Tx) error {
			if _, err := tx.LockAccount(ctx, acc.ID); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := store.InTx(waitCtx, func(tx Tx) error {
		_, err := tx.LockAccount(waitCtx, acc.ID)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)

	// После освобождения блокировка снова доступна.
	require.NoError(t, store.InTx(ctx, func(tx Tx) error {
		_, err := tx.LockAccount(ctx, acc.ID)
		return err
	}))
}

func TestConcurrentPurchaseSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "9000000001", "")
	f.fund(t, u, "50000")

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		limited   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PurchasePlan(f.ctx, u, 2)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, common.ErrPlanLimitExceeded):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, limited)
	assertMoney(t, "45000", f.account(t, u).Balance)
}

func TestConcurrentGamesNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "9000000001", "")
	f.fund(t, u, "1000")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PlayGame(f.ctx, u, games.VariantReels, decimal.NewFromInt(100))
			if err != nil && !errors.Is(err, common.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	acc := f.account(t, u)
	assert.False(t, acc.Balance.IsNegative())
	entries, err := f.store.EntriesByUser(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, accounts.Replay(entries).Equal(acc.Balance))
}

func TestConcurrentWithdrawalRequestsRespectCooldown(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "9000000001", "")
	f.fund(t, u, "1000")

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RequestWithdrawal(f.ctx, u, decimal.NewFromInt(100), journal.MethodUPI, "u@upi")
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

// Случайная последовательность операций: баланс каждого аккаунта всегда
// равен сумме его проводок и никогда не уходит в минус.
func TestLedgerConservation(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewPCG(7, 11))

	users := []Caller{
		f.register(t, "9000000001", ""),
		f.register(t, "9000000002", "9000000001"),
		f.register(t, "9000000003", "9000000001"),
	}
	var pendingRecharges, pendingWithdrawals []uuid.UUID
	amount := func() decimal.Decimal { return decimal.NewFromInt(int64(rng.IntN(3000) + 1)) }

	for step := 0; step < 400; step++ {
		u := users[rng.IntN(len(users))]
		f.clock.Advance(time.Duration(rng.IntN(12)+1) * time.Hour)

		var err error
		switch rng.IntN(7) {
		case 0:
			var rec *journal.Recharge
			rec, err = f.svc.RequestRecharge(f.ctx, u, amount(), "UTR")
			if err == nil {
				pendingRecharges = append(pendingRecharges, rec.ID)
			}
		case 1:
			if len(pendingRecharges) > 0 {
				i := rng.IntN(len(pendingRecharges))
				if rng.IntN(4) == 0 {
					_, err = f.svc.RejectRecharge(f.ctx, admin, pendingRecharges[i])
				} else {
					_, err = f.svc.ApproveRecharge(f.ctx, admin, pendingRecharges[i])
				}
				pendingRecharges = append(pendingRecharges[:i], pendingRecharges[i+1:]...)
			}
		case 2:
			_, err = f.svc.PurchasePlan(f.ctx, u, rng.IntN(4)+1)
		case 3:
			var w *journal.Withdrawal
			w, err = f.svc.RequestWithdrawal(f.ctx, u, amount(), journal.MethodUPI, "u@upi")
			if err == nil {
				pendingWithdrawals = append(pendingWithdrawals, w.ID)
			}
		case 4:
			if len(pendingWithdrawals) > 0 {
				i := rng.IntN(len(pendingWithdrawals))
				_, err = f.svc.ApproveWithdrawal(f.ctx, admin, pendingWithdrawals[i])
				if !errors.Is(err, common.ErrInsufficientFunds) {
					pendingWithdrawals = append(pendingWithdrawals[:i], pendingWithdrawals[i+1:]...)
				}
			}
		case 5:
			_, err = f.svc.PlayGame(f.ctx, u, games.Variants[rng.IntN(len(games.Variants))], decimal.NewFromInt(int64(rng.IntN(200)+1)))
		case 6:
			_, err = f.svc.AccrueDailyIncomeOn(f.ctx, f.clock.Now())
		}
		if err != nil {
			require.True(t, common.IsDomain(err), "step %d: unexpected error %v", step, err)
		}

		for _, c := range users {
			acc := f.account(t, c)
			require.False(t, acc.Balance.IsNegative(), "step %d: negative balance", step)
			entries, err := f.store.EntriesByUser(f.ctx, c.ID)
			require.NoError(t, err)
			require.True(t, accounts.Replay(entries).Equal(acc.Balance),
				"step %d: balance %s, entries sum %s", step, acc.Balance, accounts.Replay(entries))
		}
	}
}
