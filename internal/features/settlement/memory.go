package settlement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/journal"
)

// MemoryStore: хранилище в памяти для тестов и локального запуска.
//
// Карты защищены mu и держатся под ним только на время чтения/записи.
// Сериализацию операций даёт блокировка аккаунта: канал ёмкостью 1,
// ожидание которого прерывается контекстом. Откат выполняется по
// журналу отмены транзакции.
type MemoryStore struct {
	mu          sync.RWMutex
	accounts    map[uuid.UUID]*accounts.Account
	handles     map[string]uuid.UUID
	entries     map[uuid.UUID][]accounts.Entry
	purchases   map[uuid.UUID]*journal.Purchase
	recharges   map[uuid.UUID]*journal.Recharge
	withdrawals map[uuid.UUID]*journal.Withdrawal
	plays       map[uuid.UUID]*journal.GamePlay
	locks       map[uuid.UUID]chan struct{}
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memTx)(nil)
)

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[uuid.UUID]*accounts.Account),
		handles:     make(map[string]uuid.UUID),
		entries:     make(map[uuid.UUID][]accounts.Entry),
		purchases:   make(map[uuid.UUID]*journal.Purchase),
		recharges:   make(map[uuid.UUID]*journal.Recharge),
		withdrawals: make(map[uuid.UUID]*journal.Withdrawal),
		plays:       make(map[uuid.UUID]*journal.GamePlay),
		locks:       make(map[uuid.UUID]chan struct{}),
	}
}

func (s *MemoryStore) lockFor(id uuid.UUID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch
}

// InTx выполняет fn; при ошибке изменения откатываются.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memTx{s: s, held: make(map[uuid.UUID]chan struct{})}
	defer tx.release()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type memTx struct {
	s    *MemoryStore
	held map[uuid.UUID]chan struct{}
	undo []func()
}

func (t *memTx) release() {
	for _, ch := range t.held {
		<-ch
	}
	t.held = nil
}

func (t *memTx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) lock(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.held[id]; ok {
		return nil
	}
	ch := t.s.lockFor(id)
	select {
	case ch <- struct{}{}:
		t.held[id] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// write выполняет изменение под mu и запоминает отмену.
func (t *memTx) write(apply func(), undo func()) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	apply()
	t.undo = append(t.undo, undo)
}

// --- аккаунты ---

func (t *memTx) CreateAccount(_ context.Context, acc *accounts.Account) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, taken := t.s.handles[acc.Handle]; taken {
		return common.ErrDuplicateUser
	}
	if _, taken := t.s.accounts[acc.ID]; taken {
		return common.ErrDuplicateUser
	}
	cp := *acc
	t.s.accounts[acc.ID] = &cp
	t.s.handles[acc.Handle] = acc.ID
	t.undo = append(t.undo, func() {
		delete(t.s.accounts, acc.ID)
		delete(t.s.handles, acc.Handle)
	})
	return nil
}

func (t *memTx) LockAccount(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	if err := t.lock(ctx, id); err != nil {
		return nil, err
	}
	return t.s.AccountByID(ctx, id)
}

func (t *memTx) LockAccountByHandle(ctx context.Context, handle string) (*accounts.Account, error) {
	acc, err := t.s.AccountByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	return t.LockAccount(ctx, acc.ID)
}

func (t *memTx) UpdateAccount(_ context.Context, acc *accounts.Account) error {
	t.s.mu.RLock()
	prev, ok := t.s.accounts[acc.ID]
	t.s.mu.RUnlock()
	if !ok {
		return common.ErrNotFound
	}
	cp := *acc
	t.write(func() { t.s.accounts[acc.ID] = &cp }, func() { t.s.accounts[acc.ID] = prev })
	return nil
}

func (t *memTx) AppendEntries(_ context.Context, entries ...accounts.Entry) error {
	for _, e := range entries {
		e := e
		t.write(func() {
			t.s.entries[e.AccountID] = append(t.s.entries[e.AccountID], e)
		}, func() {
			list := t.s.entries[e.AccountID]
			for i := len(list) - 1; i >= 0; i-- {
				if list[i].ID == e.ID {
					t.s.entries[e.AccountID] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
	return nil
}

// --- покупки ---

func (t *memTx) PurchasesByUser(ctx context.Context, userID uuid.UUID) ([]*journal.Purchase, error) {
	return t.s.PurchasesByUser(ctx, userID)
}

func (t *memTx) CreatePurchase(_ context.Context, p *journal.Purchase) error {
	cp := *p
	t.write(func() { t.s.purchases[p.ID] = &cp }, func() { delete(t.s.purchases, p.ID) })
	return nil
}

func (t *memTx) LockPurchase(ctx context.Context, id uuid.UUID) (*journal.Purchase, error) {
	t.s.mu.RLock()
	p, ok := t.s.purchases[id]
	t.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("purchase %s: %w", id, common.ErrNotFound)
	}
	if err := t.lock(ctx, p.UserID); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	cur, ok := t.s.purchases[id]
	if !ok {
		return nil, fmt.Errorf("purchase %s: %w", id, common.ErrNotFound)
	}
	cp := *cur
	return &cp, nil
}

func (t *memTx) UpdatePurchase(_ context.Context, p *journal.Purchase) error {
	t.s.mu.RLock()
	prev, ok := t.s.purchases[p.ID]
	t.s.mu.RUnlock()
	if !ok {
		return common.ErrNotFound
	}
	cp := *p
	t.write(func() { t.s.purchases[p.ID] = &cp }, func() { t.s.purchases[p.ID] = prev })
	return nil
}

// --- пополнения ---

func (t *memTx) CreateRecharge(_ context.Context, r *journal.Recharge) error {
	cp := *r
	t.write(func() { t.s.recharges[r.ID] = &cp }, func() { delete(t.s.recharges, r.ID) })
	return nil
}

func (t *memTx) LockRecharge(ctx context.Context, id uuid.UUID) (*journal.Recharge, error) {
	t.s.mu.RLock()
	r, ok := t.s.recharges[id]
	t.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("recharge %s: %w", id, common.ErrNotFound)
	}
	if err := t.lock(ctx, r.UserID); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	cur, ok := t.s.recharges[id]
	if !ok {
		return nil, fmt.Errorf("recharge %s: %w", id, common.ErrNotFound)
	}
	cp := *cur
	return &cp, nil
}

func (t *memTx) UpdateRecharge(_ context.Context, r *journal.Recharge) error {
	t.s.mu.RLock()
	prev, ok := t.s.recharges[r.ID]
	t.s.mu.RUnlock()
	if !ok {
		return common.ErrNotFound
	}
	cp := *r
	t.write(func() { t.s.recharges[r.ID] = &cp }, func() { t.s.recharges[r.ID] = prev })
	return nil
}

// --- выводы ---

func (t *memTx) CreateWithdrawal(_ context.Context, w *journal.Withdrawal) error {
	cp := *w
	t.write(func() { t.s.withdrawals[w.ID] = &cp }, func() { delete(t.s.withdrawals, w.ID) })
	return nil
}

func (t *memTx) WithdrawalsByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*journal.Withdrawal, error) {
	all, err := t.s.WithdrawalsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, w := range all {
		if w.RequestedAt.After(since) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (t *memTx) LockWithdrawal(ctx context.Context, id uuid.UUID) (*journal.Withdrawal, error) {
	t.s.mu.RLock()
	w, ok := t.s.withdrawals[id]
	t.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("withdrawal %s: %w", id, common.ErrNotFound)
	}
	if err := t.lock(ctx, w.UserID); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	cur, ok := t.s.withdrawals[id]
	if !ok {
		return nil, fmt.Errorf("withdrawal %s: %w", id, common.ErrNotFound)
	}
	cp := *cur
	return &cp, nil
}

func (t *memTx) UpdateWithdrawal(_ context.Context, w *journal.Withdrawal) error {
	t.s.mu.RLock()
	prev, ok := t.s.withdrawals[w.ID]
	t.s.mu.RUnlock()
	if !ok {
		return common.ErrNotFound
	}
	cp := *w
	t.write(func() { t.s.withdrawals[w.ID] = &cp }, func() { t.s.withdrawals[w.ID] = prev })
	return nil
}

// --- игры ---

func (t *memTx) CreateGamePlay(_ context.Context, g *journal.GamePlay) error {
	cp := *g
	t.write(func() { t.s.plays[g.ID] = &cp }, func() { delete(t.s.plays, g.ID) })
	return nil
}

// --- Reader ---

func (s *MemoryStore) AccountByID(_ context.Context, id uuid.UUID) (*accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}
	cp := *acc
	return &cp, nil
}

func (s *MemoryStore) AccountByHandle(ctx context.Context, handle string) (*accounts.Account, error) {
	s.mu.RLock()
	id, ok := s.handles[handle]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("account %q: %w", handle, common.ErrNotFound)
	}
	return s.AccountByID(ctx, id)
}

func (s *MemoryStore) ListAccounts(_ context.Context) ([]*accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*accounts.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		cp := *acc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) EntriesByUser(_ context.Context, userID uuid.UUID) ([]accounts.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[userID]
	out := make([]accounts.Entry, len(list))
	for i, e := range list {
		out[len(list)-1-i] = e
	}
	return out, nil
}

func (s *MemoryStore) ActivePurchaseIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []*journal.Purchase
	for _, p := range s.purchases {
		if p.Status == journal.PurchaseActive {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].PurchasedAt.Before(active[j].PurchasedAt) })
	ids := make([]uuid.UUID, len(active))
	for i, p := range active {
		ids[i] = p.ID
	}
	return ids, nil
}

func (s *MemoryStore) PurchasesByUser(_ context.Context, userID uuid.UUID) ([]*journal.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.purchases, func(p *journal.Purchase) bool { return p.UserID == userID },
		func(p *journal.Purchase) time.Time { return p.PurchasedAt }), nil
}

func (s *MemoryStore) RechargesByUser(_ context.Context, userID uuid.UUID) ([]*journal.Recharge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.recharges, func(r *journal.Recharge) bool { return r.UserID == userID },
		func(r *journal.Recharge) time.Time { return r.RequestedAt }), nil
}

func (s *MemoryStore) WithdrawalsByUser(_ context.Context, userID uuid.UUID) ([]*journal.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.withdrawals, func(w *journal.Withdrawal) bool { return w.UserID == userID },
		func(w *journal.Withdrawal) time.Time { return w.RequestedAt }), nil
}

func (s *MemoryStore) GamePlaysByUser(_ context.Context, userID uuid.UUID) ([]*journal.GamePlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.plays, func(g *journal.GamePlay) bool { return g.UserID == userID },
		func(g *journal.GamePlay) time.Time { return g.PlayedAt }), nil
}

func (s *MemoryStore) ListRecharges(_ context.Context, status journal.Status) ([]*journal.Recharge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.recharges, func(r *journal.Recharge) bool { return status == "" || r.Status == status },
		func(r *journal.Recharge) time.Time { return r.RequestedAt }), nil
}

func (s *MemoryStore) ListWithdrawals(_ context.Context, status journal.Status) ([]*journal.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.withdrawals, func(w *journal.Withdrawal) bool { return status == "" || w.Status == status },
		func(w *journal.Withdrawal) time.Time { return w.RequestedAt }), nil
}

func (s *MemoryStore) CountPendingRechargesByUTR(_ context.Context, utr string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.recharges {
		if r.UTR == utr && r.Status == journal.StatusPending {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Summary(_ context.Context) (*AdminSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := &AdminSummary{
		TotalUsers:       len(s.accounts),
		TotalPurchases:   len(s.purchases),
		TotalRecharges:   len(s.recharges),
		TotalWithdrawals: len(s.withdrawals),
		TotalGamePlays:   len(s.plays),
	}
	for _, p := range s.purchases {
		if p.Status == journal.PurchaseActive {
			sum.ActivePurchases++
		}
	}
	for _, r := range s.recharges {
		if r.Status == journal.StatusPending {
			sum.PendingRecharges++
		}
	}
	for _, w := range s.withdrawals {
		if w.Status == journal.StatusPending {
			sum.PendingWithdrawals++
		}
	}
	return sum, nil
}

// collect копирует подходящие записи и сортирует их от новых к старым.
func collect[T any](m map[uuid.UUID]*T, keep func(*T) bool, at func(*T) time.Time) []*T {
	out := make([]*T, 0)
	for _, v := range m {
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return at(out[i]).After(at(out[j])) })
	return out
}
