package admin

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/config"
	"serotonyl.ru/goldmine/internal/features/auth"
	"serotonyl.ru/goldmine/internal/features/games"
	"serotonyl.ru/goldmine/internal/features/journal"
	"serotonyl.ru/goldmine/internal/features/plans"
	"serotonyl.ru/goldmine/internal/features/settlement"
	"serotonyl.ru/goldmine/internal/jobs"
	"serotonyl.ru/goldmine/internal/metrics"
)

const (
	adminID  int64 = 1001
	password       = "console-pass"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type outbox struct {
	mu   sync.Mutex
	msgs []string
}

func (o *outbox) send(_ int64, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, text)
}

func (o *outbox) last(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs)
	return o.msgs[len(o.msgs)-1]
}

func newService(t *testing.T) (*Service, *clock) {
	t.Helper()
	hash, err := auth.HashPasswordWith(auth.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}, password)
	require.NoError(t, err)
	svc := NewService(NewMemoryStore(), hash)
	c := &clock{t: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)}
	svc.now = c.Now
	return svc, c
}

func TestVerifyPasswordLockout(t *testing.T) {
	ctx := context.Background()
	svc, c := newService(t)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, svc.VerifyPassword(ctx, adminID, "wrong"), common.ErrWrongPassword)
	}
	// Четвёртая попытка блокируется даже с верным паролем.
	assert.ErrorIs(t, svc.VerifyPassword(ctx, adminID, password), common.ErrTooManyAttempts)
	assert.ErrorIs(t, svc.CheckSession(ctx, adminID), common.ErrSessionExpired)

	// Другой пользователь не заблокирован.
	assert.NoError(t, svc.VerifyPassword(ctx, adminID+1, password))

	c.Advance(time.Hour + time.Minute)
	require.NoError(t, svc.VerifyPassword(ctx, adminID, password))
	assert.NoError(t, svc.CheckSession(ctx, adminID))
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	svc, c := newService(t)

	require.NoError(t, svc.VerifyPassword(ctx, adminID, password))
	c.Advance(23 * time.Hour)
	assert.NoError(t, svc.CheckSession(ctx, adminID))

	c.Advance(2 * time.Hour)
	assert.ErrorIs(t, svc.CheckSession(ctx, adminID), common.ErrSessionExpired)

	require.NoError(t, svc.VerifyPassword(ctx, adminID, password))
	require.NoError(t, svc.Logout(ctx, adminID))
	assert.ErrorIs(t, svc.CheckSession(ctx, adminID), common.ErrSessionExpired)
}

func TestStateExpiry(t *testing.T) {
	svc, c := newService(t)
	svc.SetState(adminID, StateAwaitingPassword)
	require.NotNil(t, svc.GetState(adminID))

	c.Advance(6 * time.Minute)
	assert.Nil(t, svc.GetState(adminID))
}

type consoleFixture struct {
	handler *Handler
	engine  *settlement.Service
	out     *outbox
}

func newConsole(t *testing.T) *consoleFixture {
	t.Helper()
	cfg := &config.Config{
		AppTimezone:         "UTC",
		ReferralBonus:       decimal.NewFromInt(50),
		WithdrawalTaxRate:   decimal.RequireFromString("0.03"),
		WithdrawalCooldown:  24 * time.Hour,
		FeatureGamesEnabled: true,
	}
	engine := settlement.NewService(settlement.NewMemoryStore(), plans.Default(),
		games.NewGenerator(rand.NewPCG(1, 2)), metrics.New(prometheus.NewRegistry()), cfg)
	svc, _ := newService(t)
	out := &outbox{}
	h := NewHandler(svc, engine, jobs.NewAccrualJob(engine, nil, time.Minute, true), out.send)
	return &consoleFixture{handler: h, engine: engine, out: out}
}

func (f *consoleFixture) cmd(text string) {
	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	f.handler.HandleCommand(context.Background(), adminID, adminID, fields[0], fields[1:])
}

func TestConsoleRequiresSession(t *testing.T) {
	f := newConsole(t)

	f.cmd("/pending")
	assert.Contains(t, f.out.last(t), "/login")

	f.cmd("/login wrong")
	assert.Contains(t, f.out.last(t), common.ErrWrongPassword.Error())

	f.cmd("/login")
	assert.Contains(t, f.out.last(t), "Введите пароль")
	require.True(t, f.handler.HandleText(context.Background(), adminID, adminID, password))
	assert.Contains(t, f.out.last(t), "Аутентификация успешна")

	assert.False(t, f.handler.HandleText(context.Background(), adminID, adminID, "просто текст"))

	f.cmd("/pending")
	assert.Contains(t, f.out.last(t), "Пополнения: 0 заявок")
}

func TestConsoleApproveFlow(t *testing.T) {
	ctx := context.Background()
	f := newConsole(t)
	f.cmd("/login " + password)

	acc, err := f.engine.Register(ctx, settlement.RegisterInput{Handle: "9000000001", Name: "Ravi", PasswordHash: "x"})
	require.NoError(t, err)
	rec, err := f.engine.RequestRecharge(ctx, settlement.AccountCaller(acc), decimal.NewFromInt(5000), "UTR42")
	require.NoError(t, err)

	f.cmd("/pending")
	msg := f.out.last(t)
	assert.Contains(t, msg, "Пополнения: 1 заявка")
	assert.Contains(t, msg, "9000000001")
	assert.Contains(t, msg, "/approve_recharge "+rec.ID.String())

	f.cmd("/approve_recharge " + rec.ID.String())
	assert.Contains(t, f.out.last(t), "Пополнение одобрено: ₹5,000.00 для 9000000001")

	f.cmd("/approve_recharge " + rec.ID.String())
	assert.Contains(t, f.out.last(t), "request already processed")

	f.cmd("/approve_recharge not-an-id")
	assert.Contains(t, f.out.last(t), "Некорректный ID")

	f.cmd("/reject_withdrawal")
	assert.Contains(t, f.out.last(t), "Укажите ID")

	w, err := f.engine.RequestWithdrawal(ctx, settlement.AccountCaller(acc), decimal.NewFromInt(1000), journal.MethodUPI, "ravi@upi")
	require.NoError(t, err)
	f.cmd("/reject_withdrawal " + w.ID.String())
	assert.Contains(t, f.out.last(t), "Вывод отклонён")

	got, err := f.engine.Account(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(5000)))

	f.cmd("/summary")
	msg = f.out.last(t)
	assert.Contains(t, msg, "1 пользователь")
	assert.Contains(t, msg, "Пополнений: 1 (ожидают 0)")

	f.cmd("/accrue")
	assert.Contains(t, f.out.last(t), "Начислено: 0")

	f.cmd("/whatever")
	assert.Contains(t, f.out.last(t), "/help")
}

func TestNotifierBroadcast(t *testing.T) {
	ctx := context.Background()
	f := newConsole(t)

	got := make(chan int64, 4)
	var mu sync.Mutex
	var texts []string
	n := NewNotifier([]int64{1, 2}, func(chatID int64, text string) {
		mu.Lock()
		texts = append(texts, text)
		mu.Unlock()
		got <- chatID
	})
	f.engine.SetEvents(n)

	acc, err := f.engine.Register(ctx, settlement.RegisterInput{Handle: "9000000001", Name: "Ravi", PasswordHash: "x"})
	require.NoError(t, err)
	rec, err := f.engine.RequestRecharge(ctx, settlement.AccountCaller(acc), decimal.NewFromInt(700), "UTR7")
	require.NoError(t, err)

	chats := []int64{<-got, <-got}
	assert.ElementsMatch(t, []int64{1, 2}, chats)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, texts[0], "Новая заявка на пополнение")
	assert.Contains(t, texts[0], "/approve_recharge "+rec.ID.String())
}
