// Package settlement: service.go содержит операции движка расчётов.
// Каждая операция читает, проверяет и пишет внутри одной транзакции
// с заблокированным аккаунтом: проверка правил и запись неразделимы.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/config"
	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/games"
	"serotonyl.ru/goldmine/internal/features/journal"
	"serotonyl.ru/goldmine/internal/features/plans"
	"serotonyl.ru/goldmine/internal/metrics"
)

// Events получает уведомления о новых заявках после коммита.
// Реализация не должна блокироваться.
type Events interface {
	RechargeRequested(acc *accounts.Account, r *journal.Recharge)
	WithdrawalRequested(acc *accounts.Account, w *journal.Withdrawal)
}

type noEvents struct{}

func (noEvents) RechargeRequested(*accounts.Account, *journal.Recharge)     {}
func (noEvents) WithdrawalRequested(*accounts.Account, *journal.Withdrawal) {}

// Service: движок расчётов.
type Service struct {
	store   Store
	catalog *plans.Catalog
	games   *games.Generator
	metrics *metrics.Metrics
	events  Events
	cfg     *config.Config
	loc     *time.Location
	now     func() time.Time
}

// NewService создаёт движок. m может быть nil.
func NewService(store Store, catalog *plans.Catalog, gen *games.Generator, m *metrics.Metrics, cfg *config.Config) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		games:   gen,
		metrics: m,
		events:  noEvents{},
		cfg:     cfg,
		loc:     common.LoadLocation(cfg.AppTimezone),
		now:     time.Now,
	}
}

// SetEvents подключает получателя уведомлений. Вызывать до начала работы.
func (s *Service) SetEvents(e Events) {
	if e == nil {
		e = noEvents{}
	}
	s.events = e
}

// Location: часовой пояс, в котором считаются сутки и месяцы.
func (s *Service) Location() *time.Location { return s.loc }

// validAmount: строго положительная сумма, не больше двух знаков после запятой.
func validAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%s must be positive: %w", field, common.ErrInvalidInput)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%s must have at most 2 decimal places: %w", field, common.ErrInvalidInput)
	}
	return nil
}

// RegisterInput: данные для регистрации. Пароль уже захэширован.
type RegisterInput struct {
	Handle         string
	Name           string
	PasswordHash   string
	ReferrerHandle string
}

// Register создаёт аккаунт и, если реферер найден, начисляет ему бонус.
// Ненайденный реферер молча игнорируется.
func (s *Service) Register(ctx context.Context, in RegisterInput) (acc *accounts.Account, err error) {
	defer func() { s.metrics.ObserveOperation("register", err) }()

	in.Handle = strings.TrimSpace(in.Handle)
	in.Name = strings.TrimSpace(in.Name)
	in.ReferrerHandle = strings.TrimSpace(in.ReferrerHandle)
	if in.Handle == "" || in.Name == "" || in.PasswordHash == "" {
		return nil, fmt.Errorf("handle, name and password are required: %w", common.ErrInvalidInput)
	}

	now := s.now()
	acc = &accounts.Account{
		ID:           uuid.New(),
		Handle:       in.Handle,
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}

	var referrer *accounts.Account
	err = s.store.InTx(ctx, func(tx Tx) error {
		referrer = nil
		acc.ReferrerID = nil
		if in.ReferrerHandle != "" && in.ReferrerHandle != in.Handle {
			ref, err := tx.LockAccountByHandle(ctx, in.ReferrerHandle)
			switch {
			case errors.Is(err, common.ErrNotFound):
			case err != nil:
				return err
			default:
				referrer = ref
				acc.ReferrerID = &ref.ID
			}
		}

		if err := tx.CreateAccount(ctx, acc); err != nil {
			return err
		}

		bonus := s.cfg.ReferralBonus
		if referrer == nil || !bonus.IsPositive() {
			return nil
		}
		entry, err := accounts.Credit(referrer, bonus, accounts.KindReferralBonus, acc.ID, now)
		if err != nil {
			return err
		}
		referrer.TotalEarnings = referrer.TotalEarnings.Add(bonus)
		if err := tx.UpdateAccount(ctx, referrer); err != nil {
			return err
		}
		return tx.AppendEntries(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", in.Handle, err)
	}

	fields := log.Fields{"user_id": acc.ID, "handle": acc.Handle}
	if referrer != nil {
		fields["referrer"] = referrer.Handle
	}
	log.WithFields(fields).Info("Зарегистрирован пользователь")
	return acc, nil
}

// EnsureAdmin создаёт аккаунт администратора или обновляет его флаг и пароль.
func (s *Service) EnsureAdmin(ctx context.Context, handle, name, passwordHash string) (acc *accounts.Account, err error) {
	if handle == "" || passwordHash == "" {
		return nil, fmt.Errorf("admin handle and password hash are required: %w", common.ErrInvalidInput)
	}
	err = s.store.InTx(ctx, func(tx Tx) error {
		existing, err := tx.LockAccountByHandle(ctx, handle)
		if errors.Is(err, common.ErrNotFound) {
			acc = &accounts.Account{
				ID:           uuid.New(),
				Handle:       handle,
				Name:         name,
				PasswordHash: passwordHash,
				IsAdmin:      true,
				CreatedAt:    s.now(),
			}
			return tx.CreateAccount(ctx, acc)
		}
		if err != nil {
			return err
		}
		acc = existing
		if acc.IsAdmin && acc.PasswordHash == passwordHash {
			return nil
		}
		acc.IsAdmin = true
		acc.PasswordHash = passwordHash
		return tx.UpdateAccount(ctx, acc)
	})
	if err != nil {
		return nil, fmt.Errorf("ensure admin %q: %w", handle, err)
	}
	return acc, nil
}

// RequestRecharge создаёт заявку на пополнение. Баланс не меняется.
// Повторный UTR допускается, но пишется предупреждение в лог.
func (s *Service) RequestRecharge(ctx context.Context, caller Caller, amount decimal.Decimal, utr string) (rec *journal.Recharge, err error) {
	defer func() { s.metrics.ObserveOperation("request_recharge", err) }()

	if err := validAmount("amount", amount); err != nil {
		return nil, err
	}
	utr = strings.TrimSpace(utr)
	if utr == "" {
		return nil, fmt.Errorf("utr is required: %w", common.ErrInvalidInput)
	}

	dup, err := s.store.CountPendingRechargesByUTR(ctx, utr)
	switch {
	case err != nil:
		log.WithError(err).WithFields(log.Fields{"user_id": caller.ID, "utr": utr}).
			Warn("Не удалось проверить UTR на повтор")
	case dup > 0:
		log.WithFields(log.Fields{"user_id": caller.ID, "utr": utr, "pending": dup}).
			Warn("UTR уже есть в ожидающих заявках")
	}

	rec = &journal.Recharge{
		ID:          uuid.New(),
		UserID:      caller.ID,
		Amount:      amount,
		UTR:         utr,
		Status:      journal.StatusPending,
		RequestedAt: s.now(),
	}
	var acc *accounts.Account
	err = s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if acc, err = tx.LockAccount(ctx, caller.ID); err != nil {
			return err
		}
		return tx.CreateRecharge(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("request recharge: %w", err)
	}

	log.WithFields(log.Fields{"user_id": caller.ID, "recharge_id": rec.ID, "amount": amount}).
		Info("Новая заявка на пополнение")
	s.events.RechargeRequested(acc, rec)
	return rec, nil
}

// ApproveRecharge одобряет пополнение и зачисляет сумму ровно один раз.
func (s *Service) ApproveRecharge(ctx context.Context, caller Caller, id uuid.UUID) (*journal.Recharge, error) {
	return s.resolveRecharge(ctx, caller, id, true)
}

// RejectRecharge отклоняет пополнение. Баланс не меняется.
func (s *Service) RejectRecharge(ctx context.Context, caller Caller, id uuid.UUID) (*journal.Recharge, error) {
	return s.resolveRecharge(ctx, caller, id, false)
}

func (s *Service) resolveRecharge(ctx context.Context, caller Caller, id uuid.UUID, approve bool) (rec *journal.Recharge, err error) {
	op := "reject_recharge"
	if approve {
		op = "approve_recharge"
	}
	defer func() { s.metrics.ObserveOperation(op, err) }()

	if err := caller.requireAdmin(); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if rec, err = tx.LockRecharge(ctx, id); err != nil {
			return err
		}
		now := s.now()
		if !approve {
			if err := rec.Reject(now); err != nil {
				return err
			}
			return tx.UpdateRecharge(ctx, rec)
		}

		if err := rec.Approve(now); err != nil {
			return err
		}
		acc, err := tx.LockAccount(ctx, rec.UserID)
		if err != nil {
			return err
		}
		entry, err := accounts.Credit(acc, rec.Amount, accounts.KindRecharge, rec.ID, now)
		if err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.AppendEntries(ctx, entry); err != nil {
			return err
		}
		return tx.UpdateRecharge(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}

	log.WithFields(log.Fields{
		"recharge_id": rec.ID,
		"user_id":     rec.UserID,
		"amount":      rec.Amount,
		"status":      rec.Status,
		"admin":       caller.Name,
	}).Info("Заявка на пополнение обработана")
	return rec, nil
}

// PurchasePlan покупает план: не больше одной покупки в календарный месяц,
// независимо от статуса прежней покупки.
func (s *Service) PurchasePlan(ctx context.Context, caller Caller, planID int) (p *journal.Purchase, err error) {
	defer func() { s.metrics.ObserveOperation("purchase_plan", err) }()

	plan, err := s.catalog.Get(planID)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		acc, err := tx.LockAccount(ctx, caller.ID)
		if err != nil {
			return err
		}
		if acc.Balance.LessThan(plan.Price) {
			return common.ErrInsufficientFunds
		}

		now := s.now()
		existing, err := tx.PurchasesByUser(ctx, caller.ID)
		if err != nil {
			return err
		}
		for _, prev := range existing {
			if common.SameMonth(prev.PurchasedAt, now, s.loc) {
				return common.ErrPlanLimitExceeded
			}
		}

		p = &journal.Purchase{
			ID:             uuid.New(),
			UserID:         caller.ID,
			PlanID:         plan.ID,
			PlanName:       plan.Name,
			Price:          plan.Price,
			DailyIncome:    plan.DailyIncome,
			TotalReturn:    plan.TotalReturn,
			DurationDays:   plan.DurationDays,
			IncomeReceived: decimal.Zero,
			Status:         journal.PurchaseActive,
			PurchasedAt:    now,
		}
		entry, err := accounts.Debit(acc, plan.Price, accounts.KindPlanPurchase, p.ID, now)
		if err != nil {
			return err
		}
		acc.TotalInvested = acc.TotalInvested.Add(plan.Price)

		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.AppendEntries(ctx, entry); err != nil {
			return err
		}
		return tx.CreatePurchase(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("purchase plan %d: %w", planID, err)
	}

	log.WithFields(log.Fields{"user_id": caller.ID, "plan": plan.Name, "price": plan.Price}).
		Info("План куплен")
	return p, nil
}

// RequestWithdrawal создаёт заявку на вывод с налогом. Баланс не меняется
// до одобрения. Не больше одной ожидающей заявки за WithdrawalCooldown.
func (s *Service) RequestWithdrawal(ctx context.Context, caller Caller, amount decimal.Decimal, method journal.Method, details string) (w *journal.Withdrawal, err error) {
	defer func() { s.metrics.ObserveOperation("request_withdrawal", err) }()

	if err := validAmount("amount", amount); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, fmt.Errorf("unknown withdrawal method %q: %w", method, common.ErrInvalidInput)
	}
	details = strings.TrimSpace(details)
	if details == "" {
		return nil, fmt.Errorf("withdrawal details are required: %w", common.ErrInvalidInput)
	}

	var acc *accounts.Account
	err = s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if acc, err = tx.LockAccount(ctx, caller.ID); err != nil {
			return err
		}
		if acc.Balance.LessThan(amount) {
			return common.ErrInsufficientFunds
		}

		now := s.now()
		recent, err := tx.WithdrawalsByUserSince(ctx, caller.ID, now.Add(-s.cfg.WithdrawalCooldown))
		if err != nil {
			return err
		}
		for _, prev := range recent {
			if prev.Status == journal.StatusPending {
				return common.ErrRateLimited
			}
		}

		tax, net := journal.WithdrawalTax(amount, s.cfg.WithdrawalTaxRate)
		w = &journal.Withdrawal{
			ID:          uuid.New(),
			UserID:      caller.ID,
			Amount:      amount,
			Tax:         tax,
			NetAmount:   net,
			Method:      method,
			Details:     details,
			Status:      journal.StatusPending,
			RequestedAt: now,
		}
		return tx.CreateWithdrawal(ctx, w)
	})
	if err != nil {
		return nil, fmt.Errorf("request withdrawal: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":       caller.ID,
		"withdrawal_id": w.ID,
		"amount":        w.Amount,
		"net":           w.NetAmount,
		"method":        w.Method,
	}).Info("Новая заявка на вывод")
	s.events.WithdrawalRequested(acc, w)
	return w, nil
}

// ApproveWithdrawal одобряет вывод и списывает брутто-сумму.
// Если баланса уже не хватает, заявка остаётся в ожидании.
func (s *Service) ApproveWithdrawal(ctx context.Context, caller Caller, id uuid.UUID) (*journal.Withdrawal, error) {
	return s.resolveWithdrawal(ctx, caller, id, true)
}

// RejectWithdrawal отклоняет вывод. Баланс не меняется.
func (s *Service) RejectWithdrawal(ctx context.Context, caller Caller, id uuid.UUID) (*journal.Withdrawal, error) {
	return s.resolveWithdrawal(ctx, caller, id, false)
}

func (s *Service) resolveWithdrawal(ctx context.Context, caller Caller, id uuid.UUID, approve bool) (w *journal.Withdrawal, err error) {
	op := "reject_withdrawal"
	if approve {
		op = "approve_withdrawal"
	}
	defer func() { s.metrics.ObserveOperation(op, err) }()

	if err := caller.requireAdmin(); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if w, err = tx.LockWithdrawal(ctx, id); err != nil {
			return err
		}
		now := s.now()
		if !approve {
			if err := w.Reject(now); err != nil {
				return err
			}
			return tx.UpdateWithdrawal(ctx, w)
		}

		if err := w.Approve(now); err != nil {
			return err
		}
		acc, err := tx.LockAccount(ctx, w.UserID)
		if err != nil {
			return err
		}
		entry, err := accounts.Debit(acc, w.Amount, accounts.KindWithdrawal, w.ID, now)
		if err != nil {
			return err
		}
		acc.TotalWithdrawn = acc.TotalWithdrawn.Add(w.Amount)

		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.AppendEntries(ctx, entry); err != nil {
			return err
		}
		return tx.UpdateWithdrawal(ctx, w)
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}

	log.WithFields(log.Fields{
		"withdrawal_id": w.ID,
		"user_id":       w.UserID,
		"amount":        w.Amount,
		"status":        w.Status,
		"admin":         caller.Name,
	}).Info("Заявка на вывод обработана")
	return w, nil
}

// GameResult: сыгранная игра и баланс после расчёта.
type GameResult struct {
	Play    *journal.GamePlay `json:"game"`
	Balance decimal.Decimal   `json:"newBalance"`
}

// PlayGame списывает ставку, разыгрывает исход и при выигрыше зачисляет
// выплату. Запись об игре создаётся при любом исходе.
func (s *Service) PlayGame(ctx context.Context, caller Caller, variant games.Variant, stake decimal.Decimal) (res *GameResult, err error) {
	defer func() { s.metrics.ObserveOperation("play_game", err) }()

	if !s.cfg.FeatureGamesEnabled {
		return nil, common.ErrGamesDisabled
	}
	variant, err = games.ParseVariant(string(variant))
	if err != nil {
		return nil, err
	}
	if err := validAmount("bet amount", stake); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		acc, err := tx.LockAccount(ctx, caller.ID)
		if err != nil {
			return err
		}

		now := s.now()
		play := &journal.GamePlay{ID: uuid.New(), UserID: caller.ID, Variant: string(variant), Stake: stake, PlayedAt: now}

		stakeEntry, err := accounts.Debit(acc, stake, accounts.KindGameStake, play.ID, now)
		if err != nil {
			return err
		}
		entries := []accounts.Entry{stakeEntry}

		out, err := s.games.Play(variant, stake)
		if err != nil {
			return err
		}
		play.Win, play.Payout, play.Result = out.Win, out.Payout, out.Label

		if out.Win {
			payoutEntry, err := accounts.Credit(acc, out.Payout, accounts.KindGamePayout, play.ID, now)
			if err != nil {
				return err
			}
			entries = append(entries, payoutEntry)
			acc.TotalEarnings = acc.TotalEarnings.Add(out.Payout.Sub(stake))
		}

		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.AppendEntries(ctx, entries...); err != nil {
			return err
		}
		if err := tx.CreateGamePlay(ctx, play); err != nil {
			return err
		}
		res = &GameResult{Play: play, Balance: acc.Balance}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("play %s: %w", variant, err)
	}

	s.metrics.ObserveGame(string(variant), res.Play.Win)
	log.WithFields(log.Fields{
		"user_id": caller.ID,
		"game":    variant,
		"stake":   stake,
		"payout":  res.Play.Payout,
	}).Debug("Игра сыграна")
	return res, nil
}
