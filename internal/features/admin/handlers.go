// Package admin: handlers.go обрабатывает команды админ-консоли.
// Консоль работает в личных сообщениях: /login → команды по заявкам.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/journal"
	"serotonyl.ru/goldmine/internal/features/settlement"
	"serotonyl.ru/goldmine/internal/jobs"
)

// Engine: операции движка, доступные из консоли.
type Engine interface {
	Account(ctx context.Context, id uuid.UUID) (*accounts.Account, error)
	ListRecharges(ctx context.Context, caller settlement.Caller, status journal.Status) ([]*journal.Recharge, error)
	ListWithdrawals(ctx context.Context, caller settlement.Caller, status journal.Status) ([]*journal.Withdrawal, error)
	ApproveRecharge(ctx context.Context, caller settlement.Caller, id uuid.UUID) (*journal.Recharge, error)
	RejectRecharge(ctx context.Context, caller settlement.Caller, id uuid.UUID) (*journal.Recharge, error)
	ApproveWithdrawal(ctx context.Context, caller settlement.Caller, id uuid.UUID) (*journal.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, caller settlement.Caller, id uuid.UUID) (*journal.Withdrawal, error)
	GetAdminSummary(ctx context.Context, caller settlement.Caller) (*settlement.AdminSummary, error)
	Location() *time.Location
}

// Accrual: ручной запуск начисления (jobs.AccrualJob).
type Accrual interface {
	Run(ctx context.Context) (*settlement.AccrualReport, error)
}

const helpText = `Команды админ-консоли:
/login <пароль> — вход на 24 часа
/logout — выход
/pending — ожидающие заявки
/approve_recharge <id>, /reject_recharge <id>
/approve_withdrawal <id>, /reject_withdrawal <id>
/summary — сводка по платформе
/accrue — начислить дневной доход`

// Handler обрабатывает команды консоли.
type Handler struct {
	service *Service
	engine  Engine
	accrual Accrual
	send    func(chatID int64, text string)
}

// NewHandler создаёт обработчик консоли. send отправляет ответ в чат.
func NewHandler(service *Service, engine Engine, accrual Accrual, send func(chatID int64, text string)) *Handler {
	return &Handler{service: service, engine: engine, accrual: accrual, send: send}
}

// HandleText обрабатывает сообщение без команды: это может быть пароль
// после /login без аргумента.
func (h *Handler) HandleText(ctx context.Context, chatID, userID int64, text string) bool {
	state := h.service.GetState(userID)
	if state == nil || state.Name != StateAwaitingPassword {
		return false
	}
	h.service.ClearState(userID)
	h.login(ctx, chatID, userID, text)
	return true
}

// HandleCommand маршрутизирует команду консоли.
func (h *Handler) HandleCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	switch cmd {
	case "start", "help":
		h.send(chatID, helpText)
		return
	case "login":
		if len(args) == 0 {
			h.service.SetState(userID, StateAwaitingPassword)
			h.send(chatID, "🔐 Введите пароль для доступа к админ-консоли:")
			return
		}
		h.login(ctx, chatID, userID, strings.Join(args, " "))
		return
	case "logout":
		if err := h.service.Logout(ctx, userID); err != nil {
			log.WithError(err).WithField("telegram_id", userID).Error("Ошибка завершения сессии")
		}
		h.send(chatID, "👋 Сессия завершена")
		return
	}

	if err := h.service.CheckSession(ctx, userID); err != nil {
		if !errors.Is(err, common.ErrSessionExpired) {
			log.WithError(err).WithField("telegram_id", userID).Error("Ошибка проверки сессии")
		}
		h.send(chatID, "🔐 Сначала войдите: /login <пароль>")
		return
	}

	caller := settlement.SystemAdmin(fmt.Sprintf("telegram:%d", userID))
	switch cmd {
	case "pending":
		h.pending(ctx, chatID, caller)
	case "approve_recharge", "reject_recharge":
		h.resolveRecharge(ctx, chatID, caller, cmd == "approve_recharge", args)
	case "approve_withdrawal", "reject_withdrawal":
		h.resolveWithdrawal(ctx, chatID, caller, cmd == "approve_withdrawal", args)
	case "summary":
		h.summary(ctx, chatID, caller)
	case "accrue":
		h.accrue(ctx, chatID)
	default:
		h.send(chatID, "Неизвестная команда. Список команд: /help")
	}
}

func (h *Handler) login(ctx context.Context, chatID, userID int64, password string) {
	if err := h.service.VerifyPassword(ctx, userID, strings.TrimSpace(password)); err != nil {
		h.send(chatID, "❌ "+consoleError(err))
		return
	}
	h.send(chatID, "✅ Аутентификация успешна! Сессия действует 24 часа.\n\n"+helpText)
}

func (h *Handler) pending(ctx context.Context, chatID int64, caller settlement.Caller) {
	recharges, err := h.engine.ListRecharges(ctx, caller, journal.StatusPending)
	if err != nil {
		h.send(chatID, "❌ "+consoleError(err))
		return
	}
	withdrawals, err := h.engine.ListWithdrawals(ctx, caller, journal.StatusPending)
	if err != nil {
		h.send(chatID, "❌ "+consoleError(err))
		return
	}

	loc := h.engine.Location()
	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 Пополнения: %s\n", common.CountRequests(len(recharges)))
	for _, r := range recharges {
		fmt.Fprintf(&sb, "\n• %s, %s, UTR %s\n  %s\n  /approve_recharge %s\n",
			h.handleOf(ctx, r.UserID), common.FormatMoney(r.Amount), r.UTR,
			common.FormatDateTime(r.RequestedAt, loc), r.ID)
	}
	fmt.Fprintf(&sb, "\n📤 Выводы: %s\n", common.CountRequests(len(withdrawals)))
	for _, w := range withdrawals {
		fmt.Fprintf(&sb, "\n• %s, %s (к выплате %s), %s: %s\n  %s\n  /approve_withdrawal %s\n",
			h.handleOf(ctx, w.UserID), common.FormatMoney(w.Amount), common.FormatMoney(w.NetAmount),
			w.Method, w.Details, common.FormatDateTime(w.RequestedAt, loc), w.ID)
	}
	h.send(chatID, sb.String())
}

func (h *Handler) resolveRecharge(ctx context.Context, chatID int64, caller settlement.Caller, approve bool, args []string) {
	id, ok := h.parseID(chatID, args)
	if !ok {
		return
	}
	resolve, verb := h.engine.RejectRecharge, "отклонено"
	if approve {
		resolve, verb = h.engine.ApproveRecharge, "одобрено"
	}
	rec, err := resolve(ctx, caller, id)
	if err != nil {
		h.send(chatID, "❌ "+consoleError(err))
		return
	}
	h.send(chatID, fmt.Sprintf("✅ Пополнение %s: %s для %s", verb, common.FormatMoney(rec.Amount), h.handleOf(ctx, rec.UserID)))
}

func (h *Handler) resolveWithdrawal(ctx context.Context, chatID int64, caller settlement.Caller, approve bool, args []string) {
	id, ok := h.parseID(chatID, args)
	if !ok {
		return
	}
	resolve, verb := h.engine.RejectWithdrawal, "отклонён"
	if approve {
		resolve, verb = h.engine.ApproveWithdrawal, "одобрен"
	}
	w, err := resolve(ctx, caller, id)
	if err != nil {
		h.send(chatID, "❌ "+consoleError(err))
		return
	}
	h.send(chatID, fmt.Sprintf("✅ Вывод %s: %s для %s, к выплате %s (%s: %s)", verb,
		common.FormatMoney(w.Amount), h.handleOf(ctx, w.UserID), common.FormatMoney(w.NetAmount), w.Method, w.Details))
}

func (h *Handler) summary(ctx context.Context, chatID int64, caller settlement.Caller) {
	sum, err := h.engine.GetAdminSummary(ctx, caller)
	if err != nil {
		h.send(chatID, "❌ "+consoleError(err))
		return
	}
	h.send(chatID, fmt.Sprintf(
		"📊 Сводка\n\n👥 %d %s\n📦 Покупок: %d (активных %d)\n📥 Пополнений: %d (ожидают %d)\n📤 Выводов: %d (ожидают %d)\n🎲 Игр: %d",
		sum.TotalUsers, common.PluralizeUsers(sum.TotalUsers),
		sum.TotalPurchases, sum.ActivePurchases,
		sum.TotalRecharges, sum.PendingRecharges,
		sum.TotalWithdrawals, sum.PendingWithdrawals,
		sum.TotalGamePlays,
	))
}

func (h *Handler) accrue(ctx context.Context, chatID int64) {
	report, err := h.accrual.Run(ctx)
	if errors.Is(err, jobs.ErrLeaseHeld) {
		h.send(chatID, "⏳ Начисление уже выполняется")
		return
	}
	h.send(chatID, jobs.FormatReport(report, err))
}

func (h *Handler) parseID(chatID int64, args []string) (uuid.UUID, bool) {
	if len(args) != 1 {
		h.send(chatID, "❌ Укажите ID заявки")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		h.send(chatID, "❌ Некорректный ID заявки")
		return uuid.Nil, false
	}
	return id, true
}

// handleOf: хэндл пользователя для сообщений; при ошибке показываем ID.
func (h *Handler) handleOf(ctx context.Context, id uuid.UUID) string {
	acc, err := h.engine.Account(ctx, id)
	if err != nil {
		return id.String()
	}
	return acc.Handle
}

// consoleError: текст ошибки для администратора. Внутренние ошибки только в лог.
func consoleError(err error) string {
	if common.IsDomain(err) || errors.Is(err, common.ErrWrongPassword) || errors.Is(err, common.ErrTooManyAttempts) {
		return err.Error()
	}
	log.WithError(err).Error("Ошибка админ-консоли")
	return "внутренняя ошибка, подробности в логах"
}
