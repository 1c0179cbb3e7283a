package admin

import (
	"fmt"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/journal"
)

// Notifier рассылает администраторам уведомления о новых заявках.
// Реализует settlement.Events.
type Notifier struct {
	adminIDs []int64
	send     func(chatID int64, text string)
}

// NewNotifier создаёт рассыльщик по чатам adminIDs.
func NewNotifier(adminIDs []int64, send func(chatID int64, text string)) *Notifier {
	return &Notifier{adminIDs: adminIDs, send: send}
}

// Broadcast отправляет текст во все админские чаты.
func (n *Notifier) Broadcast(text string) {
	for _, id := range n.adminIDs {
		n.send(id, text)
	}
}

// RechargeRequested уведомляет о новой заявке на пополнение.
func (n *Notifier) RechargeRequested(acc *accounts.Account, r *journal.Recharge) {
	go n.Broadcast(fmt.Sprintf("📥 Новая заявка на пополнение\n\n%s (%s)\nСумма: %s\nUTR: %s\n\n/approve_recharge %s\n/reject_recharge %s",
		acc.Name, acc.Handle, common.FormatMoney(r.Amount), r.UTR, r.ID, r.ID))
}

// WithdrawalRequested уведомляет о новой заявке на вывод.
func (n *Notifier) WithdrawalRequested(acc *accounts.Account, w *journal.Withdrawal) {
	go n.Broadcast(fmt.Sprintf("📤 Новая заявка на вывод\n\n%s (%s)\nСумма: %s\nНалог: %s\nК выплате: %s\n%s: %s\n\n/approve_withdrawal %s\n/reject_withdrawal %s",
		acc.Name, acc.Handle, common.FormatMoney(w.Amount), common.FormatMoney(w.Tax), common.FormatMoney(w.NetAmount),
		w.Method, w.Details, w.ID, w.ID))
}
