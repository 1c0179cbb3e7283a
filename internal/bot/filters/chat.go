// Package filters решает, каким сообщениям доступна админ-консоль.
package filters

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Verdict: решение фильтра по сообщению.
type Verdict int

const (
	Ignore Verdict = iota // не отвечаем вовсе
	Deny                  // личка не-администратора: отвечаем отказом
	Allow
)

// AdminFilter пропускает только личные сообщения от ADMIN_IDS.
type AdminFilter struct {
	adminIDs map[int64]struct{}
}

// NewAdminFilter создаёт фильтр по списку Telegram ID администраторов.
func NewAdminFilter(adminIDs []int64) *AdminFilter {
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &AdminFilter{adminIDs: ids}
}

// CheckAccess проверяет сообщение.
func (f *AdminFilter) CheckAccess(message *tgbotapi.Message) Verdict {
	if message == nil || message.Chat == nil {
		log.WithField("component", "AdminFilter").Warn("nil message/chat")
		return Ignore
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "AdminFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (service/channel message?)")
		return Ignore
	}

	logger := log.WithFields(log.Fields{
		"component": "AdminFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
	})

	// Группы и каналы игнорируем: консоль работает только в личке.
	if !message.Chat.IsPrivate() {
		logger.Debug("ignore: not a private chat")
		return Ignore
	}
	if _, ok := f.adminIDs[message.From.ID]; !ok {
		logger.Info("deny: not an admin")
		return Deny
	}
	return Allow
}
