// Package bot: транспорт админ-консоли в Telegram: polling, фильтр и маршрутизация.
// bot.go запускает приём обновлений и передаёт сообщения в консоль.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/bot/filters"
	"serotonyl.ru/goldmine/internal/bot/middleware"
	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/config"
)

// Console: обработчик команд админ-консоли (admin.Handler).
type Console interface {
	HandleText(ctx context.Context, chatID, userID int64, text string) bool
	HandleCommand(ctx context.Context, chatID, userID int64, cmd string, args []string)
}

// Bot: главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.AdminFilter
	rateLimiter *common.RateLimiter[int64]
	console     Console
	send        func(chatID int64, text string)

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт бота.
func New(api *tgbotapi.BotAPI, cfg *config.Config, console Console, chatFilter *filters.AdminFilter) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 16
	}

	return &Bot{
		api:         api,
		cfg:         cfg,
		chatFilter:  chatFilter,
		rateLimiter: common.NewRateLimiter[int64](cfg.RateLimitRequests, cfg.RateLimitWindow),
		console:     console,
		send:        SendFunc(api),
		parser:      NewCommandParser(),
		inflight:    make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram. Блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	defer b.rateLimiter.Close()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
		"admins":       len(b.cfg.AdminIDs),
	}).Info("Админ-консоль запущена и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.Recover("bot")

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message
	middleware.LogMessage(message)

	switch b.chatFilter.CheckAccess(message) {
	case filters.Ignore:
		return
	case filters.Deny:
		b.send(message.Chat.ID, "❌ Бот доступен только администраторам платформы")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		if !b.console.HandleText(ctx, chatID, userID, message.Text) {
			b.send(chatID, "Отправьте команду. Список команд: /help")
		}
		return
	}

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": len(args),
	}).Debug("routing command")
	b.console.HandleCommand(ctx, chatID, userID, cmd, args)
}

// SendFunc возвращает функцию отправки текстового сообщения через api.
func SendFunc(api *tgbotapi.BotAPI) func(chatID int64, text string) {
	return func(chatID int64, text string) {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := api.Send(msg); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
		}
	}
}

// CommandParser разбирает команды с префиксами /, ! и .
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!", "."},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @botname у команды отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command, _, _ := strings.Cut(strings.ToLower(parts[0]), "@")
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}
