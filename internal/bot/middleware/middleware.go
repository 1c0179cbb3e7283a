// Package middleware содержит промежуточные обработчики бота:
// логирование входящих сообщений и восстановление после паники.
package middleware

import (
	"fmt"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const maxLoggedText = 50

// LogMessage логирует входящее сообщение: user_id, chat_id, username и начало текста.
// Пароль после /login в лог не попадает.
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}

	text := []rune(message.Text)
	if message.IsCommand() && message.Command() == "login" {
		text = []rune("/login ***")
	}
	if len(text) > maxLoggedText {
		text = append(text[:maxLoggedText], []rune("...")...)
	}

	log.WithFields(log.Fields{
		"user_id":  message.From.ID,
		"chat_id":  message.Chat.ID,
		"username": message.From.UserName,
		"text":     string(text),
	}).Debug("Входящее сообщение")
}

// Recover гасит панику в горутине component и пишет её в лог со стеком.
// Вызывать через defer.
func Recover(component string) {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": component,
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике — восстановлено")
	}
}
