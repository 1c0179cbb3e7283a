package filters

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestCheckAccess(t *testing.T) {
	f := NewAdminFilter([]int64{42, 43})

	msg := func(userID, chatID int64, chatType string) *tgbotapi.Message {
		return &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: chatID, Type: chatType},
		}
	}

	assert.Equal(t, Allow, f.CheckAccess(msg(42, 42, "private")))
	assert.Equal(t, Allow, f.CheckAccess(msg(43, 43, "private")))
	assert.Equal(t, Deny, f.CheckAccess(msg(7, 7, "private")))
	assert.Equal(t, Ignore, f.CheckAccess(msg(42, -100, "supergroup")))
	assert.Equal(t, Ignore, f.CheckAccess(&tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1, Type: "private"}}))
	assert.Equal(t, Ignore, f.CheckAccess(nil))
}
