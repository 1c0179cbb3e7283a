// Package admin реализует админ-консоль в Telegram с парольной аутентификацией.
// models.go описывает структуры сессий и попыток входа.
package admin

import "time"

// Session: активная сессия администратора в консоли.
type Session struct {
	TelegramID      int64     `db:"telegram_id"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
}

// Active сообщает, действует ли сессия в момент now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// LoginAttempt: попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	TelegramID  int64     `db:"telegram_id"`
	Success     bool      `db:"success"`
	AttemptedAt time.Time `db:"attempted_at"`
}

// State: состояние диалога с админом.
type State struct {
	Name      string
	ExpiresAt time.Time // состояние живёт 5 минут
}

// Возможные состояния диалога
const (
	StateNone             = ""                  // Нет активного состояния
	StateAwaitingPassword = "awaiting_password" // Ждём пароль после /login без аргумента
)
