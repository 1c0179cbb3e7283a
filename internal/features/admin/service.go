// Package admin: service.go содержит логику аутентификации, управления сессиями
// и состояние диалога консоли.
package admin

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/auth"
)

const (
	maxFailedAttempts = 3
	lockoutWindow     = time.Hour
	sessionTTL        = 24 * time.Hour
	stateTTL          = 5 * time.Minute
)

// Service управляет входом в консоль.
type Service struct {
	store        SessionStore
	passwordHash string
	now          func() time.Time

	states   map[int64]*State // Состояния диалогов (in-memory)
	statesMu sync.RWMutex
}

// NewService создаёт сервис консоли. passwordHash: argon2id-хеш ADMIN_PASSWORD_HASH.
func NewService(store SessionStore, passwordHash string) *Service {
	return &Service{
		store:        store,
		passwordHash: passwordHash,
		now:          time.Now,
		states:       make(map[int64]*State),
	}
}

// VerifyPassword проверяет пароль администратора и открывает сессию на 24 часа.
// 3 неудачные попытки за час блокируют вход на час.
func (s *Service) VerifyPassword(ctx context.Context, telegramID int64, password string) error {
	now := s.now()
	attempts, err := s.store.FailedAttemptsSince(ctx, telegramID, now.Add(-lockoutWindow))
	if err != nil {
		return err
	}
	if attempts >= maxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	match := auth.VerifyPassword(password, s.passwordHash)
	if err := s.store.LogAttempt(ctx, telegramID, match, now); err != nil {
		log.WithError(err).WithField("telegram_id", telegramID).Warn("Не удалось записать попытку входа")
	}
	if !match {
		log.WithField("telegram_id", telegramID).Warn("Неверный пароль админ-консоли")
		return common.ErrWrongPassword
	}

	return s.store.SaveSession(ctx, &Session{
		TelegramID:      telegramID,
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(sessionTTL),
	})
}

// CheckSession возвращает nil для действующей сессии и ErrSessionExpired,
// если сессии нет или она истекла.
func (s *Service) CheckSession(ctx context.Context, telegramID int64) error {
	sess, err := s.store.GetSession(ctx, telegramID)
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrSessionExpired
	}
	if err != nil {
		return err
	}
	if !sess.Active(s.now()) {
		return common.ErrSessionExpired
	}
	return nil
}

// Logout завершает сессию.
func (s *Service) Logout(ctx context.Context, telegramID int64) error {
	s.ClearState(telegramID)
	return s.store.DeleteSession(ctx, telegramID)
}

// GetState возвращает текущее состояние диалога.
func (s *Service) GetState(telegramID int64) *State {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	state, ok := s.states[telegramID]
	if !ok || s.now().After(state.ExpiresAt) {
		return nil
	}
	return state
}

// SetState устанавливает состояние диалога с 5-минутным таймаутом.
func (s *Service) SetState(telegramID int64, name string) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	s.states[telegramID] = &State{Name: name, ExpiresAt: s.now().Add(stateTTL)}
}

// ClearState сбрасывает состояние диалога.
func (s *Service) ClearState(telegramID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	delete(s.states, telegramID)
}
