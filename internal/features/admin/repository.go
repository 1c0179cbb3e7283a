// Package admin: repository.go работает с таблицами admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/goldmine/internal/common"
)

// SessionStore хранит сессии консоли и журнал попыток входа.
type SessionStore interface {
	SaveSession(ctx context.Context, s *Session) error
	// GetSession возвращает сессию или common.ErrNotFound.
	GetSession(ctx context.Context, telegramID int64) (*Session, error)
	DeleteSession(ctx context.Context, telegramID int64) error
	LogAttempt(ctx context.Context, telegramID int64, success bool, at time.Time) error
	// FailedAttemptsSince: число неудачных попыток начиная с since.
	FailedAttemptsSince(ctx context.Context, telegramID int64, since time.Time) (int, error)
}

// Repository: SessionStore на PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveSession создаёт или продлевает сессию администратора.
func (r *Repository) SaveSession(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO admin_sessions (telegram_id, authenticated_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO UPDATE
		SET authenticated_at = EXCLUDED.authenticated_at, expires_at = EXCLUDED.expires_at
	`
	if _, err := r.db.Exec(ctx, query, s.TelegramID, s.AuthenticatedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("ошибка сохранения сессии: %w", err)
	}
	return nil
}

// GetSession возвращает сессию пользователя.
func (r *Repository) GetSession(ctx context.Context, telegramID int64) (*Session, error) {
	query := `
		SELECT telegram_id, authenticated_at, expires_at
		FROM admin_sessions
		WHERE telegram_id = $1
	`
	var s Session
	err := r.db.QueryRow(ctx, query, telegramID).Scan(&s.TelegramID, &s.AuthenticatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	return &s, nil
}

// DeleteSession завершает сессию.
func (r *Repository) DeleteSession(ctx context.Context, telegramID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM admin_sessions WHERE telegram_id = $1`, telegramID)
	return err
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, telegramID int64, success bool, at time.Time) error {
	query := `INSERT INTO admin_login_attempts (telegram_id, success, attempted_at) VALUES ($1, $2, $3)`
	_, err := r.db.Exec(ctx, query, telegramID, success, at)
	return err
}

// FailedAttemptsSince возвращает количество неудачных попыток за период.
func (r *Repository) FailedAttemptsSince(ctx context.Context, telegramID int64, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE telegram_id = $1 AND success = FALSE AND attempted_at >= $2
	`
	var count int
	err := r.db.QueryRow(ctx, query, telegramID, since).Scan(&count)
	return count, err
}

// MemoryStore: SessionStore в памяти для STORE_DRIVER=memory и тестов.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	attempts []LoginAttempt
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

func (m *MemoryStore) SaveSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.TelegramID] = *s
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, telegramID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[telegramID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, telegramID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, telegramID)
	return nil
}

func (m *MemoryStore) LogAttempt(_ context.Context, telegramID int64, success bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, LoginAttempt{
		ID:          int64(len(m.attempts) + 1),
		TelegramID:  telegramID,
		Success:     success,
		AttemptedAt: at,
	})
	return nil
}

func (m *MemoryStore) FailedAttemptsSince(_ context.Context, telegramID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.attempts {
		if a.TelegramID == telegramID && !a.Success && !a.AttemptedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
