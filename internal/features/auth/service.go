package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/settlement"
)

const (
	minHandleLen   = 3
	maxHandleLen   = 32
	minPasswordLen = 6
)

// Accounts: то, что нужно входу от движка расчётов.
type Accounts interface {
	Register(ctx context.Context, in settlement.RegisterInput) (*accounts.Account, error)
	AccountByHandle(ctx context.Context, handle string) (*accounts.Account, error)
}

// Session: выданный токен и аккаунт, для которого он выпущен.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *accounts.Account
}

// Service регистрирует пользователей и выдаёт токены.
type Service struct {
	accounts Accounts
	tokens   *Tokens
	params   Params
}

// NewService создаёт сервис входа. Новые пароли хешируются с params.
func NewService(accs Accounts, tokens *Tokens, params Params) *Service {
	return &Service{accounts: accs, tokens: tokens, params: params}
}

// RegisterRequest: данные формы регистрации.
type RegisterRequest struct {
	Name         string
	Handle       string
	Password     string
	ReferralCode string // хэндл пригласившего
}

// Register проверяет форму, хеширует пароль и создаёт аккаунт.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	handle := strings.TrimSpace(req.Handle)
	if n := utf8.RuneCountInString(handle); n < minHandleLen || n > maxHandleLen {
		return nil, fmt.Errorf("mobile must be %d..%d characters: %w", minHandleLen, maxHandleLen, common.ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, common.ErrInvalidInput)
	}

	hash, err := HashPasswordWith(s.params, req.Password)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.Register(ctx, settlement.RegisterInput{
		Handle:         handle,
		Name:           req.Name,
		PasswordHash:   hash,
		ReferrerHandle: req.ReferralCode,
	})
	if err != nil {
		return nil, err
	}
	return s.session(acc)
}

// Login проверяет хэндл и пароль. Неизвестный хэндл и неверный пароль
// неразличимы для вызывающего.
func (s *Service) Login(ctx context.Context, handle, password string) (*Session, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" || password == "" {
		return nil, fmt.Errorf("mobile and password are required: %w", common.ErrInvalidInput)
	}

	acc, err := s.accounts.AccountByHandle(ctx, handle)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login %q: %w", handle, err)
	}
	if !VerifyPassword(password, acc.PasswordHash) {
		log.WithField("handle", handle).Warn("Неудачная попытка входа")
		return nil, common.ErrInvalidCredentials
	}
	return s.session(acc)
}

func (s *Service) session(acc *accounts.Account) (*Session, error) {
	token, expires, err := s.tokens.Issue(acc)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, Account: acc}, nil
}
