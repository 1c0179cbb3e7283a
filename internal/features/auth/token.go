package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"serotonyl.ru/goldmine/internal/features/accounts"
)

const issuer = "goldmine"

// ErrInvalidToken: токен отсутствует, подделан или истёк.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims: содержимое JWT. Флаг администратора в токене информационный:
// права каждый раз перечитываются из хранилища.
type Claims struct {
	UserID  uuid.UUID `json:"id"`
	Handle  string    `json:"mobile"`
	IsAdmin bool      `json:"is_admin"`
	jwt.RegisteredClaims
}

// Tokens выпускает и проверяет токены HS256.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens создаёт выпускающего токены.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue выпускает токен для аккаунта.
func (t *Tokens) Issue(acc *accounts.Account) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := &Claims{
		UserID:  acc.ID,
		Handle:  acc.Handle,
		IsAdmin: acc.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, expires, nil
}

// Parse проверяет подпись и срок действия токена.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
