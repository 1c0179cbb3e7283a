package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/accounts"
	"serotonyl.ru/goldmine/internal/features/settlement"
)

var fastParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPasswordWith(fastParams, "secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	assert.True(t, VerifyPassword("secret123", hash))
	assert.False(t, VerifyPassword("secret124", hash))

	other, err := HashPasswordWith(fastParams, "secret123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, h := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		assert.False(t, VerifyPassword("x", h), h)
	}
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("0123456789abcdef0123", time.Hour)
	acc := &accounts.Account{ID: uuid.New(), Handle: "9000000001", IsAdmin: true}

	raw, expires, err := tokens.Issue(acc)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, claims.UserID)
	assert.Equal(t, "9000000001", claims.Handle)
	assert.True(t, claims.IsAdmin)
}

func TestTokensReject(t *testing.T) {
	tokens := NewTokens("0123456789abcdef0123", time.Hour)
	acc := &accounts.Account{ID: uuid.New(), Handle: "h"}
	raw, _, err := tokens.Issue(acc)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokens("another-secret-value!", time.Hour).Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokens("0123456789abcdef0123", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			UserID: acc.ID,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tokens.Parse(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

// fakeAccounts хранит аккаунты в памяти.
type fakeAccounts struct {
	byHandle map[string]*accounts.Account
}

func (f *fakeAccounts) Register(_ context.Context, in settlement.RegisterInput) (*accounts.Account, error) {
	if _, ok := f.byHandle[in.Handle]; ok {
		return nil, common.ErrDuplicateUser
	}
	acc := &accounts.Account{ID: uuid.New(), Handle: in.Handle, Name: in.Name, PasswordHash: in.PasswordHash}
	f.byHandle[in.Handle] = acc
	return acc, nil
}

func (f *fakeAccounts) AccountByHandle(_ context.Context, handle string) (*accounts.Account, error) {
	acc, ok := f.byHandle[handle]
	if !ok {
		return nil, common.ErrNotFound
	}
	return acc, nil
}

func newTestService() *Service {
	return NewService(&fakeAccounts{byHandle: map[string]*accounts.Account{}}, NewTokens("0123456789abcdef0123", time.Hour), fastParams)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Name: "Ravi", Handle: " 9000000001 ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "9000000001", reg.Account.Handle)
	assert.NotEmpty(t, reg.Token)

	login, err := svc.Login(ctx, "9000000001", "secret123")
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, login.Account.ID)

	claims, err := svc.tokens.Parse(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, claims.UserID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Name: "Ravi", Handle: "9000000001", Password: "secret123"})
	require.NoError(t, err)

	_, errWrong := svc.Login(ctx, "9000000001", "wrong-pass")
	_, errUnknown := svc.Login(ctx, "9000000009", "secret123")
	assert.ErrorIs(t, errWrong, common.ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, common.ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())

	_, err = svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"short handle", RegisterRequest{Name: "n", Handle: "12", Password: "secret123"}},
		{"long handle", RegisterRequest{Name: "n", Handle: strings.Repeat("9", 33), Password: "secret123"}},
		{"short password", RegisterRequest{Name: "n", Handle: "9000000001", Password: "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}

	_, err := svc.Register(ctx, RegisterRequest{Name: "n", Handle: "9000000001", Password: "secret123"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Name: "n", Handle: "9000000001", Password: "secret123"})
	assert.ErrorIs(t, err, common.ErrDuplicateUser)
}
