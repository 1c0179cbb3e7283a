package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/goldmine/internal/config"
	"serotonyl.ru/goldmine/internal/features/auth"
	"serotonyl.ru/goldmine/internal/features/settlement"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := auth.HashPasswordWith(auth.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}, "admin-pass")
	require.NoError(t, err)

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "app-test-secret-0123456789")
	t.Setenv("ADMIN_PASSWORD_HASH", hash)
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("ADMIN_IDS", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

func TestNewMemoryApp(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Bot, "без токена консоль выключена")
	require.NotNil(t, a.Scheduler)

	// Администратор создан при старте и может войти через API.
	admin, err := a.Engine.AccountByHandle(ctx, cfg.AdminHandle)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"mobile":"`+cfg.AdminHandle+`","password":"admin-pass"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.API.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	report, err := a.Accrual.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Active)
}

func TestNewCoreIsRepeatable(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)

	core, err := NewCore(ctx, cfg)
	require.NoError(t, err)
	defer core.Close()

	// Повторный EnsureAdmin не создаёт второго администратора.
	_, err = core.Engine.EnsureAdmin(ctx, cfg.AdminHandle, cfg.AdminName, cfg.AdminPasswordHash)
	require.NoError(t, err)
	users, err := core.Engine.ListUsers(ctx, settlement.SystemAdmin("test"))
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
