// Package app инициализирует все компоненты приложения.
// app.go: точка сборки: хранилище, движок расчётов, API, админ-консоль
// и планировщик начисления.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/api"
	"serotonyl.ru/goldmine/internal/bot"
	"serotonyl.ru/goldmine/internal/bot/filters"
	"serotonyl.ru/goldmine/internal/config"
	"serotonyl.ru/goldmine/internal/db/cache"
	"serotonyl.ru/goldmine/internal/db/postgres"
	"serotonyl.ru/goldmine/internal/features/admin"
	"serotonyl.ru/goldmine/internal/features/auth"
	"serotonyl.ru/goldmine/internal/features/games"
	"serotonyl.ru/goldmine/internal/features/plans"
	"serotonyl.ru/goldmine/internal/features/settlement"
	"serotonyl.ru/goldmine/internal/jobs"
	"serotonyl.ru/goldmine/internal/metrics"
)

// App содержит все компоненты приложения.
type App struct {
	Config    *config.Config
	Engine    *settlement.Service
	Accrual   *jobs.AccrualJob
	API       *api.Server
	Bot       *bot.Bot // nil, если консоль выключена
	Scheduler *jobs.Scheduler

	DB    *pgxpool.Pool         // nil для STORE_DRIVER=memory
	Redis redis.UniversalClient // nil без REDIS_ADDR
}

// Core: хранилище, движок и задача начисления без транспорта.
// Нужен и сервису, и одноразовому cmd/accrue.
type Core struct {
	Engine   *settlement.Service
	Accrual  *jobs.AccrualJob
	Sessions admin.SessionStore
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	DB    *pgxpool.Pool
	Redis redis.UniversalClient
}

// Close закрывает соединения.
func (c *Core) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}

// NewCore подключает хранилище и собирает движок.
// Порядок инициализации важен: компоненты зависят друг от друга.
func NewCore(ctx context.Context, cfg *config.Config) (_ *Core, err error) {
	core := &Core{}
	defer func() {
		if err != nil {
			core.Close()
		}
	}()

	// === 1. Хранилище ===
	var store settlement.Store
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("STORE_DRIVER=memory: данные не переживут перезапуск")
		store = settlement.NewMemoryStore()
		core.Sessions = admin.NewMemoryStore()
	default:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		core.DB = pool
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		store = settlement.NewRepository(pool)
		core.Sessions = admin.NewRepository(pool)
	}

	// === 2. Redis (аренда начисления) ===
	rdb, err := cache.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	core.Redis = rdb
	var lease jobs.Lease
	if rdb != nil {
		lease = jobs.NewRedisLease(rdb)
		log.WithField("addr", cfg.RedisAddr).Info("Аренда начисления через Redis")
	}

	// === 3. Метрики ===
	core.Registry = prometheus.NewRegistry()
	core.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	core.Metrics = metrics.New(core.Registry)

	// === 4. Движок расчётов ===
	core.Engine = settlement.NewService(store, plans.Default(), games.NewSecureGenerator(), core.Metrics, cfg)
	if _, err := core.Engine.EnsureAdmin(ctx, cfg.AdminHandle, cfg.AdminName, cfg.AdminPasswordHash); err != nil {
		return nil, fmt.Errorf("ошибка создания администратора: %w", err)
	}

	// === 5. Задача начисления ===
	core.Accrual = jobs.NewAccrualJob(core.Engine, lease, cfg.AccrualLeaseTTL, cfg.AccrualIdempotent)
	return core, nil
}

// New создаёт и инициализирует приложение.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	core, err := NewCore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Engine:  core.Engine,
		Accrual: core.Accrual,
		DB:      core.DB,
		Redis:   core.Redis,
	}

	// === 6. Админ-консоль в Telegram ===
	var report func(text string)
	if cfg.AdminConsoleEnabled() {
		botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			core.Close()
			return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
		}
		botAPI.Debug = cfg.AppEnv == "development"
		log.Infof("Авторизован как @%s", botAPI.Self.UserName)

		send := bot.SendFunc(botAPI)
		notifier := admin.NewNotifier(cfg.AdminIDs, send)
		core.Engine.SetEvents(notifier)
		report = notifier.Broadcast

		handler := admin.NewHandler(admin.NewService(core.Sessions, cfg.AdminPasswordHash), core.Engine, core.Accrual, send)
		a.Bot = bot.New(botAPI, cfg, handler, filters.NewAdminFilter(cfg.AdminIDs))
	} else {
		log.Info("Админ-консоль выключена: нет TELEGRAM_BOT_TOKEN или ADMIN_IDS")
	}

	// === 7. Планировщик задач ===
	a.Scheduler, err = jobs.NewScheduler(core.Accrual, cfg.AccrualCron, core.Engine.Location(), report)
	if err != nil {
		core.Close()
		return nil, err
	}

	// === 8. HTTP API ===
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	a.API = api.New(api.Deps{
		Config:   cfg,
		Engine:   core.Engine,
		Auth:     auth.NewService(core.Engine, tokens, auth.DefaultParams),
		Tokens:   tokens,
		Accrual:  core.Accrual,
		Metrics:  core.Metrics,
		Gatherer: core.Registry,
	})

	return a, nil
}

// Run запускает планировщик, консоль и API и блокируется до отмены ctx
// или падения HTTP-сервера.
func (a *App) Run(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("ошибка запуска планировщика: %w", err)
	}
	defer a.Scheduler.Stop()

	if a.Bot != nil {
		go a.Bot.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.API.Listen(a.Config.HTTPAddr) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP API остановлен: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.API.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("ошибка остановки HTTP API: %w", err)
	}
	return nil
}

// Close освобождает соединения с БД и Redis.
func (a *App) Close() {
	(&Core{DB: a.DB, Redis: a.Redis}).Close()
}
