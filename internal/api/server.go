// Package api: REST API платформы на fiber.
// server.go собирает приложение: middleware, маршруты и запуск.
package api

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/config"
	"serotonyl.ru/goldmine/internal/features/auth"
	"serotonyl.ru/goldmine/internal/features/settlement"
	"serotonyl.ru/goldmine/internal/jobs"
	"serotonyl.ru/goldmine/internal/metrics"
)

var validate = validator.New()

// Deps: зависимости API.
type Deps struct {
	Config   *config.Config
	Engine   *settlement.Service
	Auth     *auth.Service
	Tokens   *auth.Tokens
	Accrual  *jobs.AccrualJob
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil: без /metrics
}

// Server: HTTP-сервер API.
type Server struct {
	app     *fiber.App
	deps    Deps
	limiter *common.RateLimiter[string]
}

// New создаёт сервер и регистрирует маршруты.
func New(deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "goldmine",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})
	s := &Server{
		app:     app,
		deps:    deps,
		limiter: common.NewRateLimiter[string](deps.Config.RateLimitRequests, deps.Config.RateLimitWindow),
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(s.observe)

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	s.routes()
	return s
}

// App: приложение fiber (для тестов).
func (s *Server) App() *fiber.App { return s.app }

// Listen блокируется до остановки сервера.
func (s *Server) Listen(addr string) error {
	log.WithField("addr", addr).Info("HTTP API запущен")
	return s.app.Listen(addr)
}

// Shutdown останавливает приём запросов и ждёт текущие.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Close()
	return s.app.ShutdownWithContext(ctx)
}
