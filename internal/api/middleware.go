package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/settlement"
)

const callerKey = "caller"

// observe пишет метрики и лог по каждому запросу.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Ответ формирует обработчик ошибок fiber, статус берём после него.
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	route := c.Route().Path
	elapsed := time.Since(start)
	s.deps.Metrics.ObserveHTTP(c.Method(), route, status, elapsed)

	log.WithFields(log.Fields{
		"method":  c.Method(),
		"path":    c.Path(),
		"status":  status,
		"elapsed": elapsed.String(),
		"ip":      c.IP(),
	}).Debug("HTTP запрос")
	return nil
}

// rateLimit: скользящее окно на IP клиента.
func (s *Server) rateLimit(c *fiber.Ctx) error {
	if !s.limiter.Allow(c.IP()) {
		return writeError(c, fiber.StatusTooManyRequests, "Too many requests", "rate limit exceeded")
	}
	return c.Next()
}

// authRequired проверяет Bearer-токен и перечитывает аккаунт из хранилища:
// удалённый пользователь или снятый флаг администратора действуют сразу.
func (s *Server) authRequired(c *fiber.Ctx) error {
	raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return writeError(c, fiber.StatusUnauthorized, "Access token required", "missing bearer token")
	}
	claims, err := s.deps.Tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return writeError(c, fiber.StatusUnauthorized, "Invalid or expired token", "invalid token")
	}

	acc, err := s.deps.Engine.Account(c.UserContext(), claims.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return writeError(c, fiber.StatusUnauthorized, "Invalid or expired token", "unknown user")
	}
	if err != nil {
		return writeDomainError(c, "Authentication failed", err)
	}

	c.Locals(callerKey, settlement.AccountCaller(acc))
	return c.Next()
}

// adminOnly пропускает только администраторов. Ставится после authRequired.
func (s *Server) adminOnly(c *fiber.Ctx) error {
	if !callerOf(c).Admin {
		return writeError(c, fiber.StatusForbidden, "Admin access required", common.ErrUnauthorized.Error())
	}
	return c.Next()
}

func callerOf(c *fiber.Ctx) settlement.Caller {
	caller, _ := c.Locals(callerKey).(settlement.Caller)
	return caller
}
