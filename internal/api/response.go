package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goldmine/internal/common"
)

// Response: единый конверт ответа API.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeSuccess(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(Response{Success: true, Message: message, Data: data})
}

func writeError(c *fiber.Ctx, code int, message, detail string) error {
	return c.Status(code).JSON(Response{Success: false, Message: message, Error: detail})
}

var kindStatus = map[common.Kind]int{
	common.KindInvalidInput:      fiber.StatusBadRequest,
	common.KindInsufficientFunds: fiber.StatusBadRequest,
	common.KindPlanLimitExceeded: fiber.StatusBadRequest,
	common.KindDuplicateUser:     fiber.StatusConflict,
	common.KindNotFound:          fiber.StatusNotFound,
	common.KindAlreadyProcessed:  fiber.StatusConflict,
	common.KindRateLimited:       fiber.StatusTooManyRequests,
	common.KindUnauthorized:      fiber.StatusForbidden,
}

// writeDomainError переводит ошибку движка в HTTP-ответ.
// Внутренние ошибки наружу не раскрываются.
func writeDomainError(c *fiber.Ctx, message string, err error) error {
	kind := common.KindOf(err)
	code, ok := kindStatus[kind]
	if !ok {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Внутренняя ошибка API")
		return writeError(c, fiber.StatusInternalServerError, message, "internal error")
	}
	return writeError(c, code, message, publicMessage(err))
}

// publicMessage: текст для клиента. Для некорректного ввода отдаём
// полное описание, для остальных видов только исходную ошибку без
// обёрток вроде "purchase plan 2: ...".
func publicMessage(err error) string {
	if common.KindOf(err) == common.KindInvalidInput {
		return err.Error()
	}
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}
	return err.Error()
}
