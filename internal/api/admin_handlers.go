package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"serotonyl.ru/goldmine/internal/features/journal"
	"serotonyl.ru/goldmine/internal/jobs"
)

func (s *Server) adminDashboard(c *fiber.Ctx) error {
	sum, err := s.deps.Engine.GetAdminSummary(c.UserContext(), callerOf(c))
	if err != nil {
		return writeDomainError(c, "Failed to load dashboard", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Admin dashboard", sum)
}

func (s *Server) adminUsers(c *fiber.Ctx) error {
	users, err := s.deps.Engine.ListUsers(c.UserContext(), callerOf(c))
	if err != nil {
		return writeDomainError(c, "Failed to load users", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Users", users)
}

// statusFilter читает ?status=; пусто: все заявки.
func statusFilter(c *fiber.Ctx) (journal.Status, bool) {
	switch st := journal.Status(c.Query("status")); st {
	case "", journal.StatusPending, journal.StatusApproved, journal.StatusRejected:
		return st, true
	default:
		return "", false
	}
}

func (s *Server) adminRecharges(c *fiber.Ctx) error {
	status, ok := statusFilter(c)
	if !ok {
		return writeError(c, fiber.StatusBadRequest, "Validation error", "unknown status")
	}
	list, err := s.deps.Engine.ListRecharges(c.UserContext(), callerOf(c), status)
	if err != nil {
		return writeDomainError(c, "Failed to load recharges", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Recharges", list)
}

func (s *Server) adminWithdrawals(c *fiber.Ctx) error {
	status, ok := statusFilter(c)
	if !ok {
		return writeError(c, fiber.StatusBadRequest, "Validation error", "unknown status")
	}
	list, err := s.deps.Engine.ListWithdrawals(c.UserContext(), callerOf(c), status)
	if err != nil {
		return writeDomainError(c, "Failed to load withdrawals", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Withdrawals", list)
}

// pathID читает :id. При ошибке ответ уже записан.
func pathID(c *fiber.Ctx) (uuid.UUID, bool, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false, writeError(c, fiber.StatusBadRequest, "Validation error", "invalid id")
	}
	return id, true, nil
}

func (s *Server) approveRecharge(c *fiber.Ctx) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	rec, err := s.deps.Engine.ApproveRecharge(c.UserContext(), callerOf(c), id)
	if err != nil {
		return writeDomainError(c, "Failed to approve recharge", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Recharge approved successfully", rechargeOutput{Recharge: rec})
}

func (s *Server) rejectRecharge(c *fiber.Ctx) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	rec, err := s.deps.Engine.RejectRecharge(c.UserContext(), callerOf(c), id)
	if err != nil {
		return writeDomainError(c, "Failed to reject recharge", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Recharge rejected", rechargeOutput{Recharge: rec})
}

func (s *Server) approveWithdrawal(c *fiber.Ctx) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	w, err := s.deps.Engine.ApproveWithdrawal(c.UserContext(), callerOf(c), id)
	if err != nil {
		return writeDomainError(c, "Failed to approve withdrawal", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Withdrawal approved successfully", withdrawalOutput{Withdrawal: w})
}

func (s *Server) rejectWithdrawal(c *fiber.Ctx) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	w, err := s.deps.Engine.RejectWithdrawal(c.UserContext(), callerOf(c), id)
	if err != nil {
		return writeDomainError(c, "Failed to reject withdrawal", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Withdrawal rejected", withdrawalOutput{Withdrawal: w})
}

// accrue: ручной запуск начисления под той же арендой, что и cron.
func (s *Server) accrue(c *fiber.Ctx) error {
	report, err := s.deps.Accrual.Run(c.UserContext())
	if errors.Is(err, jobs.ErrLeaseHeld) {
		return writeError(c, fiber.StatusConflict, "Accrual already running", err.Error())
	}
	if err != nil && report == nil {
		return writeDomainError(c, "Accrual failed", err)
	}
	if err != nil {
		return writeSuccess(c, fiber.StatusOK, "Daily income accrued with errors", report)
	}
	return writeSuccess(c, fiber.StatusOK, "Daily income accrued", report)
}
