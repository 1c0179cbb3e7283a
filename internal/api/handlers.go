package api

import (
	"github.com/gofiber/fiber/v2"

	"serotonyl.ru/goldmine/internal/features/auth"
	"serotonyl.ru/goldmine/internal/features/games"
	"serotonyl.ru/goldmine/internal/features/journal"
)

// bind разбирает и проверяет тело запроса. При ошибке ответ уже записан.
func bind(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, writeError(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return false, writeError(c, fiber.StatusBadRequest, "Validation error", err.Error())
	}
	return true, nil
}

func (s *Server) healthz(c *fiber.Ctx) error {
	return writeSuccess(c, fiber.StatusOK, "API is healthy", nil)
}

func (s *Server) session(c *fiber.Ctx, code int, message string, sess *auth.Session) error {
	return writeSuccess(c, code, message, sessionOutput{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      userView{Account: sess.Account, ReferralLink: s.deps.Engine.ReferralLink(sess.Account)},
	})
}

func (s *Server) register(c *fiber.Ctx) error {
	var req registerInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	sess, err := s.deps.Auth.Register(c.UserContext(), auth.RegisterRequest{
		Name:         req.Name,
		Handle:       req.Mobile,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		return writeDomainError(c, "Registration failed", err)
	}
	return s.session(c, fiber.StatusCreated, "User registered successfully", sess)
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	sess, err := s.deps.Auth.Login(c.UserContext(), req.Mobile, req.Password)
	if err != nil {
		return writeDomainError(c, "Login failed", err)
	}
	return s.session(c, fiber.StatusOK, "Login successful", sess)
}

func (s *Server) listPlans(c *fiber.Ctx) error {
	return writeSuccess(c, fiber.StatusOK, "Plans", s.deps.Engine.ListPlans())
}

func (s *Server) purchase(c *fiber.Ctx) error {
	var req purchaseInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	p, err := s.deps.Engine.PurchasePlan(c.UserContext(), callerOf(c), req.PlanID)
	if err != nil {
		return writeDomainError(c, "Purchase failed", err)
	}
	return writeSuccess(c, fiber.StatusCreated, "Plan purchased successfully", purchaseOutput{Purchase: p})
}

func (s *Server) purchases(c *fiber.Ctx) error {
	list, err := s.deps.Engine.Purchases(c.UserContext(), callerOf(c))
	if err != nil {
		return writeDomainError(c, "Failed to load purchases", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Purchases", list)
}

func (s *Server) recharge(c *fiber.Ctx) error {
	var req rechargeInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	rec, err := s.deps.Engine.RequestRecharge(c.UserContext(), callerOf(c), req.Amount, req.UTR)
	if err != nil {
		return writeDomainError(c, "Recharge request failed", err)
	}
	return writeSuccess(c, fiber.StatusCreated, "Recharge request submitted successfully", rechargeOutput{Recharge: rec})
}

func (s *Server) rechargeHistory(c *fiber.Ctx) error {
	list, err := s.deps.Engine.RechargeHistory(c.UserContext(), callerOf(c))
	if err != nil {
		return writeDomainError(c, "Failed to load recharge history", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Recharge history", list)
}

func (s *Server) withdraw(c *fiber.Ctx) error {
	var req withdrawInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	w, err := s.deps.Engine.RequestWithdrawal(c.UserContext(), callerOf(c), req.Amount, journal.Method(req.Method), req.Details)
	if err != nil {
		return writeDomainError(c, "Withdrawal request failed", err)
	}
	return writeSuccess(c, fiber.StatusCreated, "Withdrawal request submitted successfully", withdrawalOutput{Withdrawal: w})
}

func (s *Server) withdrawHistory(c *fiber.Ctx) error {
	list, err := s.deps.Engine.WithdrawalHistory(c.UserContext(), callerOf(c))
	if err != nil {
		return writeDomainError(c, "Failed to load withdrawal history", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Withdrawal history", list)
}

func (s *Server) playGame(c *fiber.Ctx) error {
	var req playInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	res, err := s.deps.Engine.PlayGame(c.UserContext(), callerOf(c), games.Variant(req.GameType), req.BetAmount)
	if err != nil {
		return writeDomainError(c, "Game play failed", err)
	}
	message := "Better luck next time!"
	if res.Play.Win {
		message = "Congratulations! You won!"
	}
	return writeSuccess(c, fiber.StatusOK, message, playOutput{
		Game:       res.Play,
		NewBalance: res.Balance,
		Win:        res.Play.Win,
		Winnings:   res.Play.Payout,
	})
}

func (s *Server) gameHistory(c *fiber.Ctx) error {
	list, err := s.deps.Engine.GameHistory(c.UserContext(), callerOf(c))
	if err != nil {
		return writeDomainError(c, "Failed to load game history", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Game history", list)
}

func (s *Server) transactions(c *fiber.Ctx) error {
	list, err := s.deps.Engine.Transactions(c.UserContext(), callerOf(c))
	if err != nil {
		return writeDomainError(c, "Failed to load transactions", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Transactions", list)
}

func (s *Server) dashboardStats(c *fiber.Ctx) error {
	stats, err := s.deps.Engine.GetUserStats(c.UserContext(), callerOf(c))
	if err != nil {
		return writeDomainError(c, "Failed to load stats", err)
	}
	return writeSuccess(c, fiber.StatusOK, "Dashboard stats", stats)
}
