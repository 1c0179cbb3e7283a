package api

func (s *Server) routes() {
	api := s.app.Group("/api", s.rateLimit)

	api.Get("/healthz", s.healthz)
	api.Post("/register", s.register)
	api.Post("/login", s.login)

	user := api.Group("", s.authRequired)
	user.Get("/plans", s.listPlans)
	user.Post("/purchase", s.purchase)
	user.Get("/purchases", s.purchases)
	user.Post("/recharge", s.recharge)
	user.Get("/recharge/history", s.rechargeHistory)
	user.Post("/withdraw", s.withdraw)
	user.Get("/withdraw/history", s.withdrawHistory)
	user.Post("/play-game", s.playGame)
	user.Get("/game-history", s.gameHistory)
	user.Get("/transactions", s.transactions)
	user.Get("/dashboard/stats", s.dashboardStats)

	admin := user.Group("/admin", s.adminOnly)
	admin.Get("/dashboard", s.adminDashboard)
	admin.Get("/users", s.adminUsers)
	admin.Get("/recharges", s.adminRecharges)
	admin.Get("/withdrawals", s.adminWithdrawals)
	admin.Put("/recharge/:id", s.approveRecharge)
	admin.Put("/recharge/:id/reject", s.rejectRecharge)
	admin.Put("/withdrawal/:id", s.approveWithdrawal)
	admin.Put("/withdrawal/:id/reject", s.rejectWithdrawal)
	admin.Post("/accrue", s.accrue)
}
