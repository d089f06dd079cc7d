package handlers

import (
	"wager-settlement-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAccountRoutes(app *fiber.App, accountService *services.AccountService, leaderboardService *services.LeaderboardService) {
	// 🔓 Public routes
	app.Get("/leaderboard/:division", leaderboardService.LeaderboardHandler)
	app.Get("/accounts/:id", accountService.GetAccountHandler)
}

func SetupSecuredAccountRoutes(secured, admin fiber.Router, accountService *services.AccountService) {
	// 🔐 Authenticated routes
	secured.Post("/accounts", accountService.CreateAccountHandler)
	secured.Get("/users/me", accountService.GetMeHandler)
	secured.Get("/users/me/ledger", accountService.GetLedgerHandler)
	secured.Get("/users/me/notifications", accountService.GetNotificationsHandler)

	// 🔒 Admin-only routes
	admin.Patch("/accounts/:id/division", accountService.SetDivisionHandler)
}
