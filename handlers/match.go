package handlers

import (
	"wager-settlement-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService) {
	// 🔓 Public browse routes
	app.Get("/matches", matchService.ListOpenMatchesHandler)
	app.Get("/matches/:id", matchService.GetMatchHandler)
}

func SetupSecuredMatchRoutes(secured, admin fiber.Router, matchService *services.MatchService) {
	// 🔐 Authenticated routes
	secured.Post("/matches", matchService.CreateMatchHandler)
	secured.Post("/matches/:id/join", matchService.JoinMatchHandler)
	secured.Post("/matches/:id/start", matchService.StartMatchHandler)
	secured.Post("/matches/:id/keepalive", matchService.KeepAliveHandler)
	secured.Post("/matches/:id/backout", matchService.BackOutHandler)
	secured.Post("/matches/:id/cancel", matchService.CancelMatchHandler)
	secured.Post("/matches/:id/report", matchService.ReportHandler)
	secured.Post("/matches/:id/no-show", matchService.ClaimNoShowHandler)

	// 🔒 Admin-only routes
	admin.Post("/matches/:id/resolve", matchService.ResolveDisputeHandler)
}
