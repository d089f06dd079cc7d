package handlers

import (
	"wager-settlement-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService) {
	// 🔓 Public browse routes
	app.Get("/tournaments", tournamentService.ListTournamentsHandler)
	app.Get("/tournaments/:id", tournamentService.GetTournamentHandler)
}

func SetupSecuredTournamentRoutes(secured, admin fiber.Router, tournamentService *services.TournamentService) {
	// 🔐 Authenticated routes
	secured.Post("/tournaments/:id/join", tournamentService.JoinTournamentHandler)
	secured.Post("/tournaments/:id/matchups/:matchupId/report", tournamentService.ReportMatchupHandler)
	secured.Post("/tournaments/:id/matchups/:matchupId/no-show", tournamentService.ClaimMatchupNoShowHandler)

	// 🔒 Admin-only routes
	admin.Post("/tournaments", tournamentService.CreateTournamentHandler)
}
