package handlers

import (
	"wager-settlement-system/middleware"
	"wager-settlement-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes wires the whole HTTP surface. The user context middleware is
// mounted at "/" and guards every route registered after it, so all public
// routes must enter the stack before the secured group is created.
func SetupRoutes(
	app *fiber.App,
	matchService *services.MatchService,
	tournamentService *services.TournamentService,
	accountService *services.AccountService,
	leaderboardService *services.LeaderboardService,
) {
	SetupAccountRoutes(app, accountService, leaderboardService)
	SetupMatchRoutes(app, matchService)
	SetupTournamentRoutes(app, tournamentService)

	secured := app.Group("/", middleware.UserContextMiddleware())
	admin := secured.Group("/admin")

	SetupSecuredAccountRoutes(secured, admin, accountService)
	SetupSecuredMatchRoutes(secured, admin, matchService)
	SetupSecuredTournamentRoutes(secured, admin, tournamentService)
}
