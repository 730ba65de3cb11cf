package handlers

import (
	"erg-logbook-system/middleware"
	"erg-logbook-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupLogbookRoutes(app *fiber.App, db *gorm.DB, logbookService *services.LogbookService,
	leaderboardService *services.LeaderboardService, syncService *services.SyncService) {

	secured := app.Group("/", middleware.MemberContextMiddleware(db))

	// Dashboard: recent ergs + monthly leaderboard + personal rank
	secured.Get("/dashboard", leaderboardService.Dashboard)

	// Erg CRUD
	secured.Post("/ergs", logbookService.CreateErg)
	secured.Get("/ergs", logbookService.ErgHistory)
	secured.Get("/ergs/:id", logbookService.GetErg)
	secured.Put("/ergs/:id", logbookService.UpdateErg)
	secured.Delete("/ergs/:id", logbookService.DeleteErg)

	// Monthly squad scoreboard, optionally ?distance= filtered
	secured.Get("/squad-scoreboard/:year/:month", leaderboardService.Scoreboard)

	// Concept2 sync trigger, ?latest=1 for incremental
	secured.Post("/sync", syncService.TriggerSync)
}
