package handlers

import (
	"erg-logbook-system/middleware"
	"erg-logbook-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProfileRoutes(app *fiber.App, db *gorm.DB, profileService *services.ProfileService,
	oauthService *services.OAuthService) {

	secured := app.Group("/", middleware.MemberContextMiddleware(db))

	secured.Get("/profile", profileService.GetMyProfile)
	secured.Put("/profile", profileService.UpdateMyProfile)
	secured.Post("/profile/avatar", profileService.UploadAvatar)
	secured.Delete("/profile/c2-link", profileService.UnlinkC2)

	// OAuth2 redirect target registered with Concept2
	secured.Get("/oauth_with_c2", oauthService.Callback)
}
