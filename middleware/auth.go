package middleware

import (
	"log"

	"erg-logbook-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MemberContextMiddleware resolves the authenticated member from the
// X-User-ID header set by the Gateway and attaches the member and their
// profile to the request context. A missing profile row is created on the
// fly so every member always has one.
func MemberContextMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var member models.Member
		if err := db.Preload("Squad").First(&member, "id = ?", userID).Error; err != nil {
			log.Printf("🚫 [USER_CTX] unknown member %s on %s", userID, c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unknown member"})
		}

		var profile models.Profile
		err := db.First(&profile, "member_id = ?", member.ID).Error
		if err == gorm.ErrRecordNotFound {
			profile = models.Profile{MemberID: member.ID}
			if err := db.Create(&profile).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create profile"})
			}
		} else if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load profile"})
		}

		c.Locals("member", &member)
		c.Locals("profile", &profile)
		return c.Next()
	}
}
