package services

import (
	"path/filepath"

	"erg-logbook-system/models"
	"erg-logbook-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

// GetMyProfile returns the authenticated member's profile.
func (s *ProfileService) GetMyProfile(c *fiber.Ctx) error {
	profile := c.Locals("profile").(*models.Profile)
	return c.JSON(profile)
}

type profileInput struct {
	C2LogbookID *string `json:"c2_logbook_id"`
	AutoSync    *bool   `json:"auto_sync"`
}

// UpdateMyProfile updates the Concept2 logbook user id and the auto-sync
// opt-in. Tokens are never set here; they only move through the OAuth flow.
func (s *ProfileService) UpdateMyProfile(c *fiber.Ctx) error {
	profile := c.Locals("profile").(*models.Profile)

	var in profileInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if in.C2LogbookID != nil {
		profile.C2LogbookID = *in.C2LogbookID
	}
	if in.AutoSync != nil {
		profile.AutoSync = *in.AutoSync
	}
	if err := s.DB.Save(profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update profile"})
	}
	return c.JSON(profile)
}

// UnlinkC2 drops the stored Concept2 credential so the member can start the
// authorisation over. This is the remedy for a rejected token.
func (s *ProfileService) UnlinkC2(c *fiber.Ctx) error {
	profile := c.Locals("profile").(*models.Profile)
	profile.C2APIKey = ""
	profile.C2RefreshKey = ""
	profile.TokenExpiresAt = nil
	if err := s.DB.Save(profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to unlink"})
	}
	return c.JSON(fiber.Map{"message": "Concept2 credential removed"})
}

// UploadAvatar stores a profile picture in R2 and saves its public URL.
func (s *ProfileService) UploadAvatar(c *fiber.Ctx) error {
	profile := c.Locals("profile").(*models.Profile)

	file, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is required"})
	}
	if file.Size > 5*1024*1024 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar too large (max 5MB)"})
	}

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := "avatars/" + uuid.NewString() + ext
	avatarURL, err := utils.UploadFileToR2(file, key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload avatar"})
	}

	profile.AvatarURL = avatarURL
	if err := s.DB.Save(profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save avatar url"})
	}
	return c.JSON(fiber.Map{"avatar_url": avatarURL})
}
