package services

import (
	"strconv"
	"time"

	"erg-logbook-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LogbookService struct {
	DB *gorm.DB
}

func NewLogbookService(db *gorm.DB) *LogbookService {
	return &LogbookService{DB: db}
}

// ErgInput is the manual-entry payload for logging or updating an erg.
type ErgInput struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Distance       uint   `json:"distance"`
	Effort         string `json:"effort"`
	SplitTimeSecs  int64  `json:"split_time_secs"`
	ResultTimeSecs int64  `json:"result_time_secs"`
	AvgSPM         *uint  `json:"avg_spm"`
	AvgHeartrate   *uint  `json:"avg_heartrate"`
	IsTest         bool   `json:"is_test"`
	CompletedAt    string `json:"completed_at"` // "2006-01-02"
}

func (in *ErgInput) validate() (time.Time, string) {
	if in.Distance == 0 {
		return time.Time{}, "distance must be a positive number of meters"
	}
	if in.SplitTimeSecs < 0 || in.ResultTimeSecs < 0 {
		return time.Time{}, "split and result times must not be negative"
	}
	if in.AvgSPM != nil && *in.AvgSPM > 100 {
		return time.Time{}, "avg_spm must be between 0 and 100"
	}
	if in.AvgHeartrate != nil && *in.AvgHeartrate > 300 {
		return time.Time{}, "avg_heartrate must be between 0 and 300"
	}
	switch in.Effort {
	case "", models.EffortLow, models.EffortModerate, models.EffortIntense:
	default:
		return time.Time{}, "effort must be low, moderate or intense"
	}
	completedAt, err := time.Parse("2006-01-02", in.CompletedAt)
	if err != nil {
		return time.Time{}, "completed_at must be formatted YYYY-MM-DD"
	}
	return completedAt, ""
}

// CreateErg logs a finished erg for the authenticated member.
func (s *LogbookService) CreateErg(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	var in ErgInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	completedAt, msg := in.validate()
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	erg := models.FinishedErg{
		Name:           in.Name,
		Description:    in.Description,
		Distance:       in.Distance,
		Effort:         in.Effort,
		SplitTimeSecs:  in.SplitTimeSecs,
		ResultTimeSecs: in.ResultTimeSecs,
		AvgSPM:         in.AvgSPM,
		AvgHeartrate:   in.AvgHeartrate,
		IsTest:         in.IsTest,
		CompletedAt:    completedAt,
		CompletedByID:  member.ID,
	}
	if err := s.DB.Create(&erg).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save erg"})
	}
	return c.Status(fiber.StatusCreated).JSON(erg)
}

// ErgHistory lists the member's own ergs, newest first, 10 per page.
func (s *LogbookService) ErgHistory(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	const pageSize = 10

	var total int64
	s.DB.Model(&models.FinishedErg{}).Where("completed_by_id = ?", member.ID).Count(&total)

	var ergs []models.FinishedErg
	if err := s.DB.Where("completed_by_id = ?", member.ID).
		Order("completed_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&ergs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load erg history"})
	}
	return c.JSON(fiber.Map{
		"ergs":  ergs,
		"page":  page,
		"total": total,
	})
}

// GetErg returns one erg by id. History is club-visible; editing is not.
func (s *LogbookService) GetErg(c *fiber.Ctx) error {
	var erg models.FinishedErg
	if err := s.DB.First(&erg, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "erg not found"})
	}
	return c.JSON(erg)
}

// UpdateErg mutates an erg. Only the owner may do this.
func (s *LogbookService) UpdateErg(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	var erg models.FinishedErg
	if err := s.DB.First(&erg, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "erg not found"})
	}
	if erg.CompletedByID != member.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only the owner can update this erg"})
	}

	var in ErgInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	completedAt, msg := in.validate()
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	erg.Name = in.Name
	erg.Description = in.Description
	erg.Distance = in.Distance
	erg.Effort = in.Effort
	erg.SplitTimeSecs = in.SplitTimeSecs
	erg.ResultTimeSecs = in.ResultTimeSecs
	erg.AvgSPM = in.AvgSPM
	erg.AvgHeartrate = in.AvgHeartrate
	erg.IsTest = in.IsTest
	erg.CompletedAt = completedAt
	if err := s.DB.Save(&erg).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update erg"})
	}
	return c.JSON(erg)
}

// DeleteErg removes an erg. Only the owner may do this.
func (s *LogbookService) DeleteErg(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	var erg models.FinishedErg
	if err := s.DB.First(&erg, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "erg not found"})
	}
	if erg.CompletedByID != member.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "only the owner can delete this erg"})
	}
	if err := s.DB.Delete(&erg).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete erg"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
