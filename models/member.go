package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Squad is a sub-group of club members sharing a monthly leaderboard.
type Squad struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	SquadName string    `json:"squad_name" gorm:"not null"`
	Slug      string    `json:"slug" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (s *Squad) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Slug == "" {
		s.Slug = slug.Make(s.SquadName)
	}
	return nil
}

// Member is a club participant. Coaches can see every squad's leaderboard;
// regular members only their own.
type Member struct {
	ID      string  `json:"id" gorm:"primaryKey"`
	Name    string  `json:"name"`
	SquadID *string `json:"squad_id,omitempty" gorm:"index"`
	Squad   *Squad  `json:"squad,omitempty" gorm:"foreignKey:SquadID"`
	IsCoach bool    `json:"is_coach" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
