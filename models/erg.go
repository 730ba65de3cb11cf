package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Effort levels a member can tag a workout with.
const (
	EffortLow      = "low"
	EffortModerate = "moderate"
	EffortIntense  = "intense"
)

var ErrErgWithoutOwner = errors.New("finished erg must have an owning member")

// FinishedErg is one completed indoor-rowing session, logged manually or
// imported from the Concept2 logbook. Split and result times are stored as
// whole seconds.
type FinishedErg struct {
	ID             string  `json:"id" gorm:"primaryKey"`
	C2LogbookID    *string `json:"c2_logbook_id,omitempty" gorm:"uniqueIndex"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty" gorm:"type:text"`
	Distance       uint    `json:"distance" gorm:"not null"`
	Effort         string  `json:"effort,omitempty"`
	SplitTimeSecs  int64   `json:"split_time_secs" gorm:"not null"` // pace per 500m
	ResultTimeSecs int64   `json:"result_time_secs"`                // total elapsed
	AvgSPM         *uint   `json:"avg_spm,omitempty"`
	AvgHeartrate   *uint   `json:"avg_heartrate,omitempty"`
	IsTest         bool    `json:"is_test" gorm:"default:false;index"`

	CompletedAt   time.Time `json:"completed_at" gorm:"not null;index"`
	CompletedByID string    `json:"completed_by" gorm:"not null;index"`
	CompletedBy   Member    `json:"-" gorm:"foreignKey:CompletedByID"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate assigns the ID, fills the default name and rejects ownerless
// records. The owner requirement is deliberate: the column is also declared
// not null so it cannot regress to an optional relation.
func (e *FinishedErg) BeforeCreate(tx *gorm.DB) error {
	if e.CompletedByID == "" {
		return ErrErgWithoutOwner
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Name == "" {
		e.Name = fmt.Sprintf("%dm. Row", e.Distance)
	}
	return nil
}
