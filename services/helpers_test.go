package services

import (
	"fmt"
	"testing"
	"time"

	"erg-logbook-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Squad{},
		&models.Member{},
		&models.Profile{},
		&models.FinishedErg{},
	))
	return db
}

func createSquad(t *testing.T, db *gorm.DB, name string) *models.Squad {
	t.Helper()
	squad := &models.Squad{SquadName: name}
	require.NoError(t, db.Create(squad).Error)
	return squad
}

func createMember(t *testing.T, db *gorm.DB, name string, squad *models.Squad, isCoach bool) *models.Member {
	t.Helper()
	member := &models.Member{Name: name, IsCoach: isCoach}
	if squad != nil {
		member.SquadID = &squad.ID
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

func createTestErg(t *testing.T, db *gorm.DB, member *models.Member, distance uint, splitSecs, resultSecs int64, completedAt time.Time) *models.FinishedErg {
	t.Helper()
	erg := &models.FinishedErg{
		Distance:       distance,
		SplitTimeSecs:  splitSecs,
		ResultTimeSecs: resultSecs,
		IsTest:         true,
		CompletedAt:    completedAt,
		CompletedByID:  member.ID,
	}
	require.NoError(t, db.Create(erg).Error)
	return erg
}

// monthDate is shorthand for midnight UTC on a given day.
func monthDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
