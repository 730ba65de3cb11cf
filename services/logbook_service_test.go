package services

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"erg-logbook-system/middleware"
	"erg-logbook-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLogbookApp(db *gorm.DB) *fiber.App {
	svc := NewLogbookService(db)
	app := fiber.New()
	app.Use(middleware.MemberContextMiddleware(db))
	app.Post("/ergs", svc.CreateErg)
	app.Get("/ergs", svc.ErgHistory)
	app.Get("/ergs/:id", svc.GetErg)
	app.Put("/ergs/:id", svc.UpdateErg)
	app.Delete("/ergs/:id", svc.DeleteErg)
	return app
}

func TestCreateErg(t *testing.T) {
	db := newTestDB(t)
	member := createMember(t, db, "rower", nil, false)
	app := newLogbookApp(db)

	payload := `{
		"distance": 2000,
		"effort": "intense",
		"split_time_secs": 105,
		"result_time_secs": 420,
		"avg_spm": 28,
		"is_test": true,
		"completed_at": "2024-03-12"
	}`
	req := httptest.NewRequest("POST", "/ergs", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", member.ID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var erg models.FinishedErg
	require.NoError(t, db.First(&erg, "completed_by_id = ?", member.ID).Error)
	assert.Equal(t, "2000m. Row", erg.Name)
	assert.Equal(t, models.EffortIntense, erg.Effort)
	assert.True(t, erg.IsTest)
	assert.Equal(t, monthDate(2024, time.March, 12), erg.CompletedAt)
	require.NotNil(t, erg.AvgSPM)
	assert.Equal(t, uint(28), *erg.AvgSPM)
	assert.Nil(t, erg.C2LogbookID)
}

func TestCreateErgValidation(t *testing.T) {
	db := newTestDB(t)
	member := createMember(t, db, "rower", nil, false)
	app := newLogbookApp(db)

	cases := []struct {
		name    string
		payload string
	}{
		{"zero distance", `{"distance": 0, "completed_at": "2024-03-12"}`},
		{"negative split", `{"distance": 2000, "split_time_secs": -1, "completed_at": "2024-03-12"}`},
		{"spm out of range", `{"distance": 2000, "avg_spm": 140, "completed_at": "2024-03-12"}`},
		{"heartrate out of range", `{"distance": 2000, "avg_heartrate": 400, "completed_at": "2024-03-12"}`},
		{"unknown effort", `{"distance": 2000, "effort": "maximal", "completed_at": "2024-03-12"}`},
		{"bad date", `{"distance": 2000, "completed_at": "12/03/2024"}`},
		{"missing date", `{"distance": 2000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/ergs", strings.NewReader(tc.payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", member.ID)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}

	var count int64
	db.Model(&models.FinishedErg{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestErgHistoryPagination(t *testing.T) {
	db := newTestDB(t)
	member := createMember(t, db, "rower", nil, false)
	other := createMember(t, db, "teammate", nil, false)
	app := newLogbookApp(db)

	for day := 1; day <= 12; day++ {
		createTestErg(t, db, member, 2000, 100, 400, monthDate(2024, time.March, day))
	}
	createTestErg(t, db, other, 2000, 100, 400, monthDate(2024, time.March, 20))

	req := httptest.NewRequest("GET", "/ergs", nil)
	req.Header.Set("X-User-ID", member.ID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, float64(12), body["total"])
	ergs := body["ergs"].([]interface{})
	require.Len(t, ergs, 10)
	// Newest first.
	first := ergs[0].(map[string]interface{})
	assert.Contains(t, first["completed_at"], "2024-03-12")

	req = httptest.NewRequest("GET", "/ergs?page=2", nil)
	req.Header.Set("X-User-ID", member.ID)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	body = decodeBody(t, resp.Body)
	assert.Len(t, body["ergs"].([]interface{}), 2)
}

func TestGetErgVisibleAcrossMembers(t *testing.T) {
	db := newTestDB(t)
	owner := createMember(t, db, "owner", nil, false)
	viewer := createMember(t, db, "viewer", nil, false)
	app := newLogbookApp(db)

	erg := createTestErg(t, db, owner, 2000, 100, 400, monthDate(2024, time.March, 1))

	req := httptest.NewRequest("GET", "/ergs/"+erg.ID, nil)
	req.Header.Set("X-User-ID", viewer.ID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/ergs/nope", nil)
	req.Header.Set("X-User-ID", viewer.ID)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateErgOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	owner := createMember(t, db, "owner", nil, false)
	intruder := createMember(t, db, "intruder", nil, false)
	app := newLogbookApp(db)

	erg := createTestErg(t, db, owner, 2000, 100, 400, monthDate(2024, time.March, 1))

	payload := `{"name": "Rewritten", "distance": 5000, "completed_at": "2024-03-02"}`
	req := httptest.NewRequest("PUT", "/ergs/"+erg.ID, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", intruder.ID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("PUT", "/ergs/"+erg.ID, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", owner.ID)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded models.FinishedErg
	require.NoError(t, db.First(&reloaded, "id = ?", erg.ID).Error)
	assert.Equal(t, "Rewritten", reloaded.Name)
	assert.Equal(t, uint(5000), reloaded.Distance)
	assert.False(t, reloaded.IsTest)
}

func TestDeleteErgOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	owner := createMember(t, db, "owner", nil, false)
	intruder := createMember(t, db, "intruder", nil, false)
	app := newLogbookApp(db)

	erg := createTestErg(t, db, owner, 2000, 100, 400, monthDate(2024, time.March, 1))

	req := httptest.NewRequest("DELETE", "/ergs/"+erg.ID, nil)
	req.Header.Set("X-User-ID", intruder.ID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("DELETE", "/ergs/"+erg.ID, nil)
	req.Header.Set("X-User-ID", owner.ID)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	var count int64
	db.Model(&models.FinishedErg{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestUnknownMemberRejected(t *testing.T) {
	db := newTestDB(t)
	app := newLogbookApp(db)

	req := httptest.NewRequest("GET", "/ergs", nil)
	req.Header.Set("X-User-ID", fmt.Sprintf("missing-%d", time.Now().UnixNano()))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
