package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"erg-logbook-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AuthenticationError means the stored Concept2 access token was rejected.
// The member has to delete the credential and re-authorise.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("concept2 authentication failed: %s", e.Message)
}

// ConnectionError wraps a non-401 failure response from the Concept2 API.
// Any such response halts the pass; error bodies are never parsed as results.
type ConnectionError struct {
	StatusCode int
	Message    string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("concept2 api returned %d: %s", e.StatusCode, e.Message)
}

// ErrMissingDataEnvelope means the response parsed but carried no "data"
// array where the results should be.
var ErrMissingDataEnvelope = errors.New("no data envelope in concept2 response")

// c2Result is one workout entry from GET /api/users/{id}/results. Times
// arrive in tenths of a second.
type c2Result struct {
	ID         int64  `json:"id"`
	Date       string `json:"date"`
	Distance   uint   `json:"distance"`
	Time       int64  `json:"time"`
	StrokeRate *uint  `json:"stroke_rate"`
	HeartRate  *struct {
		Average *uint `json:"average"`
	} `json:"heart_rate"`
}

type c2ResultsPage struct {
	// Pointer so a present-but-empty list is distinguishable from a
	// missing envelope.
	Data *[]c2Result `json:"data"`
	Meta struct {
		Pagination struct {
			Total       int `json:"total"`
			CurrentPage int `json:"current_page"`
			TotalPages  int `json:"total_pages"`
		} `json:"pagination"`
	} `json:"meta"`
}

// SyncSummary reports one sync pass. Zero imported is a valid outcome.
type SyncSummary struct {
	Imported  int  `json:"imported"`
	Skipped   int  `json:"skipped"`
	MorePages bool `json:"more_pages"`
}

// SyncService pulls finished workouts from the Concept2 logbook into the
// local store. One pass per invocation, first page only.
type SyncService struct {
	DB      *gorm.DB
	BaseURL string
	Client  *http.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSyncService(db *gorm.DB, baseURL string, client *http.Client) *SyncService {
	return &SyncService{
		DB:      db,
		BaseURL: baseURL,
		Client:  client,
		locks:   make(map[string]*sync.Mutex),
	}
}

// memberLock serialises sync passes per member so two concurrent requests
// cannot race on the watermark.
func (s *SyncService) memberLock(memberID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[memberID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[memberID] = l
	}
	return l
}

// resultsURL builds the remote query. latestOnly appends the watermark as a
// from= filter; a full sync omits it.
func (s *SyncService) resultsURL(profile *models.Profile, latestOnly bool) string {
	u := fmt.Sprintf("%s/api/users/%s/results?type=rower", s.BaseURL, profile.C2LogbookID)
	if latestOnly && profile.LastC2Sync != nil {
		u += "&from=" + url.QueryEscape(profile.LastC2Sync.Format(c2DateLayout))
	}
	return u
}

// SyncProfile runs one pipeline pass for the given profile:
// build request -> authenticate -> fetch page -> map records -> commit.
func (s *SyncService) SyncProfile(ctx context.Context, profile *models.Profile, latestOnly bool) (*SyncSummary, error) {
	lock := s.memberLock(profile.MemberID)
	lock.Lock()
	defer lock.Unlock()

	page, err := s.fetchPage(ctx, s.resultsURL(profile, latestOnly), profile.C2APIKey)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{
		MorePages: page.Meta.Pagination.TotalPages > page.Meta.Pagination.CurrentPage,
	}
	for _, result := range *page.Data {
		erg, err := s.buildErg(profile.MemberID, result)
		if err != nil {
			return nil, fmt.Errorf("failed to map concept2 result %d: %w", result.ID, err)
		}
		if err := s.DB.Create(erg).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				summary.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to store concept2 result %d: %w", result.ID, err)
		}
		summary.Imported++
	}

	if summary.Imported > 0 {
		now := time.Now()
		profile.LastC2Sync = &now
		if err := s.DB.Save(profile).Error; err != nil {
			return nil, fmt.Errorf("failed to advance sync watermark: %w", err)
		}
	}
	if summary.MorePages {
		log.Printf("[SYNC] member %s has more result pages on concept2 (total %d); only the first was processed",
			profile.MemberID, page.Meta.Pagination.Total)
	}
	return summary, nil
}

func (s *SyncService) fetchPage(ctx context.Context, rawURL, token string) (*c2ResultsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build concept2 request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, &ConnectionError{Message: err.Error()}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &AuthenticationError{Message: remoteMessage(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ConnectionError{StatusCode: resp.StatusCode, Message: remoteMessage(resp.Body)}
	}

	var page c2ResultsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, ErrMissingDataEnvelope
	}
	if page.Data == nil {
		return nil, ErrMissingDataEnvelope
	}
	return &page, nil
}

// remoteMessage pulls the "message" field from an error body, bounded so a
// hostile payload cannot balloon memory.
func remoteMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return "unreadable error response"
	}
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return string(raw)
}

func (s *SyncService) buildErg(memberID string, r c2Result) (*models.FinishedErg, error) {
	split, err := CalculateSplitTime(r.Time, r.Distance)
	if err != nil {
		return nil, err
	}
	completedAt, err := ConvertDateField(r.Date)
	if err != nil {
		return nil, err
	}
	logbookID := strconv.FormatInt(r.ID, 10)
	erg := &models.FinishedErg{
		Name:           fmt.Sprintf("Concept2 %dm. Row", r.Distance),
		C2LogbookID:    &logbookID,
		CompletedByID:  memberID,
		Distance:       r.Distance,
		AvgSPM:         r.StrokeRate,
		CompletedAt:    completedAt,
		ResultTimeSecs: int64(FormatDuration(r.Time).Seconds()),
		SplitTimeSecs:  int64(split.Seconds()),
	}
	if r.HeartRate != nil {
		erg.AvgHeartrate = r.HeartRate.Average
	}
	return erg, nil
}

// SyncLinkedProfiles runs an incremental pass for every auto-sync profile.
// Used by the nightly scheduler; failures are logged per member and do not
// stop the batch.
func (s *SyncService) SyncLinkedProfiles(ctx context.Context) {
	var profiles []models.Profile
	if err := s.DB.Where("auto_sync = ?", true).Find(&profiles).Error; err != nil {
		log.Printf("[SYNC] failed to load auto-sync profiles: %v", err)
		return
	}
	for i := range profiles {
		profile := &profiles[i]
		if !profile.Linked() {
			continue
		}
		summary, err := s.SyncProfile(ctx, profile, true)
		if err != nil {
			log.Printf("[SYNC] auto-sync failed for member %s: %v", profile.MemberID, err)
			continue
		}
		if summary.Imported > 0 {
			log.Printf("[SYNC] auto-synced %d erg(s) for member %s (%d duplicates skipped)",
				summary.Imported, profile.MemberID, summary.Skipped)
		}
	}
}

// TriggerSync is the inbound endpoint: POST /sync?latest=1 pulls the
// member's Concept2 results, incrementally when latest is set.
func (s *SyncService) TriggerSync(c *fiber.Ctx) error {
	profile := c.Locals("profile").(*models.Profile)
	if !profile.Linked() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "link your Concept2 logbook before syncing",
		})
	}

	latestOnly := c.Query("latest") != ""
	summary, err := s.SyncProfile(c.UserContext(), profile, latestOnly)
	if err != nil {
		var authErr *AuthenticationError
		var connErr *ConnectionError
		switch {
		case errors.As(err, &authErr):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": fmt.Sprintf("Connection Error: %s: If this error persists try to delete "+
					"the API Key in your profile and authorize yourself again.", authErr.Message),
			})
		case errors.As(err, &connErr):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": fmt.Sprintf("Connection Error: %s.", connErr.Message),
			})
		case errors.Is(err, ErrMissingDataEnvelope):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "C2 API Error: No data in response",
			})
		default:
			log.Printf("[SYNC] pass failed for member %s: %v", profile.MemberID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sync failed"})
		}
	}

	return c.JSON(fiber.Map{
		"imported":   summary.Imported,
		"skipped":    summary.Skipped,
		"more_pages": summary.MorePages,
		"message": fmt.Sprintf("%d Erg Workouts from your Concept2 Logbook have been synchronised",
			summary.Imported),
	})
}
