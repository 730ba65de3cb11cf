package workers

import (
	"context"
	"log"
	"time"

	"erg-logbook-system/models"
	"erg-logbook-system/services"

	"gorm.io/gorm"
)

// TokenRefreshWorker keeps Concept2 access tokens alive by refreshing any
// that expire within the next hour. Profiles without a refresh token (never
// linked, or unlinked) are left alone.
type TokenRefreshWorker struct {
	db       *gorm.DB
	oauth    *services.OAuthService
	interval time.Duration
}

func NewTokenRefreshWorker(db *gorm.DB, oauth *services.OAuthService) *TokenRefreshWorker {
	return &TokenRefreshWorker{
		db:       db,
		oauth:    oauth,
		interval: 15 * time.Minute,
	}
}

func (w *TokenRefreshWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *TokenRefreshWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refreshExpiring()
		case <-ctx.Done():
			log.Println("⏹️ Token refresh worker stopped")
			return
		}
	}
}

func (w *TokenRefreshWorker) refreshExpiring() {
	cutoff := time.Now().Add(1 * time.Hour)

	var profiles []models.Profile
	err := w.db.
		Where("c2_refresh_key <> '' AND token_expires_at IS NOT NULL AND token_expires_at <= ?", cutoff).
		Find(&profiles).Error
	if err != nil {
		log.Printf("[TOKEN_REFRESH] failed to load expiring profiles: %v", err)
		return
	}

	for i := range profiles {
		profile := &profiles[i]
		if err := w.oauth.RefreshToken(profile); err != nil {
			log.Printf("[TOKEN_REFRESH] refresh failed for member %s: %v", profile.MemberID, err)
			continue
		}
		log.Printf("[TOKEN_REFRESH] refreshed Concept2 token for member %s", profile.MemberID)
	}
}
