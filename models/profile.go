package models

import "time"

// Profile holds one member's Concept2 logbook link: the external user id,
// the OAuth2 token pair and the last-sync watermark. The watermark only
// advances when a sync pass actually imports something.
type Profile struct {
	MemberID     string  `json:"member_id" gorm:"primaryKey"`
	Member       *Member `json:"-" gorm:"foreignKey:MemberID"`
	C2LogbookID  string  `json:"c2_logbook_id"`
	C2APIKey     string  `json:"-"`
	C2RefreshKey string  `json:"-"`

	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	LastC2Sync     *time.Time `json:"last_c2_sync,omitempty"`

	// AutoSync opts the member into the nightly scheduled sync.
	AutoSync bool `json:"auto_sync" gorm:"default:false"`

	AvatarURL string `json:"avatar_url,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Linked reports whether the profile has completed the initial OAuth
// authorisation against the Concept2 logbook.
func (p *Profile) Linked() bool {
	return p.C2APIKey != "" && p.C2LogbookID != ""
}
