package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"erg-logbook-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Scope requested for every Concept2 token, initial or refreshed.
const oauthScope = "user:read,results:read"

// OAuthError carries a 4xx token-endpoint response. The raw body is shown to
// the member; the stored tokens are left untouched.
type OAuthError struct {
	StatusCode int
	Body       string
}

func (e *OAuthError) Error() string {
	return fmt.Sprintf("concept2 oauth endpoint returned %d: %s", e.StatusCode, e.Body)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// OAuthService manages the Concept2 OAuth2 token pair on member profiles.
type OAuthService struct {
	DB           *gorm.DB
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Client       *http.Client
}

func NewOAuthService(db *gorm.DB, tokenURL, clientID, clientSecret, redirectURI string, client *http.Client) *OAuthService {
	return &OAuthService{
		DB:           db,
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		Client:       client,
	}
}

// requestToken is the single client function both grants go through: a
// form-encoded POST against the authorization endpoint.
func (s *OAuthService) requestToken(form url.Values) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, s.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/vnd.c2logbook.v1+json")
	return s.Client.Do(req)
}

func (s *OAuthService) baseForm(grantType string) url.Values {
	form := url.Values{}
	form.Set("client_id", s.ClientID)
	form.Set("client_secret", s.ClientSecret)
	form.Set("grant_type", grantType)
	form.Set("redirect_uri", s.RedirectURI)
	form.Set("scope", oauthScope)
	return form
}

// AcquireToken exchanges a one-time authorization code for the initial
// token pair.
func (s *OAuthService) AcquireToken(profile *models.Profile, authCode string) error {
	form := s.baseForm("authorization_code")
	form.Set("code", authCode)
	return s.exchange(profile, form)
}

// RefreshToken trades the stored refresh token for a fresh pair.
func (s *OAuthService) RefreshToken(profile *models.Profile) error {
	form := s.baseForm("refresh_token")
	form.Set("refresh_token", profile.C2RefreshKey)
	return s.exchange(profile, form)
}

func (s *OAuthService) exchange(profile *models.Profile, form url.Values) error {
	resp, err := s.requestToken(form)
	if err != nil {
		return fmt.Errorf("concept2 oauth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read oauth response: %w", err)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &OAuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("concept2 oauth endpoint returned %d", resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return fmt.Errorf("failed to decode oauth response: %w", err)
	}

	profile.C2APIKey = tokens.AccessToken
	profile.C2RefreshKey = tokens.RefreshToken
	if tokens.ExpiresIn > 0 {
		expiry := time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		profile.TokenExpiresAt = &expiry
	}
	if err := s.DB.Save(profile).Error; err != nil {
		return fmt.Errorf("failed to persist oauth tokens: %w", err)
	}
	return nil
}

// Callback handles the OAuth redirect. A profile that already holds an
// access token is refreshed; otherwise the callback's code is exchanged for
// the initial pair.
func (s *OAuthService) Callback(c *fiber.Ctx) error {
	profile := c.Locals("profile").(*models.Profile)

	var err error
	var message string
	if profile.C2APIKey != "" {
		err = s.RefreshToken(profile)
		message = "Your C2 API key has been refreshed"
	} else {
		authCode := c.Query("code")
		if authCode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing authorization code"})
		}
		err = s.AcquireToken(profile, authCode)
		message = "Your C2 API key has been saved"
	}

	if err != nil {
		var oauthErr *OAuthError
		if errors.As(err, &oauthErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": oauthErr.Body})
		}
		log.Printf("[OAUTH] token exchange failed for member %s: %v", profile.MemberID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "token exchange with Concept2 failed"})
	}
	return c.JSON(fiber.Map{"message": message})
}
