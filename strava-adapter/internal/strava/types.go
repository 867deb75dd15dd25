package strava

import (
	"encoding/json"
	"time"

	"github.com/Checker-Finance/activity-adapters/pkg/model"
)

const (
	DefaultAPIBaseURL   = "https://www.strava.com/api/v3"
	DefaultOAuthBaseURL = "https://www.strava.com"

	// authScope is requested by the authorization URL; activity:read_all
	// includes private activities.
	authScope = "activity:read_all"
)

// TokenSet is the OAuth credential triple. ExpiresAt is authoritative: the
// access token is never used once now >= ExpiresAt.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token may no longer be used at now.
func (t TokenSet) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// tokenDocument is the persisted credential file format and also the shape of
// Strava's token endpoint response. Pointers distinguish absent from empty.
type tokenDocument struct {
	AccessToken  *string      `json:"access_token"`
	RefreshToken *string      `json:"refresh_token"`
	ExpiresAt    *json.Number `json:"expires_at"`
}

// AppCredentials are the OAuth application credentials used by the token exchange.
type AppCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// RawActivity is one element of the activity-list response, left undecoded so
// that normalization can default each field independently.
type RawActivity = json.RawMessage

// ActivityBatch is the result of FetchActivities. An empty batch is valid and
// carries the no_activities warning.
type ActivityBatch struct {
	Activities []RawActivity
	Warnings   []model.Warning
}

// errorResponse is Strava's fault body.
type errorResponse struct {
	Message string `json:"message"`
	Errors  []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
	} `json:"errors"`
}
