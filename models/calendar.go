package models

import "time"

// Calendar providers.
const (
	ProviderGoogle = "google"
	ProviderICal   = "ical"
)

// CalendarConnection is the persisted integration record. The token fields
// hold plaintext only transiently in memory; at rest the row stores cipher
// envelopes, and the default projection omits secrets entirely.
type CalendarConnection struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Provider    string     `json:"provider"`
	AccountID   string     `json:"account_id"`
	CalendarIDs []string   `json:"calendar_ids,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Decrypted secrets, populated only when loaded with includeSecrets.
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}

// BasicAuthPair is the packed CalDAV credential, encrypted as one blob.
type BasicAuthPair struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ConnectGoogleRequest struct {
	Code        string `json:"code" binding:"required"`
	RedirectURI string `json:"redirect_uri" binding:"required"`
}

type ConnectCalDAVRequest struct {
	ServerURL string `json:"server_url" binding:"required,url"`
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
}
