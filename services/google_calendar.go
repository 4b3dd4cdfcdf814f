package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleCalendarAPI = "https://www.googleapis.com/calendar/v3"
)

// GoogleCalendarService talks to Google's OAuth and Calendar endpoints. It is
// stateless: every call builds a short-lived client from the credentials it is
// handed, so no token is ever shared across requests.
type GoogleCalendarService struct {
	clientID     string
	clientSecret string
	client       *http.Client
}

func NewGoogleCalendarService() *GoogleCalendarService {
	return &GoogleCalendarService{
		clientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		clientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

type GoogleTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// ExchangeCode trades an OAuth authorization code for tokens.
func (s *GoogleCalendarService) ExchangeCode(ctx context.Context, code, redirectURI string) (*GoogleTokens, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}

	form := url.Values{
		"code":          {code},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}

	return s.tokenRequest(ctx, form)
}

// RefreshTokens trades a refresh token for a fresh access token.
func (s *GoogleCalendarService) RefreshTokens(ctx context.Context, refreshToken string) (*GoogleTokens, error) {
	form := url.Values{
		"refresh_token": {refreshToken},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"grant_type":    {"refresh_token"},
	}

	tokens, err := s.tokenRequest(ctx, form)
	if err != nil {
		return nil, err
	}
	// Google omits the refresh token on refresh; keep the old one.
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

func (s *GoogleCalendarService) tokenRequest(ctx context.Context, form url.Values) (*GoogleTokens, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", googleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google token endpoint returned status %d", resp.StatusCode)
	}

	var tokens GoogleTokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("google token endpoint returned no access token")
	}
	return &tokens, nil
}

// GetAccountEmail resolves the connected account's email address.
func (s *GoogleCalendarService) GetAccountEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", googleUserinfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	return info.Email, nil
}

// ListCalendarIDs fetches the IDs of the account's calendars.
func (s *GoogleCalendarService) ListCalendarIDs(ctx context.Context, accessToken string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", googleCalendarAPI+"/users/me/calendarList?fields=items(id)", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google calendar list returned status %d", resp.StatusCode)
	}

	var list struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		ids = append(ids, item.ID)
	}
	return ids, nil
}
