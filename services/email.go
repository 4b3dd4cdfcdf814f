package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// EmailService sends transactional mail through the Resend HTTP API. Sends are
// best-effort by contract: callers log failures and never roll back committed
// work because a notification did not go out.
type EmailService struct {
	apiKey    string
	fromEmail string
	appURL    string
	endpoint  string
	client    *http.Client
}

func NewEmailService() *EmailService {
	fromEmail := os.Getenv("FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = "noreply@gatherly.app"
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}

	// Overridable so staging and tests can point at a stub.
	endpoint := os.Getenv("RESEND_ENDPOINT")
	if endpoint == "" {
		endpoint = resendEndpoint
	}

	return &EmailService{
		apiKey:    os.Getenv("RESEND_API_KEY"),
		fromEmail: fromEmail,
		appURL:    appURL,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SendProposalInvite mails one recipient their personal response links. The
// token in the links is the recipient's entire credential.
func (s *EmailService) SendProposalInvite(to, recipientName, proposerName, title, date, timeOfDay, token string) error {
	if s.apiKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	respondBase := fmt.Sprintf("%s/respond/%s", s.appURL, token)
	greeting := "Bonjour"
	if recipientName != "" {
		greeting = "Bonjour " + recipientName
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: sans-serif; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); color: white; padding: 30px; border-radius: 10px 10px 0 0; }
        .content { background: #f8f9fa; padding: 30px; }
        .button { display: inline-block; padding: 12px 24px; text-decoration: none; border-radius: 8px; margin: 8px 4px; color: white; }
        .yes { background: #10b981; }
        .no { background: #ef4444; }
        .alt { background: #667eea; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>📅 Proposition de rencontre</h1>
        </div>
        <div class="content">
            <p>%s,</p>
            <p><strong>%s</strong> propose une rencontre : <strong>"%s"</strong></p>
            <p>📆 Le <strong>%s</strong> à <strong>%s</strong></p>
            <p>
                <a href="%s?answer=yes" class="button yes">Je serai là</a>
                <a href="%s?answer=no" class="button no">Indisponible</a>
                <a href="%s" class="button alt">Proposer un autre créneau</a>
            </p>
            <p><a href="%s/invite.ics">📎 Ajouter à mon calendrier (.ics)</a></p>
        </div>
    </div>
</body>
</html>
	`, greeting, proposerName, title, date, timeOfDay, respondBase, respondBase, respondBase, respondBase)

	subject := fmt.Sprintf("%s vous propose une rencontre : %s", proposerName, title)
	return s.send(to, subject, htmlBody)
}

func (s *EmailService) send(to, subject, htmlBody string) error {
	payload := map[string]interface{}{
		"from":    fmt.Sprintf("Gatherly <%s>", s.fromEmail),
		"to":      []string{to},
		"subject": subject,
		"html":    htmlBody,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", s.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("email API returned status: %d", resp.StatusCode)
	}

	return nil
}
