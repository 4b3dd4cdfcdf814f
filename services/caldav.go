package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gatherly-app/gatherly-api/models"
)

// CalDAVService validates basic-auth pairs against a CalDAV server. Like the
// Google client it holds no credentials; every probe builds its request from
// the pair it is handed.
type CalDAVService struct {
	client *http.Client
}

func NewCalDAVService() *CalDAVService {
	return &CalDAVService{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

const principalQuery = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop><d:current-user-principal/></d:prop>
</d:propfind>`

// Probe issues a Depth-0 PROPFIND for the current user principal. A 401 means
// the pair is wrong; any 2xx (207 Multi-Status included) means the server
// accepted the credentials.
func (s *CalDAVService) Probe(ctx context.Context, serverURL string, pair models.BasicAuthPair) error {
	req, err := http.NewRequestWithContext(ctx, "PROPFIND", serverURL, strings.NewReader(principalQuery))
	if err != nil {
		return fmt.Errorf("%w: invalid server URL", ErrValidation)
	}
	req.SetBasicAuth(pair.Username, pair.Password)
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("Depth", "0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("caldav server unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: caldav server rejected the credentials", ErrValidation)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return fmt.Errorf("caldav server returned status %d", resp.StatusCode)
	}
}
