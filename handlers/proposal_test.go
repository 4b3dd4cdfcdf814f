package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func authedJSONRequest(method, path, bearer string, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req
}

// Proposal creation must survive a notification channel that always fails:
// the email boundary is best-effort and outside the transaction.
func TestCreateProposalSurvivesEmailOutage(t *testing.T) {
	db := setupTestDB(t)

	deadMailer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permanently down", http.StatusInternalServerError)
	}))
	defer deadMailer.Close()
	os.Setenv("RESEND_ENDPOINT", deadMailer.URL)
	os.Setenv("RESEND_API_KEY", "test-key")
	defer os.Unsetenv("RESEND_ENDPOINT")
	defer os.Unsetenv("RESEND_API_KEY")

	router := setupTestRouter(db)

	ownerID, _, bearer := createTestUser(t, db, "owner")
	groupID := createTestGroup(t, db, ownerID)

	body := fmt.Sprintf(`{
		"group_id": %q,
		"title": "Pique-nique",
		"proposed_date": "2026-09-20",
		"proposed_time": "12:30",
		"recipients": ["a@example.com", "b@example.com"]
	}`, groupID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedJSONRequest("POST", "/api/v1/proposals", bearer, body))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var created struct {
		ID        string `json:"id"`
		Responses []struct {
			RecipientEmail string `json:"recipient_email"`
		} `json:"responses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if len(created.Responses) != 2 {
		t.Fatalf("responses in 201 body = %d, want 2", len(created.Responses))
	}
	if strings.Contains(w.Body.String(), "token") {
		t.Error("201 body leaks a token field")
	}

	// Fully queryable despite every send failing.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedJSONRequest("GET", "/api/v1/proposals/"+created.ID+"/responses", bearer, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("listing after email outage: status = %d", w.Code)
	}
}

func TestCreateProposalValidation(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	ownerID, _, bearer := createTestUser(t, db, "owner")
	groupID := createTestGroup(t, db, ownerID)

	cases := map[string]string{
		"missing title":   fmt.Sprintf(`{"group_id":%q,"proposed_date":"2026-09-20","proposed_time":"12:30","recipients":["a@example.com"]}`, groupID),
		"empty recipients": fmt.Sprintf(`{"group_id":%q,"title":"T","proposed_date":"2026-09-20","proposed_time":"12:30","recipients":[]}`, groupID),
		"duplicate recipient": fmt.Sprintf(`{"group_id":%q,"title":"T","proposed_date":"2026-09-20","proposed_time":"12:30","recipients":["x@example.com","x@example.com"]}`, groupID),
	}

	for name, body := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedJSONRequest("POST", "/api/v1/proposals", bearer, body))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, w.Code)
		}
	}
}

func TestListResponsesOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	ownerID, _, ownerBearer := createTestUser(t, db, "owner")
	_, _, strangerBearer := createTestUser(t, db, "stranger")
	groupID := createTestGroup(t, db, ownerID)
	_, proposalID, _ := createTestProposal(t, db, groupID, ownerID, "a@example.com", "b@example.com")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedJSONRequest("GET", "/api/v1/proposals/"+proposalID+"/responses", strangerBearer, ""))
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-owner status = %d, want 403", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedJSONRequest("GET", "/api/v1/proposals/"+proposalID+"/responses", ownerBearer, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "response_token") || strings.Contains(w.Body.String(), `"token"`) {
		t.Error("aggregate listing leaks tokens")
	}

	// No bearer at all gets turned away before the handler.
	req := httptest.NewRequest("GET", "/api/v1/proposals/"+proposalID+"/responses", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", w.Code)
	}
}
