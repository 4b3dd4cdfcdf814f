package handlers

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"os"
	"testing"

	"github.com/gatherly-app/gatherly-api/config"
	"github.com/gatherly-app/gatherly-api/middleware"
	"github.com/gatherly-app/gatherly-api/models"
	"github.com/gatherly-app/gatherly-api/services"
	"github.com/gatherly-app/gatherly-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping test database: %v", err)
	}
	if err := config.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 3)
	}
	os.Setenv("CREDENTIAL_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))
	if err := utils.InitEncryption(); err != nil {
		t.Fatalf("init encryption: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// setupTestRouter wires the same route shape as main, without CORS or rate
// limiting in the way.
func setupTestRouter(db *sql.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	ws := NewWSHandler()
	responseHandler := NewResponseHandler(db, ws)
	router.GET("/respond/:token", responseHandler.Respond)
	router.POST("/respond/:token/alternate", responseHandler.ProposeAlternate)
	router.GET("/respond/:token/invite.ics", responseHandler.InviteICS)

	proposalHandler := NewProposalHandler(db)
	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware())
	protected.POST("/proposals", proposalHandler.Create)
	protected.GET("/proposals/:id/responses", proposalHandler.ListResponses)

	return router
}

func createTestUser(t *testing.T, db *sql.DB, name string) (id, email, bearer string) {
	t.Helper()

	email = fmt.Sprintf("%s-%s@test.gatherly.app", name, uuid.New().String()[:8])
	err := db.QueryRow(`
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, 'x', $2)
		RETURNING id
	`, email, name).Scan(&id)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() { db.Exec(`DELETE FROM users WHERE id = $1`, id) })

	bearer, err = utils.GenerateAccessToken(id, email)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	return id, email, bearer
}

func createTestGroup(t *testing.T, db *sql.DB, ownerID string) string {
	t.Helper()

	group, err := services.NewGroupService(db).Create(context.Background(), "handler test group", ownerID)
	if err != nil {
		t.Fatalf("create test group: %v", err)
	}
	t.Cleanup(func() { db.Exec(`DELETE FROM groups WHERE id = $1`, group.ID) })
	return group.ID
}

func testProposalModel(groupID, proposerID string) *models.Proposal {
	return &models.Proposal{
		GroupID:      groupID,
		ProposedBy:   proposerID,
		Title:        "Apéro d'équipe",
		ProposedDate: "2026-10-02",
		ProposedTime: "19:00",
	}
}

func createTestProposal(t *testing.T, db *sql.DB, groupID, proposerID string, emails ...string) (*services.ProposalService, string, []string) {
	t.Helper()

	svc := services.NewProposalService(db)
	recipients := make([]services.Recipient, 0, len(emails))
	for _, e := range emails {
		recipients = append(recipients, services.Recipient{Email: e})
	}

	proposal, err := svc.CreateWithRecipients(context.Background(), testProposalModel(groupID, proposerID), recipients)
	if err != nil {
		t.Fatalf("create test proposal: %v", err)
	}

	tokens := make([]string, 0, len(proposal.Responses))
	for _, r := range proposal.Responses {
		tokens = append(tokens, r.Token)
	}
	return svc, proposal.ID, tokens
}
