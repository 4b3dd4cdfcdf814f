package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gatherly-app/gatherly-api/middleware"
	"github.com/gatherly-app/gatherly-api/models"
	"github.com/gatherly-app/gatherly-api/services"

	"github.com/gin-gonic/gin"
)

type CalendarHandler struct {
	Vault  *services.VaultService
	Google *services.GoogleCalendarService
	CalDAV *services.CalDAVService
}

func NewCalendarHandler(db *sql.DB) *CalendarHandler {
	return &CalendarHandler{
		Vault:  services.NewVaultService(db),
		Google: services.NewGoogleCalendarService(),
		CalDAV: services.NewCalDAVService(),
	}
}

// ConnectGoogle exchanges the OAuth code and stores the tokens encrypted.
// Plaintext tokens live only in this request's memory.
func (h *CalendarHandler) ConnectGoogle(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.ConnectGoogleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	tokens, err := h.Google.ExchangeCode(ctx, req.Code, req.RedirectURI)
	if err != nil {
		log.Printf("❌ Google code exchange failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Google authorization failed"})
		return
	}

	accountEmail, err := h.Google.GetAccountEmail(ctx, tokens.AccessToken)
	if err != nil {
		log.Printf("❌ Google userinfo failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not resolve Google account"})
		return
	}

	calendarIDs, err := h.Google.ListCalendarIDs(ctx, tokens.AccessToken)
	if err != nil {
		// Connection is still usable without the calendar list.
		log.Printf("⚠️ Google calendar list failed: %v", err)
		calendarIDs = nil
	}

	var expiresAt *time.Time
	if tokens.ExpiresIn > 0 {
		t := time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	conn, err := h.Vault.StoreGoogle(ctx, userID, accountEmail, tokens.AccessToken, tokens.RefreshToken, expiresAt, calendarIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✅ Google calendar connected for user %s", userID)
	c.JSON(http.StatusCreated, conn)
}

// ConnectCalDAV validates a basic-auth pair against the server, then stores it
// packed and encrypted.
func (h *CalendarHandler) ConnectCalDAV(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.ConnectCalDAVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	pair := models.BasicAuthPair{Username: req.Username, Password: req.Password}

	if err := h.CalDAV.Probe(ctx, req.ServerURL, pair); err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.Vault.StoreCalDAV(ctx, userID, req.ServerURL, pair, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✅ CalDAV calendar connected for user %s", userID)
	c.JSON(http.StatusCreated, conn)
}

// List returns the secrets-omitted projection of the caller's connections.
func (h *CalendarHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	connections, err := h.Vault.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch connections"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"connections": connections})
}

// Refresh rotates Google tokens for one connection. The decrypted refresh
// token exists only for the duration of the upstream call.
func (h *CalendarHandler) Refresh(c *gin.Context) {
	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	conn, err := h.Vault.Load(ctx, c.Param("id"), userID, true)
	if err != nil {
		respondError(c, err)
		return
	}

	if conn.Provider != models.ProviderGoogle {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only Google connections support token refresh"})
		return
	}
	if conn.RefreshToken == "" {
		c.JSON(http.StatusConflict, gin.H{
			"error": "No refresh token on file",
			"code":  "reauth_required",
		})
		return
	}

	tokens, err := h.Google.RefreshTokens(ctx, conn.RefreshToken)
	if err != nil {
		log.Printf("❌ Google token refresh failed for connection %s: %v", conn.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Token refresh failed"})
		return
	}

	var expiresAt *time.Time
	if tokens.ExpiresIn > 0 {
		t := time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	if err := h.Vault.Refresh(ctx, conn.ID, userID, tokens.AccessToken, tokens.RefreshToken, expiresAt); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("🔄 Tokens refreshed for connection %s", conn.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Tokens refreshed"})
}

// Disconnect deletes the connection and its ciphertext.
func (h *CalendarHandler) Disconnect(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if err := h.Vault.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Calendar disconnected"})
}
