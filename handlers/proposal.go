package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gatherly-app/gatherly-api/middleware"
	"github.com/gatherly-app/gatherly-api/models"
	"github.com/gatherly-app/gatherly-api/services"
	"github.com/gatherly-app/gatherly-api/utils"

	"github.com/gin-gonic/gin"
)

type ProposalHandler struct {
	DB        *sql.DB
	Proposals *services.ProposalService
	Groups    *services.GroupService
	Email     *services.EmailService
}

func NewProposalHandler(db *sql.DB) *ProposalHandler {
	return &ProposalHandler{
		DB:        db,
		Proposals: services.NewProposalService(db),
		Groups:    services.NewGroupService(db),
		Email:     services.NewEmailService(),
	}
}

// Create stores the proposal and all response rows in one transaction, then
// dispatches invite emails. Email dispatch is best-effort: a failed send is
// logged and never rolls back the committed proposal.
func (h *ProposalHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isMember, err := h.Groups.IsMember(c.Request.Context(), req.GroupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	recipients := make([]services.Recipient, 0, len(req.Recipients))
	for _, email := range req.Recipients {
		recipients = append(recipients, services.Recipient{Email: email})
	}

	proposal, err := h.Proposals.CreateWithRecipients(c.Request.Context(), &models.Proposal{
		GroupID:      req.GroupID,
		ProposedBy:   userID,
		Title:        req.Title,
		Description:  req.Description,
		ProposedDate: req.ProposedDate,
		ProposedTime: req.ProposedTime,
	}, recipients)
	if err != nil {
		respondError(c, err)
		return
	}

	var proposerName string
	if err := h.DB.QueryRow(`SELECT name FROM users WHERE id = $1`, userID).Scan(&proposerName); err != nil {
		proposerName = "Un membre de votre groupe"
	}

	sent := 0
	for _, resp := range proposal.Responses {
		err := h.Email.SendProposalInvite(resp.RecipientEmail, resp.RecipientName, proposerName,
			proposal.Title, proposal.ProposedDate, proposal.ProposedTime, resp.Token)
		if err != nil {
			log.Printf("⚠️ Invite email to %s failed: %v", utils.MaskEmail(resp.RecipientEmail), err)
			continue
		}
		sent++
	}
	log.Printf("📨 Proposal %s created, %d/%d invites sent", proposal.ID, sent, len(proposal.Responses))

	c.JSON(http.StatusCreated, proposal)
}

// Get returns a proposal to any member of its group.
func (h *ProposalHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)

	proposal, err := h.Proposals.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	isMember, err := h.Groups.IsMember(c.Request.Context(), proposal.GroupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// ListResponses returns the aggregate view. Proposer-only; the projection
// carries no tokens.
func (h *ProposalHandler) ListResponses(c *gin.Context) {
	userID := middleware.GetUserID(c)

	responses, err := h.Proposals.ListResponses(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"responses": responses})
}

// UpdateStatus lets the proposer mark the aggregate outcome.
func (h *ProposalHandler) UpdateStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.UpdateProposalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Proposals.UpdateStatus(c.Request.Context(), c.Param("id"), userID, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

// Delete removes a proposal; cascading deletes invalidate all its tokens.
func (h *ProposalHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if err := h.Proposals.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proposal deleted"})
}
