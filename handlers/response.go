package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gatherly-app/gatherly-api/models"
	"github.com/gatherly-app/gatherly-api/services"
	"github.com/gatherly-app/gatherly-api/utils"

	ics "github.com/arran4/golang-ical"
	"github.com/gin-gonic/gin"
)

// ResponseHandler serves the public capability-token endpoints. Possession of
// the token is the entire authorization: no session is consulted, and every
// not-found variant renders the same generic page so a guess reveals nothing.
type ResponseHandler struct {
	Proposals *services.ProposalService
	WS        *WSHandler
}

func NewResponseHandler(db *sql.DB, ws *WSHandler) *ResponseHandler {
	return &ResponseHandler{
		Proposals: services.NewProposalService(db),
		WS:        ws,
	}
}

// Respond handles GET /respond/:token. With ?answer=yes|no it records the
// answer (idempotent overwrite — the latest click wins); without it, it shows
// the recipient their current answer.
func (h *ResponseHandler) Respond(c *gin.Context) {
	token := c.Param("token")
	answer := c.Query("answer")

	if answer == "" {
		resp, err := h.Proposals.GetByToken(c.Request.Context(), token)
		if err != nil {
			h.renderTokenError(c, err)
			return
		}
		h.renderConfirmation(c, resp)
		return
	}

	if answer != models.AnswerYes && answer != models.AnswerNo {
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8",
			[]byte(renderPage("Réponse invalide", "Ce lien de réponse est incomplet. Utilisez les boutons de votre email.")))
		return
	}

	resp, err := h.Proposals.UpdateByToken(c.Request.Context(), token, answer, nil)
	if err != nil {
		h.renderTokenError(c, err)
		return
	}

	log.Printf("✅ Response %s recorded for token %s", resp.Answer, utils.MaskToken(token))
	h.WS.BroadcastUpdate(resp.ProposalID, "response_updated", resp.RecipientEmail)
	h.renderConfirmation(c, resp)
}

// ProposeAlternate handles POST /respond/:token/alternate.
func (h *ResponseHandler) ProposeAlternate(c *gin.Context) {
	token := c.Param("token")

	var req models.AlternateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Proposals.UpdateByToken(c.Request.Context(), token, models.AnswerAlternate, &models.AlternateProposal{
		Date:    req.Date,
		Time:    req.Time,
		Message: req.Message,
	})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "This response link is not valid"})
			return
		}
		respondError(c, err)
		return
	}

	log.Printf("✅ Alternate time proposed for token %s", utils.MaskToken(token))
	h.WS.BroadcastUpdate(resp.ProposalID, "response_updated", resp.RecipientEmail)
	c.JSON(http.StatusOK, resp)
}

// InviteICS handles GET /respond/:token/invite.ics — an ICS file for the
// proposed meeting so the recipient's mail client can add a hold.
func (h *ResponseHandler) InviteICS(c *gin.Context) {
	token := c.Param("token")

	resp, err := h.Proposals.GetByToken(c.Request.Context(), token)
	if err != nil {
		h.renderTokenError(c, err)
		return
	}

	proposal, err := h.Proposals.GetByID(c.Request.Context(), resp.ProposalID)
	if err != nil {
		h.renderTokenError(c, err)
		return
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//Gatherly//Gatherly API//FR")

	event := cal.AddEvent(proposal.ID + "@gatherly.app")
	event.SetSummary(proposal.Title)
	if proposal.Description != "" {
		event.SetDescription(proposal.Description)
	}
	event.SetDtStampTime(time.Now())

	start, err := time.ParseInLocation("2006-01-02 15:04", proposal.ProposedDate+" "+proposal.ProposedTime, time.Local)
	if err != nil {
		// Unparseable time slot still yields a valid all-day hold.
		if day, dayErr := time.ParseInLocation("2006-01-02", proposal.ProposedDate, time.Local); dayErr == nil {
			event.SetAllDayStartAt(day)
			event.SetAllDayEndAt(day.AddDate(0, 0, 1))
		}
	} else {
		event.SetStartAt(start)
		event.SetEndAt(start.Add(time.Hour))
	}

	c.Header("Content-Disposition", `attachment; filename="invite.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(cal.Serialize()))
}

func (h *ResponseHandler) renderTokenError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		// Same page for every unknown-token case; no hint whether the email
		// or proposal ever existed.
		c.Data(http.StatusNotFound, "text/html; charset=utf-8",
			[]byte(renderPage("Lien invalide", "Ce lien de réponse n'est pas ou plus valide.")))
		return
	}
	log.Printf("❌ Token endpoint error: %v", err)
	c.Data(http.StatusInternalServerError, "text/html; charset=utf-8",
		[]byte(renderPage("Erreur", "Une erreur est survenue. Réessayez plus tard.")))
}

func (h *ResponseHandler) renderConfirmation(c *gin.Context, resp *models.Response) {
	var status string
	switch resp.Answer {
	case models.AnswerYes:
		status = "✅ Vous avez répondu <strong>présent</strong>."
	case models.AnswerNo:
		status = "❌ Vous avez répondu <strong>indisponible</strong>."
	case models.AnswerAlternate:
		status = fmt.Sprintf("📆 Vous avez proposé un autre créneau : <strong>%s à %s</strong>.", resp.AlternateDate, resp.AlternateTime)
	default:
		status = "Vous n'avez pas encore répondu."
	}

	body := status + "<p>Vous pouvez changer votre réponse à tout moment en revenant sur les liens de votre email.</p>"
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(renderPage("Votre réponse", body)))
}

func renderPage(title, body string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s - Gatherly</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #f3f4f6; margin: 0; }
        .card { max-width: 480px; margin: 60px auto; background: white; border-radius: 12px; padding: 40px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); }
        h1 { color: #1f2937; font-size: 22px; }
        p { color: #4b5563; line-height: 1.6; }
    </style>
</head>
<body>
    <div class="card">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>`, title, title, body)
}
