package handlers

import (
	"log"
	"time"

	"github.com/gatherly-app/gatherly-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

// WSHandler lets a proposer watch responses arrive live.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-alive so cloud proxies don't drop idle watchers.
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleDisconnect(func(s *melody.Session) {
		proposalID, _ := s.Get("proposal_id")
		log.Printf("🔌 Client disconnected from proposal: %v", proposalID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades the request and pins the session to one proposal.
func (h *WSHandler) HandleWS(c *gin.Context) {
	proposalID := c.Param("id")

	h.M.HandleConnect(func(s *melody.Session) {
		s.Set("proposal_id", proposalID)
		log.Printf("✅ Client watching proposal: %s", proposalID)
	})

	if err := h.M.HandleRequest(c.Writer, c.Request); err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

// BroadcastUpdate signals every watcher of a proposal that a response changed.
// The recipient email is masked: watchers refetch the aggregate through the
// authenticated listing, they don't learn anything from the signal itself.
func (h *WSHandler) BroadcastUpdate(proposalID, updateType, recipientEmail string) {
	msg := []byte(`{"type": "` + updateType + `", "recipient": "` + utils.MaskEmail(recipientEmail) + `"}`)

	err := h.M.BroadcastFilter(msg, func(q *melody.Session) bool {
		id, exists := q.Get("proposal_id")
		return exists && id == proposalID
	})

	if err != nil {
		log.Printf("⚠️ Error broadcasting to proposal %s: %v", proposalID, err)
	}
}
