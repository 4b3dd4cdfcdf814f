package models

import "time"

// Proposal status values. Status is set by the proposer; it is not derived
// from the individual responses.
const (
	ProposalPending  = "pending"
	ProposalAccepted = "accepted"
	ProposalRejected = "rejected"
)

// Response answer values.
const (
	AnswerPending   = "pending"
	AnswerYes       = "yes"
	AnswerNo        = "no"
	AnswerAlternate = "alternate"
)

type Proposal struct {
	ID           string     `json:"id"`
	GroupID      string     `json:"group_id"`
	ProposedBy   string     `json:"proposed_by"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	ProposedDate string     `json:"proposed_date"`
	ProposedTime string     `json:"proposed_time"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	Responses    []Response `json:"responses,omitempty"`
}

// Response is one recipient's answer to a proposal, keyed by a unique
// capability token. Token is never serialized; the only code path that sees a
// raw token is the single-row lookup behind the public respond endpoints.
type Response struct {
	ID             string     `json:"id"`
	ProposalID     string     `json:"proposal_id"`
	UserID         string     `json:"user_id,omitempty"` // informational, not an access-control input
	RecipientName  string     `json:"recipient_name,omitempty"`
	RecipientEmail string     `json:"recipient_email"`
	Answer         string     `json:"answer"`
	AlternateDate  string     `json:"alternate_date,omitempty"`
	AlternateTime  string     `json:"alternate_time,omitempty"`
	AlternateNote  string     `json:"alternate_note,omitempty"`
	Token          string     `json:"-"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type CreateProposalRequest struct {
	GroupID      string   `json:"group_id" binding:"required"`
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	ProposedDate string   `json:"proposed_date" binding:"required"`
	ProposedTime string   `json:"proposed_time" binding:"required"`
	Recipients   []string `json:"recipients" binding:"required,min=1,dive,email"`
}

type AlternateRequest struct {
	Date    string `json:"date" binding:"required"`
	Time    string `json:"time" binding:"required"`
	Message string `json:"message"`
}

type UpdateProposalStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending accepted rejected"`
}

// AlternateProposal carries the optional alternate fields through the
// response-update path. Nil means "not an alternate answer".
type AlternateProposal struct {
	Date    string
	Time    string
	Message string
}
