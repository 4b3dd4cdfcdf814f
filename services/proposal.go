package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gatherly-app/gatherly-api/models"
	"github.com/gatherly-app/gatherly-api/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ProposalService struct {
	db *sql.DB
}

func NewProposalService(db *sql.DB) *ProposalService {
	return &ProposalService{db: db}
}

// Recipient is one invitee of a proposal. Email is the identity; a matching
// registered user is linked opportunistically but never required.
type Recipient struct {
	Name  string
	Email string
}

// CreateWithRecipients inserts the proposal and one response row per
// recipient, each with a freshly minted capability token. All rows commit
// atomically: a duplicate recipient on row 3 of 5 rolls back the whole
// proposal, never leaving it half-invited.
func (s *ProposalService) CreateWithRecipients(ctx context.Context, p *models.Proposal, recipients []Recipient) (*models.Proposal, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	if p.Title == "" || p.ProposedDate == "" || p.ProposedTime == "" {
		return nil, fmt.Errorf("%w: title, date and time are required", ErrValidation)
	}

	proposal := &models.Proposal{
		ID:           uuid.New().String(),
		GroupID:      p.GroupID,
		ProposedBy:   p.ProposedBy,
		Title:        p.Title,
		Description:  p.Description,
		ProposedDate: p.ProposedDate,
		ProposedTime: p.ProposedTime,
		Status:       models.ProposalPending,
		CreatedAt:    time.Now(),
	}

	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO proposals (id, group_id, proposed_by, title, description, proposed_date, proposed_time, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, proposal.ID, proposal.GroupID, proposal.ProposedBy, proposal.Title, proposal.Description,
			proposal.ProposedDate, proposal.ProposedTime, proposal.Status, proposal.CreatedAt)
		if err != nil {
			return err
		}

		for _, r := range recipients {
			token, err := utils.NewResponseToken()
			if err != nil {
				return err
			}

			// Link a registered account when the email matches one.
			var userID sql.NullString
			err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, r.Email).Scan(&userID.String)
			if err != nil && err != sql.ErrNoRows {
				return err
			}
			userID.Valid = err == nil

			resp := models.Response{
				ID:             uuid.New().String(),
				ProposalID:     proposal.ID,
				RecipientName:  r.Name,
				RecipientEmail: r.Email,
				Answer:         models.AnswerPending,
				Token:          token,
				CreatedAt:      time.Now(),
			}
			if userID.Valid {
				resp.UserID = userID.String
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO proposal_responses (id, proposal_id, user_id, recipient_name, recipient_email, answer, response_token, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, resp.ID, resp.ProposalID, userID, resp.RecipientName, resp.RecipientEmail, resp.Answer, resp.Token, resp.CreatedAt)
			if err != nil {
				return translateUniqueViolation(err)
			}

			proposal.Responses = append(proposal.Responses, resp)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return proposal, nil
}

func translateUniqueViolation(err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "proposal_responses_response_token_key":
			// Practically unreachable with 256-bit tokens; retryable.
			return fmt.Errorf("%w: token collision", ErrConflict)
		default:
			return fmt.Errorf("%w: recipient already invited to this proposal", ErrDuplicateRecipient)
		}
	}
	return err
}

// GetByID returns a proposal without its responses.
func (s *ProposalService) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	var p models.Proposal
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, proposed_by, title, description, proposed_date, proposed_time, status, created_at
		FROM proposals
		WHERE id = $1
	`, id).Scan(&p.ID, &p.GroupID, &p.ProposedBy, &p.Title, &description, &p.ProposedDate, &p.ProposedTime, &p.Status, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	return &p, nil
}

// GetByToken resolves a capability token to its response row. This is the only
// query path that reads the token column back out.
func (s *ProposalService) GetByToken(ctx context.Context, token string) (*models.Response, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, proposal_id, user_id, recipient_name, recipient_email, answer,
		       alternate_date, alternate_time, alternate_note, response_token, responded_at, created_at
		FROM proposal_responses
		WHERE response_token = $1
	`, token)

	resp, err := scanResponse(row, true)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateByToken records an answer in one atomic UPDATE keyed by the token
// column. Repeat visits overwrite: the latest submission wins and responded_at
// moves forward. Any answer other than "alternate" clears the alternate
// fields.
func (s *ProposalService) UpdateByToken(ctx context.Context, token, answer string, alt *models.AlternateProposal) (*models.Response, error) {
	switch answer {
	case models.AnswerYes, models.AnswerNo:
		alt = nil
	case models.AnswerAlternate:
		if alt == nil || alt.Date == "" || alt.Time == "" {
			return nil, fmt.Errorf("%w: alternate answers require a date and time", ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: answer must be yes, no or alternate", ErrValidation)
	}

	var altDate, altTime, altNote sql.NullString
	if alt != nil {
		altDate = sql.NullString{String: alt.Date, Valid: true}
		altTime = sql.NullString{String: alt.Time, Valid: true}
		altNote = sql.NullString{String: alt.Message, Valid: alt.Message != ""}
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE proposal_responses
		SET answer = $2,
		    alternate_date = $3,
		    alternate_time = $4,
		    alternate_note = $5,
		    responded_at = NOW()
		WHERE response_token = $1
		RETURNING id, proposal_id, user_id, recipient_name, recipient_email, answer,
		          alternate_date, alternate_time, alternate_note, response_token, responded_at, created_at
	`, token, answer, altDate, altTime, altNote)

	resp, err := scanResponse(row, true)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListResponses returns every response for a proposal, tokens excluded from
// the projection. Only the proposer may call it.
func (s *ProposalService) ListResponses(ctx context.Context, proposalID, callerID string) ([]models.Response, error) {
	proposal, err := s.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ProposedBy != callerID {
		return nil, ErrForbidden
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, proposal_id, user_id, recipient_name, recipient_email, answer,
		       alternate_date, alternate_time, alternate_note, responded_at, created_at
		FROM proposal_responses
		WHERE proposal_id = $1
		ORDER BY created_at
	`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []models.Response{}
	for rows.Next() {
		resp, err := scanResponse(rows, false)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, rows.Err()
}

// UpdateStatus sets the aggregate status. Proposer-only; status is never
// derived automatically from the individual answers.
func (s *ProposalService) UpdateStatus(ctx context.Context, proposalID, callerID, status string) error {
	proposal, err := s.GetByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if proposal.ProposedBy != callerID {
		return ErrForbidden
	}

	_, err = s.db.ExecContext(ctx, `UPDATE proposals SET status = $2 WHERE id = $1`, proposalID, status)
	return err
}

// Delete removes a proposal; the cascade removes its responses and thereby
// invalidates their tokens.
func (s *ProposalService) Delete(ctx context.Context, proposalID, callerID string) error {
	proposal, err := s.GetByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if proposal.ProposedBy != callerID {
		return ErrForbidden
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = $1`, proposalID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResponse(row rowScanner, withToken bool) (*models.Response, error) {
	var resp models.Response
	var userID, altDate, altTime, altNote sql.NullString
	var respondedAt sql.NullTime

	dest := []interface{}{
		&resp.ID, &resp.ProposalID, &userID, &resp.RecipientName, &resp.RecipientEmail, &resp.Answer,
		&altDate, &altTime, &altNote,
	}
	if withToken {
		dest = append(dest, &resp.Token)
	}
	dest = append(dest, &respondedAt, &resp.CreatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	resp.UserID = userID.String
	resp.AlternateDate = altDate.String
	resp.AlternateTime = altTime.String
	resp.AlternateNote = altNote.String
	if respondedAt.Valid {
		resp.RespondedAt = &respondedAt.Time
	}
	return &resp, nil
}
