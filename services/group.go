package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gatherly-app/gatherly-api/models"
	"github.com/gatherly-app/gatherly-api/utils"

	"github.com/google/uuid"
)

type GroupService struct {
	db *sql.DB
}

func NewGroupService(db *sql.DB) *GroupService {
	return &GroupService{db: db}
}

// Create creates a group and adds the owner as its first member, atomically.
func (s *GroupService) Create(ctx context.Context, name, ownerID string) (*models.Group, error) {
	group := &models.Group{
		ID:        uuid.New().String(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
		IsOwner:   true,
	}

	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO groups (id, name, owner_id, created_at)
			VALUES ($1, $2, $3, $4)
		`, group.ID, group.Name, group.OwnerID, group.CreatedAt)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO group_members (id, group_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, 'owner', $4)
		`, uuid.New().String(), group.ID, ownerID, time.Now())
		return err
	})

	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetUserGroups lists the groups the user belongs to.
func (s *GroupService) GetUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.owner_id, g.created_at,
		       CASE WHEN g.owner_id = $1 THEN true ELSE false END as is_owner
		FROM groups g
		INNER JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = $1
		ORDER BY g.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.IsOwner); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// AddMember adds a registered user to a group by email. Owner-only.
func (s *GroupService) AddMember(ctx context.Context, groupID, callerID, email string) error {
	var ownerID string
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM groups WHERE id = $1`, groupID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if ownerID != callerID {
		return ErrForbidden
	}

	var userID string
	err = s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: no registered user with that email", ErrNotFound)
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO group_members (id, group_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, 'member', $4)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, uuid.New().String(), groupID, userID, time.Now())
	return err
}

// IsMember reports whether the user belongs to the group.
func (s *GroupService) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM group_members
			WHERE group_id = $1 AND user_id = $2
		)
	`, groupID, userID).Scan(&exists)
	return exists, err
}
