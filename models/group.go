package models

import "time"

type Group struct {
	ID        string        `json:"id"`
	Name      string        `json:"name" binding:"required"`
	OwnerID   string        `json:"owner_id"`
	CreatedAt time.Time     `json:"created_at"`
	IsOwner   bool          `json:"is_owner"`
	Members   []GroupMember `json:"members,omitempty"`
}

type GroupMember struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
}

type CreateGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}
