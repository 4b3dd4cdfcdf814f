package config

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func InitDB() (*sql.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			totp_secret VARCHAR(255),
			totp_enabled BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			refresh_token VARCHAR(500) UNIQUE NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS groups (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(255) NOT NULL,
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS group_members (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			group_id UUID REFERENCES groups(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			role VARCHAR(50) DEFAULT 'member',
			joined_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(group_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS proposals (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			group_id UUID REFERENCES groups(id) ON DELETE CASCADE,
			proposed_by UUID REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			proposed_date VARCHAR(20) NOT NULL,
			proposed_time VARCHAR(20) NOT NULL,
			status VARCHAR(20) DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		// response_token is the sole credential for mutating a row; deleting a
		// proposal cascades here and thereby invalidates its tokens.
		`CREATE TABLE IF NOT EXISTS proposal_responses (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			proposal_id UUID NOT NULL REFERENCES proposals(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id) ON DELETE SET NULL,
			recipient_name VARCHAR(255),
			recipient_email VARCHAR(255) NOT NULL,
			answer VARCHAR(20) NOT NULL DEFAULT 'pending',
			alternate_date VARCHAR(20),
			alternate_time VARCHAR(20),
			alternate_note TEXT,
			response_token VARCHAR(64) UNIQUE NOT NULL,
			responded_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(proposal_id, recipient_email)
		)`,

		// Secret columns hold cipher envelopes, never plaintext.
		`CREATE TABLE IF NOT EXISTS calendar_connections (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider VARCHAR(20) NOT NULL,
			account_id VARCHAR(255) NOT NULL,
			access_token_enc TEXT NOT NULL,
			refresh_token_enc TEXT NOT NULL DEFAULT '',
			calendar_ids TEXT[] DEFAULT '{}',
			expires_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(user_id, provider, account_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_group_id ON proposals(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_proposal_responses_proposal_id ON proposal_responses(proposal_id)`,
		`CREATE INDEX IF NOT EXISTS idx_proposal_responses_token ON proposal_responses(response_token)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_connections_user_id ON calendar_connections(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
