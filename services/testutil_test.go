package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"os"
	"testing"

	"github.com/gatherly-app/gatherly-api/config"
	"github.com/gatherly-app/gatherly-api/utils"

	"github.com/google/uuid"
)

// setupTestDB opens the database named by TEST_DATABASE_URL and runs the
// migrations. Tests that need Postgres skip when the variable is unset.
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

	t.Cleanup(func() { db.Close() })
	return db
}

// setupTestKey points the process cipher at a fixed test key.
func setupTestKey(t *testing.T) {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	os.Setenv("CREDENTIAL_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))
	if err := utils.InitEncryption(); err != nil {
		t.Fatalf("init encryption: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CREDENTIAL_ENCRYPTION_KEY") })
}

func createTestUser(t *testing.T, db *sql.DB, name string) (id, email string) {
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
	return id, email
}

func createTestGroup(t *testing.T, db *sql.DB, ownerID string) string {
	t.Helper()

	group, err := NewGroupService(db).Create(context.Background(), "test group", ownerID)
	if err != nil {
		t.Fatalf("create test group: %v", err)
	}

	t.Cleanup(func() { db.Exec(`DELETE FROM groups WHERE id = $1`, group.ID) })
	return group.ID
}
