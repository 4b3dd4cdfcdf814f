package services

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gatherly-app/gatherly-api/models"
	"github.com/gatherly-app/gatherly-api/utils"
)

func TestPackUnpackBasicAuth(t *testing.T) {
	pair := models.BasicAuthPair{Username: "alice@fastmail.com", Password: "app-spécific-pass"}

	packed, err := PackBasicAuth(pair)
	if err != nil {
		t.Fatalf("PackBasicAuth: %v", err)
	}

	unpacked, err := UnpackBasicAuth(packed)
	if err != nil {
		t.Fatalf("UnpackBasicAuth: %v", err)
	}
	if unpacked != pair {
		t.Fatalf("round trip mismatch: %+v != %+v", unpacked, pair)
	}

	if _, err := PackBasicAuth(models.BasicAuthPair{Username: "alice"}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing password: err = %v, want ErrValidation", err)
	}
	if _, err := UnpackBasicAuth([]byte("not json")); !errors.Is(err, ErrCredentialUnavailable) {
		t.Errorf("garbage blob: err = %v, want ErrCredentialUnavailable", err)
	}
}

func TestVaultStoreAndLoad(t *testing.T) {
	db := setupTestDB(t)
	setupTestKey(t)
	ctx := context.Background()
	vault := NewVaultService(db)

	userID, _ := createTestUser(t, db, "calendar-user")

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	conn, err := vault.StoreGoogle(ctx, userID, "user@gmail.com", "access-plain-123", "refresh-plain-456", &expires,
		[]string{"primary", "family"})
	if err != nil {
		t.Fatalf("StoreGoogle: %v", err)
	}

	// At rest the row holds envelopes, never the plaintext.
	var accessEnc string
	if err := db.QueryRow(`SELECT access_token_enc FROM calendar_connections WHERE id = $1`, conn.ID).Scan(&accessEnc); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(accessEnc, "access-plain-123") {
		t.Fatal("plaintext access token stored at rest")
	}
	if strings.Count(accessEnc, ":") != 2 {
		t.Fatalf("stored value is not a cipher envelope: %q", accessEnc)
	}

	// Default projection omits secrets.
	loaded, err := vault.Load(ctx, conn.ID, userID, false)
	if err != nil {
		t.Fatalf("Load without secrets: %v", err)
	}
	if loaded.AccessToken != "" || loaded.RefreshToken != "" {
		t.Fatal("secrets present on a no-secrets load")
	}
	if len(loaded.CalendarIDs) != 2 {
		t.Errorf("calendar IDs = %v, want 2 entries", loaded.CalendarIDs)
	}

	// includeSecrets decrypts.
	loaded, err = vault.Load(ctx, conn.ID, userID, true)
	if err != nil {
		t.Fatalf("Load with secrets: %v", err)
	}
	if loaded.AccessToken != "access-plain-123" || loaded.RefreshToken != "refresh-plain-456" {
		t.Fatalf("decrypted secrets wrong: %q / %q", loaded.AccessToken, loaded.RefreshToken)
	}
}

func TestVaultCalDAVRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	setupTestKey(t)
	ctx := context.Background()
	vault := NewVaultService(db)

	userID, _ := createTestUser(t, db, "caldav-user")
	pair := models.BasicAuthPair{Username: "alice", Password: "hunter2"}

	conn, err := vault.StoreCalDAV(ctx, userID, "https://dav.example.com", pair, nil)
	if err != nil {
		t.Fatalf("StoreCalDAV: %v", err)
	}
	if conn.Provider != models.ProviderICal {
		t.Errorf("provider = %q, want ical", conn.Provider)
	}

	loaded, err := vault.Load(ctx, conn.ID, userID, true)
	if err != nil {
		t.Fatal(err)
	}
	unpacked, err := UnpackBasicAuth([]byte(loaded.AccessToken))
	if err != nil {
		t.Fatalf("unpack stored pair: %v", err)
	}
	if unpacked != pair {
		t.Fatalf("pair round trip mismatch: %+v", unpacked)
	}
	if loaded.RefreshToken != "" {
		t.Error("caldav connection grew a refresh token")
	}
}

func TestVaultRefreshOverwrites(t *testing.T) {
	db := setupTestDB(t)
	setupTestKey(t)
	ctx := context.Background()
	vault := NewVaultService(db)

	userID, _ := createTestUser(t, db, "refresh-user")

	conn, err := vault.StoreGoogle(ctx, userID, "user@gmail.com", "old-access", "old-refresh", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := vault.Refresh(ctx, conn.ID, userID, "new-access", "new-refresh", nil); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	loaded, err := vault.Load(ctx, conn.ID, userID, true)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AccessToken != "new-access" || loaded.RefreshToken != "new-refresh" {
		t.Fatalf("refresh did not overwrite: %q / %q", loaded.AccessToken, loaded.RefreshToken)
	}

	if err := vault.Refresh(ctx, conn.ID, "someone-else", "x", "y", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("refresh as wrong user: err = %v, want ErrNotFound", err)
	}
}

func TestVaultRotatedKeySurfacesCredentialUnavailable(t *testing.T) {
	db := setupTestDB(t)
	setupTestKey(t)
	ctx := context.Background()
	vault := NewVaultService(db)

	userID, _ := createTestUser(t, db, "rotated-user")

	conn, err := vault.StoreGoogle(ctx, userID, "user@gmail.com", "sealed-under-old-key", "", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Rotate the process key without re-encrypting the row.
	rotated := make([]byte, 32)
	for i := range rotated {
		rotated[i] = byte(255 - i)
	}
	os.Setenv("CREDENTIAL_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(rotated))
	if err := utils.InitEncryption(); err != nil {
		t.Fatal(err)
	}

	// The metadata projection still works; only the secret is gone.
	if _, err := vault.Load(ctx, conn.ID, userID, false); err != nil {
		t.Fatalf("metadata load after rotation: %v", err)
	}

	_, err = vault.Load(ctx, conn.ID, userID, true)
	if !errors.Is(err, ErrCredentialUnavailable) {
		t.Fatalf("secret load after rotation: err = %v, want ErrCredentialUnavailable", err)
	}
	var cryptoErr *utils.CryptoError
	if !errors.As(err, &cryptoErr) {
		t.Fatalf("underlying cause lost: %v", err)
	}
}

func TestVaultDelete(t *testing.T) {
	db := setupTestDB(t)
	setupTestKey(t)
	ctx := context.Background()
	vault := NewVaultService(db)

	userID, _ := createTestUser(t, db, "delete-user")

	conn, err := vault.StoreGoogle(ctx, userID, "user@gmail.com", "a", "r", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := vault.Delete(ctx, conn.ID, userID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := vault.Load(ctx, conn.ID, userID, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load after delete: err = %v, want ErrNotFound", err)
	}
	if err := vault.Delete(ctx, conn.ID, userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: err = %v, want ErrNotFound", err)
	}
}
