package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly-app/gatherly-api/models"
	"github.com/gatherly-app/gatherly-api/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// VaultService is the only code allowed to touch calendar secrets. Tokens are
// encrypted before any INSERT and decrypted only on an explicit
// includeSecrets load; the default projection never carries plaintext.
type VaultService struct {
	db *sql.DB
}

func NewVaultService(db *sql.DB) *VaultService {
	return &VaultService{db: db}
}

// StoreGoogle upserts a Google connection, re-encrypting on reconnect.
func (s *VaultService) StoreGoogle(ctx context.Context, userID, accountID, accessToken, refreshToken string, expiresAt *time.Time, calendarIDs []string) (*models.CalendarConnection, error) {
	accessEnc, err := utils.Encrypt([]byte(accessToken))
	if err != nil {
		return nil, err
	}
	refreshEnc, err := utils.Encrypt([]byte(refreshToken))
	if err != nil {
		return nil, err
	}

	return s.upsert(ctx, userID, models.ProviderGoogle, accountID, accessEnc, refreshEnc, expiresAt, calendarIDs)
}

// StoreCalDAV upserts a CalDAV connection. The basic-auth pair is packed into
// one JSON blob and encrypted as a single secret.
func (s *VaultService) StoreCalDAV(ctx context.Context, userID, serverURL string, pair models.BasicAuthPair, calendarIDs []string) (*models.CalendarConnection, error) {
	packed, err := PackBasicAuth(pair)
	if err != nil {
		return nil, err
	}
	accessEnc, err := utils.Encrypt(packed)
	if err != nil {
		return nil, err
	}

	accountID := pair.Username + "@" + serverURL
	return s.upsert(ctx, userID, models.ProviderICal, accountID, accessEnc, utils.NoSecret, nil, calendarIDs)
}

func (s *VaultService) upsert(ctx context.Context, userID, provider, accountID, accessEnc, refreshEnc string, expiresAt *time.Time, calendarIDs []string) (*models.CalendarConnection, error) {
	conn := &models.CalendarConnection{
		UserID:      userID,
		Provider:    provider,
		AccountID:   accountID,
		CalendarIDs: calendarIDs,
		ExpiresAt:   expiresAt,
	}

	var expires sql.NullTime
	if expiresAt != nil {
		expires = sql.NullTime{Time: *expiresAt, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO calendar_connections (id, user_id, provider, account_id, access_token_enc, refresh_token_enc, calendar_ids, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id, provider, account_id)
		DO UPDATE SET
			access_token_enc = EXCLUDED.access_token_enc,
			refresh_token_enc = EXCLUDED.refresh_token_enc,
			calendar_ids = EXCLUDED.calendar_ids,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, uuid.New().String(), userID, provider, accountID, accessEnc, refreshEnc, pq.Array(calendarIDs), expires).
		Scan(&conn.ID, &conn.CreatedAt, &conn.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to save calendar connection: %w", err)
	}
	return conn, nil
}

// Load fetches one connection. Secrets are decrypted only when includeSecrets
// is set; a connection whose envelope no longer decrypts (rotated key)
// surfaces ErrCredentialUnavailable so the caller can prompt re-auth.
func (s *VaultService) Load(ctx context.Context, id, userID string, includeSecrets bool) (*models.CalendarConnection, error) {
	var conn models.CalendarConnection
	var accessEnc, refreshEnc string
	var expires sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, account_id, access_token_enc, refresh_token_enc, calendar_ids, expires_at, created_at, updated_at
		FROM calendar_connections
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&conn.ID, &conn.UserID, &conn.Provider, &conn.AccountID,
		&accessEnc, &refreshEnc, pq.Array(&conn.CalendarIDs), &expires, &conn.CreatedAt, &conn.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		conn.ExpiresAt = &expires.Time
	}

	if !includeSecrets {
		return &conn, nil
	}

	access, err := utils.Decrypt(accessEnc)
	if err != nil {
		return nil, errors.Join(ErrCredentialUnavailable, err)
	}
	refresh, err := utils.Decrypt(refreshEnc)
	if err != nil {
		return nil, errors.Join(ErrCredentialUnavailable, err)
	}

	conn.AccessToken = string(access)
	conn.RefreshToken = string(refresh)
	return &conn, nil
}

// ListByUser returns the secrets-omitted projection of a user's connections.
func (s *VaultService) ListByUser(ctx context.Context, userID string) ([]models.CalendarConnection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, provider, account_id, calendar_ids, expires_at, created_at, updated_at
		FROM calendar_connections
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	connections := []models.CalendarConnection{}
	for rows.Next() {
		var conn models.CalendarConnection
		var expires sql.NullTime
		err := rows.Scan(&conn.ID, &conn.UserID, &conn.Provider, &conn.AccountID,
			pq.Array(&conn.CalendarIDs), &expires, &conn.CreatedAt, &conn.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if expires.Valid {
			conn.ExpiresAt = &expires.Time
		}
		connections = append(connections, conn)
	}
	return connections, rows.Err()
}

// Refresh re-encrypts new tokens over the existing row in one UPDATE.
func (s *VaultService) Refresh(ctx context.Context, id, userID, accessToken, refreshToken string, expiresAt *time.Time) error {
	accessEnc, err := utils.Encrypt([]byte(accessToken))
	if err != nil {
		return err
	}
	refreshEnc, err := utils.Encrypt([]byte(refreshToken))
	if err != nil {
		return err
	}

	var expires sql.NullTime
	if expiresAt != nil {
		expires = sql.NullTime{Time: *expiresAt, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE calendar_connections
		SET access_token_enc = $3, refresh_token_enc = $4, expires_at = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, accessEnc, refreshEnc, expires)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a connection on disconnect.
func (s *VaultService) Delete(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM calendar_connections WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PackBasicAuth serializes a CalDAV username/password pair for encryption as
// a single blob.
func PackBasicAuth(pair models.BasicAuthPair) ([]byte, error) {
	if pair.Username == "" || pair.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	return json.Marshal(pair)
}

// UnpackBasicAuth reverses PackBasicAuth.
func UnpackBasicAuth(packed []byte) (models.BasicAuthPair, error) {
	var pair models.BasicAuthPair
	if err := json.Unmarshal(packed, &pair); err != nil {
		return models.BasicAuthPair{}, fmt.Errorf("%w: stored credential is not a basic-auth pair", ErrCredentialUnavailable)
	}
	return pair, nil
}
