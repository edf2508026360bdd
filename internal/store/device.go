package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pawradar/pawradar/internal/model"
)

// TokenStore holds device push tokens registered by the client application.
// The dispatch worker reads it; registration upserts by token so a device
// changing owners re-homes cleanly.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Register stores a push token for the user, replacing any existing row for
// the same token value.
func (s *TokenStore) Register(userID, token, platform string) (*model.PushToken, error) {
	if !model.ValidPlatform(platform) {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}

	_, err := s.db.Exec(
		`INSERT INTO push_tokens (user_id, token, platform, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, platform = excluded.platform`,
		userID, token, platform, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("register push token: %w", err)
	}

	return s.getByToken(token)
}

func (s *TokenStore) getByToken(token string) (*model.PushToken, error) {
	var t model.PushToken
	err := s.db.QueryRow(
		`SELECT id, user_id, token, platform, created_at FROM push_tokens WHERE token = ?`, token,
	).Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push token: %w", err)
	}
	return &t, nil
}

// ListByUser returns all tokens registered for a user. May be empty.
func (s *TokenStore) ListByUser(userID string) ([]model.PushToken, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, token, platform, created_at
		 FROM push_tokens WHERE user_id = ? ORDER BY created_at`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.PushToken
	for rows.Next() {
		var t model.PushToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// DeleteByToken drops a token, either on explicit unregistration or after the
// gateway reports it permanently invalid.
func (s *TokenStore) DeleteByToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM push_tokens WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete push token: %w", err)
	}
	return nil
}
