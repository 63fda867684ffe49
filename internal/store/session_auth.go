package store

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/reportwriter/internal/model"
)

// authSessionTTL covers a long report-writing evening; the login cookie
// is scoped to the base path by the handler.
const authSessionTTL = 12 * time.Hour

// CreateAuthSession signs a user in and returns the session token.
func (s *Store) CreateAuthSession(userID int64) (string, error) {
	token := rand.Text()
	now := time.Now()
	if _, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(authSessionTTL),
	); err != nil {
		return "", fmt.Errorf("create session for user %d: %w", userID, err)
	}
	return token, nil
}

// GetAuthSession returns the live session for token. Unknown and expired
// tokens both give nil, nil; an expired row is removed on the way.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	sess := model.AuthSession{ID: token}
	err := s.db.QueryRow(
		`SELECT user_id, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	case !time.Now().Before(sess.ExpiresAt):
		return nil, s.DeleteAuthSession(token)
	}
	return &sess, nil
}

// DeleteAuthSession signs out one session.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions removes expired sessions and reports how many.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// deleteUserSessions signs a user out everywhere.
func deleteUserSessions(q querier, userID int64) error {
	_, err := q.Exec(`DELETE FROM auth_sessions WHERE user_id = ?`, userID)
	return err
}
