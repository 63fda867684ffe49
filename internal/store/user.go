package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/reportwriter/internal/model"
)

const userColumns = `id, username, display_name, password_hash, role, active, created_at`

func scanUser(sc scanner) (*model.User, error) {
	var u model.User
	if err := sc.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new report author account.
func (s *Store) CreateUser(u model.User) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (username, display_name, password_hash, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.DisplayName, u.PasswordHash, u.Role, u.Active, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, fmt.Errorf("create user %s: %w", u.Username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role)
	return id, nil
}

// getUser returns nil, nil when no row matches.
func (s *Store) getUser(where string, arg any) (*model.User, error) {
	u, err := scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE `+where+` = ?`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetUserByUsername returns the user with this login name, or nil.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	return s.getUser("username", username)
}

// GetUserByID returns the user with this id, or nil.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return s.getUser("id", id)
}

// ListUsers returns all users in creation order.
func (s *Store) ListUsers() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetUserPassword replaces a user's password hash and signs them out
// everywhere.
func (s *Store) SetUserPassword(id int64, hash string) error {
	return s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
		if err != nil {
			return err
		}
		if err := requireRow(res, "user", id); err != nil {
			return err
		}
		return deleteUserSessions(tx, id)
	})
}

// ToggleUserActive flips the active flag on a user. Their login sessions
// are dropped when the account is disabled.
func (s *Store) ToggleUserActive(id int64) error {
	return s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE users SET active = NOT active WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if err := requireRow(res, "user", id); err != nil {
			return err
		}
		var active bool
		if err := tx.QueryRow(`SELECT active FROM users WHERE id = ?`, id).Scan(&active); err != nil {
			return err
		}
		if active {
			return nil
		}
		return deleteUserSessions(tx, id)
	})
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func requireRow(res sql.Result, kind string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
	}
	return nil
}
