package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pavelanni/reportwriter/internal/model"
)

// SaveCommentBank upserts a comment bank by (type, name).
func (s *Store) SaveCommentBank(b model.CommentBank) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return saveCommentBank(s.db, b)
}

func saveCommentBank(q querier, b model.CommentBank) error {
	data, err := json.Marshal(b.Data)
	if err != nil {
		return fmt.Errorf("encode comment bank %q: %w", b.Name, err)
	}
	_, err = q.Exec(
		`INSERT INTO comment_banks (type, name, data) VALUES (?, ?, ?)
		 ON CONFLICT(type, name) DO UPDATE SET data = excluded.data`,
		b.Type, b.Name, string(data),
	)
	return err
}

// GetCommentBank returns one comment bank.
func (s *Store) GetCommentBank(t model.SectionType, name string) (*model.CommentBank, error) {
	var raw bankRow
	err := s.db.QueryRow(`SELECT type, name, data FROM comment_banks WHERE type = ? AND name = ?`, t, name).
		Scan(&raw.typ, &raw.name, &raw.data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment bank %s/%s: %w", t, name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return raw.decode()
}

// ListCommentBanks returns saved comment banks, optionally of one section
// type only.
func (s *Store) ListCommentBanks(t model.SectionType) ([]model.CommentBank, error) {
	return listCommentBanks(s.db, t)
}

func listCommentBanks(q querier, t model.SectionType) ([]model.CommentBank, error) {
	query := `SELECT type, name, data FROM comment_banks`
	var args []any
	if t != "" {
		query += ` WHERE type = ?`
		args = append(args, t)
	}
	rows, err := q.Query(query+` ORDER BY type, name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var banks []model.CommentBank
	for rows.Next() {
		var raw bankRow
		if err := rows.Scan(&raw.typ, &raw.name, &raw.data); err != nil {
			return nil, err
		}
		b, err := raw.decode()
		if err != nil {
			return nil, err
		}
		banks = append(banks, *b)
	}
	return banks, rows.Err()
}

// DeleteCommentBank removes a comment bank.
func (s *Store) DeleteCommentBank(t model.SectionType, name string) error {
	res, err := s.db.Exec(`DELETE FROM comment_banks WHERE type = ? AND name = ?`, t, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("comment bank %s/%s: %w", t, name, ErrNotFound)
	}
	return nil
}

type bankRow struct {
	typ, name, data string
}

func (r bankRow) decode() (*model.CommentBank, error) {
	sd, err := model.NewSectionData(model.SectionType(r.typ))
	if err != nil {
		return nil, fmt.Errorf("comment bank %q: %w", r.name, err)
	}
	if err := json.Unmarshal([]byte(r.data), sd); err != nil {
		return nil, fmt.Errorf("decode comment bank %q: %w", r.name, err)
	}
	return &model.CommentBank{Type: model.SectionType(r.typ), Name: r.name, Data: sd}, nil
}
