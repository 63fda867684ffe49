package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/reportwriter/internal/model"
)

// SaveTemplate inserts or updates a template. A missing id is generated.
// On update the stored created_at is kept and copied back into t.
func (s *Store) SaveTemplate(t *model.Template) error {
	t.UpdatedAt = time.Now()
	return saveTemplate(s.db, t)
}

func saveTemplate(q querier, t *model.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	created, err := existingCreatedAt(q, "templates", t.ID)
	if err != nil {
		return err
	}
	switch {
	case !created.IsZero():
		t.CreatedAt = created
	case t.CreatedAt.IsZero():
		t.CreatedAt = t.UpdatedAt
	}
	sections, err := json.Marshal(t.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	_, err = q.Exec(
		`INSERT INTO templates (id, name, sections, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, sections = excluded.sections,
		 	updated_at = excluded.updated_at`,
		t.ID, t.Name, string(sections), t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// existingCreatedAt returns the created_at of a row, or the zero time when
// the row does not exist yet. table is always a constant.
func existingCreatedAt(q querier, table, id string) (time.Time, error) {
	var created time.Time
	err := q.QueryRow(`SELECT created_at FROM `+table+` WHERE id = ?`, id).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	return created, err
}

// GetTemplate returns a template by id.
func (s *Store) GetTemplate(id string) (*model.Template, error) {
	var t model.Template
	var sections string
	err := s.db.QueryRow(
		`SELECT id, name, sections, created_at, updated_at FROM templates WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &sections, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sections), &t.Sections); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", id, err)
	}
	return &t, nil
}

// ListTemplates returns all templates ordered by name.
func (s *Store) ListTemplates() ([]model.Template, error) {
	return listTemplates(s.db)
}

func listTemplates(q querier) ([]model.Template, error) {
	rows, err := q.Query(`SELECT id, name, sections, created_at, updated_at FROM templates ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var templates []model.Template
	for rows.Next() {
		var t model.Template
		var sections string
		if err := rows.Scan(&t.ID, &t.Name, &sections, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sections), &t.Sections); err != nil {
			return nil, fmt.Errorf("decode template %s: %w", t.ID, err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// FindTemplateByName returns the template with exactly this name, or nil.
func (s *Store) FindTemplateByName(name string) (*model.Template, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM templates WHERE name = ? LIMIT 1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.GetTemplate(id)
}

// DeleteTemplate removes a template and every report written with it.
func (s *Store) DeleteTemplate(id string) error {
	return s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM templates WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("template %s: %w", id, ErrNotFound)
		}
		_, err = tx.Exec(`DELETE FROM reports WHERE template_id = ?`, id)
		return err
	})
}
