package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/reportwriter/internal/model"
)

// SaveClass inserts or updates a class and replaces its roster. Students
// without an id get one.
func (s *Store) SaveClass(c *model.Class) error {
	return s.inTx(func(tx *sql.Tx) error {
		return saveClass(tx, c)
	})
}

func saveClass(q querier, c *model.Class) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	created, err := existingCreatedAt(q, "classes", c.ID)
	if err != nil {
		return err
	}
	switch {
	case !created.IsZero():
		c.CreatedAt = created
	case c.CreatedAt.IsZero():
		c.CreatedAt = time.Now()
	}
	if _, err := q.Exec(
		`INSERT INTO classes (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		c.ID, c.Name, c.CreatedAt,
	); err != nil {
		return fmt.Errorf("save class: %w", err)
	}
	if _, err := q.Exec(`DELETE FROM students WHERE class_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}
	for i := range c.Students {
		st := &c.Students[i]
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		if _, err := q.Exec(
			`INSERT INTO students (class_id, id, position, first_name, last_name, student_number, email)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, st.ID, i, st.FirstName, st.LastName, st.StudentNumber, st.Email,
		); err != nil {
			return fmt.Errorf("save student %s: %w", st.ID, err)
		}
	}
	return nil
}

// GetClass returns a class with its roster in order.
func (s *Store) GetClass(id string) (*model.Class, error) {
	var c model.Class
	err := s.db.QueryRow(`SELECT id, name, created_at FROM classes WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("class %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	rosters, err := listStudents(s.db, id)
	if err != nil {
		return nil, err
	}
	c.Students = rosters[id]
	return &c, nil
}

// ListClasses returns all classes with their rosters, ordered by name.
func (s *Store) ListClasses() ([]model.Class, error) {
	return listClasses(s.db)
}

func listClasses(q querier) ([]model.Class, error) {
	rows, err := q.Query(`SELECT id, name, created_at FROM classes ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	var classes []model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		classes = append(classes, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rosters, err := listStudents(q, "")
	if err != nil {
		return nil, err
	}
	for i := range classes {
		classes[i].Students = rosters[classes[i].ID]
	}
	return classes, nil
}

// listStudents returns rosters keyed by class id, for one class or for all
// when classID is empty.
func listStudents(q querier, classID string) (map[string][]model.Student, error) {
	query := `SELECT class_id, id, first_name, last_name, student_number, email FROM students`
	var args []any
	if classID != "" {
		query += ` WHERE class_id = ?`
		args = append(args, classID)
	}
	query += ` ORDER BY class_id, position`

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rosters := make(map[string][]model.Student)
	for rows.Next() {
		var cid string
		var st model.Student
		if err := rows.Scan(&cid, &st.ID, &st.FirstName, &st.LastName, &st.StudentNumber, &st.Email); err != nil {
			return nil, err
		}
		rosters[cid] = append(rosters[cid], st)
	}
	return rosters, rows.Err()
}

// DeleteClass removes a class, its roster and every report written for it.
func (s *Store) DeleteClass(id string) error {
	return s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM classes WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("class %s: %w", id, ErrNotFound)
		}
		if _, err := tx.Exec(`DELETE FROM students WHERE class_id = ?`, id); err != nil {
			return err
		}
		_, err = tx.Exec(`DELETE FROM reports WHERE class_id = ?`, id)
		return err
	})
}
