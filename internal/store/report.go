package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/reportwriter/internal/model"
)

const reportColumns = `id, student_id, template_id, class_id, content, section_data, created_at, updated_at`

// SaveReport upserts a report by its composite id. The stored created_at
// survives updates and is copied back into r; updated_at defaults to now.
func (s *Store) SaveReport(r *model.Report) error {
	return saveReport(s.db, r)
}

func saveReport(q querier, r *model.Report) error {
	r.ID = model.ReportID(r.StudentID, r.TemplateID)
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	created, err := existingCreatedAt(q, "reports", r.ID)
	if err != nil {
		return err
	}
	switch {
	case !created.IsZero():
		r.CreatedAt = created
	case r.CreatedAt.IsZero():
		r.CreatedAt = r.UpdatedAt
	}
	data := r.SectionData
	if data == nil {
		data = map[string]json.RawMessage{}
	}
	sectionData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode section data: %w", err)
	}
	_, err = q.Exec(
		`INSERT INTO reports (`+reportColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET class_id = excluded.class_id, content = excluded.content,
		 	section_data = excluded.section_data, updated_at = excluded.updated_at`,
		r.ID, r.StudentID, r.TemplateID, r.ClassID, r.Content, string(sectionData), r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// GetReport returns the report of a student under a template, or nil if
// none has been saved.
func (s *Store) GetReport(studentID, templateID string) (*model.Report, error) {
	row := s.db.QueryRow(`SELECT `+reportColumns+` FROM reports WHERE id = ?`, model.ReportID(studentID, templateID))
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListReportsForClass returns the reports of a class under a template.
// An empty templateID lists reports under every template.
func (s *Store) ListReportsForClass(classID, templateID string) ([]model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE class_id = ?`
	args := []any{classID}
	if templateID != "" {
		query += ` AND template_id = ?`
		args = append(args, templateID)
	}
	return listReports(s.db, query+` ORDER BY updated_at DESC`, args...)
}

func listReports(q querier, query string, args ...any) ([]model.Report, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// DeleteReport removes one report. Deleting a missing report is not an error.
func (s *Store) DeleteReport(studentID, templateID string) error {
	_, err := s.db.Exec(`DELETE FROM reports WHERE id = ?`, model.ReportID(studentID, templateID))
	return err
}

// ReportCount returns the total number of saved reports.
func (s *Store) ReportCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (*model.Report, error) {
	var r model.Report
	var sectionData string
	if err := sc.Scan(&r.ID, &r.StudentID, &r.TemplateID, &r.ClassID, &r.Content, &sectionData, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sectionData), &r.SectionData); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", r.ID, err)
	}
	return &r, nil
}
