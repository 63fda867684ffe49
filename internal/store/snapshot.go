package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pavelanni/reportwriter/internal/model"
)

// LoadAll reads every template, class, report and comment bank.
func (s *Store) LoadAll() (model.Snapshot, error) {
	var snap model.Snapshot
	err := s.inTx(func(tx *sql.Tx) error {
		var err error
		if snap.Templates, err = listTemplates(tx); err != nil {
			return fmt.Errorf("load templates: %w", err)
		}
		if snap.Classes, err = listClasses(tx); err != nil {
			return fmt.Errorf("load classes: %w", err)
		}
		if snap.Reports, err = listReports(tx, `SELECT `+reportColumns+` FROM reports ORDER BY id`); err != nil {
			return fmt.Errorf("load reports: %w", err)
		}
		if snap.CommentBanks, err = listCommentBanks(tx, ""); err != nil {
			return fmt.Errorf("load comment banks: %w", err)
		}
		return nil
	})
	return snap, err
}

// SaveAll replaces all documents with the snapshot in one transaction.
// Users and login sessions are left alone.
func (s *Store) SaveAll(snap model.Snapshot) error {
	err := s.inTx(func(tx *sql.Tx) error {
		for _, table := range []string{"reports", "students", "classes", "templates", "comment_banks"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for i := range snap.Templates {
			if err := saveTemplate(tx, &snap.Templates[i]); err != nil {
				return fmt.Errorf("restore template %s: %w", snap.Templates[i].ID, err)
			}
		}
		for i := range snap.Classes {
			if err := saveClass(tx, &snap.Classes[i]); err != nil {
				return fmt.Errorf("restore class %s: %w", snap.Classes[i].ID, err)
			}
		}
		for i := range snap.Reports {
			if err := saveReport(tx, &snap.Reports[i]); err != nil {
				return fmt.Errorf("restore report %s: %w", snap.Reports[i].ID, err)
			}
		}
		for _, b := range snap.CommentBanks {
			if err := saveCommentBank(tx, b); err != nil {
				return fmt.Errorf("restore comment bank %s: %w", b.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("restored snapshot",
		"templates", len(snap.Templates),
		"classes", len(snap.Classes),
		"reports", len(snap.Reports),
		"comment_banks", len(snap.CommentBanks))
	return nil
}
