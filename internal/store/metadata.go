package store

import (
	"database/sql"
	"errors"
)

const importHashPrefix = "imported:"

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// MarkImported records the template id created from an imported file hash.
func (s *Store) MarkImported(fileHash, templateID string) error {
	return s.SetMetadata(importHashPrefix+fileHash, templateID)
}

// ImportedTemplate returns the template id previously created from a file
// with this hash, or "" if the file has not been imported.
func (s *Store) ImportedTemplate(fileHash string) (string, error) {
	return s.GetMetadata(importHashPrefix + fileHash)
}
