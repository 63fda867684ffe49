package transfer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/reportwriter/internal/model"
)

// Policy decides what an import does when a template of the same name exists.
type Policy string

const (
	// PolicyReplace deletes the existing template, and its reports, first.
	PolicyReplace Policy = "replace"
	// PolicyCopy keeps both and suffixes the imported name.
	PolicyCopy Policy = "copy"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool { return p == PolicyReplace || p == PolicyCopy }

const (
	importedSuffix  = " (Imported)"
	duplicateSuffix = " (Copy)"
)

// Repository is the template storage an import needs.
type Repository interface {
	FindTemplateByName(name string) (*model.Template, error)
	DeleteTemplate(id string) error
	SaveTemplate(t *model.Template) error
}

// Import stores the template of an export envelope under a new id. Section
// ids and comment pools are kept exactly as exported.
func Import(repo Repository, env *model.TemplateExport, policy Policy) (*model.Template, error) {
	if env == nil || env.Template == nil {
		return nil, fmt.Errorf("%w: missing template", ErrInvalidTemplate)
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown import policy %q", policy)
	}
	tmpl, err := env.Template.Clone()
	if err != nil {
		return nil, err
	}
	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	tmpl.ID = uuid.NewString()
	tmpl.CreatedAt, tmpl.UpdatedAt = time.Time{}, time.Time{}

	existing, err := repo.FindTemplateByName(tmpl.Name)
	if err != nil {
		return nil, fmt.Errorf("check template name: %w", err)
	}
	if existing != nil {
		switch policy {
		case PolicyReplace:
			if err := repo.DeleteTemplate(existing.ID); err != nil {
				return nil, fmt.Errorf("replace template %s: %w", existing.ID, err)
			}
			slog.Info("replacing template on import", "name", tmpl.Name, "old_id", existing.ID)
		case PolicyCopy:
			tmpl.Name += importedSuffix
		}
	}

	if err := repo.SaveTemplate(tmpl); err != nil {
		return nil, fmt.Errorf("save imported template: %w", err)
	}
	slog.Info("imported template", "id", tmpl.ID, "name", tmpl.Name, "sections", len(tmpl.Sections))
	return tmpl, nil
}

// Duplicate returns an unsaved copy of a template named "<name> (Copy)".
// The copy has no id yet; section ids are kept.
func Duplicate(t *model.Template) (*model.Template, error) {
	dup, err := t.Clone()
	if err != nil {
		return nil, err
	}
	dup.ID = ""
	dup.Name += duplicateSuffix
	dup.CreatedAt, dup.UpdatedAt = time.Time{}, time.Time{}
	return dup, nil
}
