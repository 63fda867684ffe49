package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var (
	// ErrTemplateName is returned for a template without a name.
	ErrTemplateName = errors.New("template name is required")
	// ErrTemplateEmpty is returned for a template without sections.
	ErrTemplateEmpty = errors.New("template must have at least one section")
)

// Validate checks that a template can be used to generate reports: a
// non-empty name, at least one section, unique section ids and known types.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrTemplateName
	}
	if len(t.Sections) == 0 {
		return ErrTemplateEmpty
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	for _, s := range t.Sections {
		if s.Data == nil || s.Data.SectionType() != s.Type {
			return fmt.Errorf("invalid template: section %q data does not match type %q", s.ID, s.Type)
		}
	}
	return nil
}

// Validate checks a class roster.
func (c *Class) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("class name is required")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid class: %w", err)
	}
	return nil
}

// Validate checks a comment bank.
func (b *CommentBank) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return errors.New("comment bank name is required")
	}
	if b.Data == nil || b.Data.SectionType() != b.Type {
		return fmt.Errorf("comment bank %q data does not match type %q", b.Name, b.Type)
	}
	return nil
}
