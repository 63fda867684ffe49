package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Report is the persisted document for one student under one template,
// together with the section state that produced it.
type Report struct {
	ID          string                     `json:"id"`
	StudentID   string                     `json:"studentId"`
	TemplateID  string                     `json:"templateId"`
	ClassID     string                     `json:"classId"`
	Content     string                     `json:"content"`
	SectionData map[string]json.RawMessage `json:"sectionData"`
	CreatedAt   time.Time                  `json:"createdAt"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
}

// ReportID builds the composite report id for a student and template.
func ReportID(studentID, templateID string) string {
	return studentID + "-" + templateID
}

// Student is a roster entry. Only FirstName takes part in generation.
type Student struct {
	ID            string `json:"id" validate:"required"`
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName"`
	StudentNumber string `json:"studentId,omitempty"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Class is a named roster of students.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Students  []Student `json:"students" validate:"unique=ID,dive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Student returns the student with the given id, or nil.
func (c *Class) Student(id string) *Student {
	for i := range c.Students {
		if c.Students[i].ID == id {
			return &c.Students[i]
		}
	}
	return nil
}

// CommentBank is a saved, reusable set of comment pools for one section type.
type CommentBank struct {
	Type SectionType `json:"type"`
	Name string      `json:"name"`
	Data SectionData `json:"data"`
}

// UnmarshalJSON decodes data according to the bank's section type.
func (b *CommentBank) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type SectionType     `json:"type"`
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sd, err := NewSectionData(raw.Type)
	if err != nil {
		return fmt.Errorf("comment bank %q: %w", raw.Name, err)
	}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, sd); err != nil {
			return fmt.Errorf("comment bank %q data: %w", raw.Name, err)
		}
	}
	*b = CommentBank{Type: raw.Type, Name: raw.Name, Data: sd}
	return nil
}

// NewSection creates a template section pre-filled with the bank's pools.
func (b CommentBank) NewSection(name string) (Section, error) {
	sec := Section{ID: uuid.NewString(), Type: b.Type, Name: name, Data: b.Data}
	data, err := json.Marshal(sec)
	if err != nil {
		return Section{}, fmt.Errorf("encode section: %w", err)
	}
	var out Section
	if err := json.Unmarshal(data, &out); err != nil {
		return Section{}, fmt.Errorf("decode section: %w", err)
	}
	return out, nil
}

// Snapshot is the whole document store: every template, class, report and
// comment bank.
type Snapshot struct {
	Templates    []Template    `json:"templates"`
	Classes      []Class       `json:"classes"`
	Reports      []Report      `json:"reports"`
	CommentBanks []CommentBank `json:"commentBanks"`
}
