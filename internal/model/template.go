package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// SectionType tags the variant of a template section.
type SectionType string

const (
	SectionRatedComment        SectionType = "rated-comment"
	SectionStandardComment     SectionType = "standard-comment"
	SectionAssessmentComment   SectionType = "assessment-comment"
	SectionPersonalisedComment SectionType = "personalised-comment"
	SectionNextSteps           SectionType = "next-steps"
	SectionOptionalComment     SectionType = "optional-additional-comment"
	SectionNewLine             SectionType = "new-line"
)

// SectionTypes lists every known section type in authoring order.
var SectionTypes = []SectionType{
	SectionRatedComment,
	SectionStandardComment,
	SectionAssessmentComment,
	SectionPersonalisedComment,
	SectionNextSteps,
	SectionOptionalComment,
	SectionNewLine,
}

// Valid reports whether t is a known section type.
func (t SectionType) Valid() bool {
	for _, known := range SectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Template is a named, ordered list of typed sections.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Sections  []Section `json:"sections" validate:"min=1,unique=ID,dive"`
}

// Section returns the section with the given id, or nil.
func (t *Template) Section(id string) *Section {
	if t == nil {
		return nil
	}
	for i := range t.Sections {
		if t.Sections[i].ID == id {
			return &t.Sections[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() (*Template, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal template: %w", err)
	}
	var out Template
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal template: %w", err)
	}
	return &out, nil
}

// Section is one typed content unit within a template. Data holds the
// type-specific configuration and is always a pointer to the struct that
// matches Type.
type Section struct {
	ID   string      `json:"id" validate:"required"`
	Type SectionType `json:"type" validate:"required,oneof=rated-comment standard-comment assessment-comment personalised-comment next-steps optional-additional-comment new-line"`
	Name string      `json:"name"`
	Data SectionData `json:"data"`
}

// NewSection creates a section of the given type with a fresh id and empty data.
func NewSection(t SectionType, name string) (Section, error) {
	data, err := NewSectionData(t)
	if err != nil {
		return Section{}, err
	}
	return Section{ID: uuid.NewString(), Type: t, Name: name, Data: data}, nil
}

// Pool returns the comment pool for a trigger key, or nil when the section
// has no pools.
func (s *Section) Pool(key string) []string {
	p, ok := s.Data.(CommentPool)
	if !ok {
		return nil
	}
	return p.Pool(key)
}

type sectionJSON struct {
	ID   string          `json:"id"`
	Type SectionType     `json:"type"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalJSON decodes data according to the section type.
func (s *Section) UnmarshalJSON(b []byte) error {
	var raw sectionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	data, err := NewSectionData(raw.Type)
	if err != nil {
		return fmt.Errorf("section %q: %w", raw.ID, err)
	}
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			return fmt.Errorf("section %q data: %w", raw.ID, err)
		}
	}
	*s = Section{ID: raw.ID, Type: raw.Type, Name: raw.Name, Data: data}
	return nil
}

// SectionData is the type-specific configuration of a section.
type SectionData interface {
	SectionType() SectionType
}

// CommentPool is implemented by section data that keys comment lists by a
// trigger value.
type CommentPool interface {
	SectionData
	Pool(key string) []string
}

// NewSectionData returns empty data for the given section type.
func NewSectionData(t SectionType) (SectionData, error) {
	switch t {
	case SectionRatedComment:
		return &RatedCommentData{}, nil
	case SectionStandardComment:
		return &StandardCommentData{}, nil
	case SectionAssessmentComment:
		return &AssessmentCommentData{}, nil
	case SectionPersonalisedComment:
		return &PersonalisedCommentData{}, nil
	case SectionNextSteps:
		return &NextStepsData{}, nil
	case SectionOptionalComment:
		return &OptionalCommentData{}, nil
	case SectionNewLine:
		return &NewLineData{}, nil
	}
	return nil, fmt.Errorf("unknown section type %q", t)
}

// RatedCommentData keys comment pools by rating.
type RatedCommentData struct {
	Ratings map[string][]string `json:"ratings"`
}

func (*RatedCommentData) SectionType() SectionType { return SectionRatedComment }

func (d *RatedCommentData) Pool(key string) []string { return lookupPool(d.Ratings, key) }

// StandardCommentData holds the authored default comment.
type StandardCommentData struct {
	Content string `json:"content"`
}

func (*StandardCommentData) SectionType() SectionType { return SectionStandardComment }

// AssessmentCommentData keys comment pools by performance level.
type AssessmentCommentData struct {
	Comments  map[string][]string `json:"comments"`
	MaxScore  ScoreValue          `json:"maxScore,omitempty"`
	ScoreType string              `json:"scoreType,omitempty"`
}

func (*AssessmentCommentData) SectionType() SectionType { return SectionAssessmentComment }

func (d *AssessmentCommentData) Pool(key string) []string { return lookupPool(d.Comments, key) }

// UnmarshalJSON accepts the older "performances" key for comment pools.
func (d *AssessmentCommentData) UnmarshalJSON(b []byte) error {
	type plain AssessmentCommentData
	var aux struct {
		plain
		Performances map[string][]string `json:"performances"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*d = AssessmentCommentData(aux.plain)
	if len(d.Comments) == 0 && len(aux.Performances) > 0 {
		d.Comments = aux.Performances
	}
	return nil
}

// PersonalisedCommentData keys comment pools by heading.
type PersonalisedCommentData struct {
	Instruction string              `json:"instruction,omitempty"`
	Headings    []string            `json:"headings"`
	Comments    map[string][]string `json:"comments"`
}

func (*PersonalisedCommentData) SectionType() SectionType { return SectionPersonalisedComment }

func (d *PersonalisedCommentData) Pool(key string) []string { return lookupPool(d.Comments, key) }

// NextStepsData keys suggestion pools by focus area.
type NextStepsData struct {
	Headings []string            `json:"headings"`
	Comments map[string][]string `json:"comments"`
}

func (*NextStepsData) SectionType() SectionType { return SectionNextSteps }

func (d *NextStepsData) Pool(key string) []string { return lookupPool(d.Comments, key) }

// UnmarshalJSON accepts the older "focusAreas" key for suggestion pools.
func (d *NextStepsData) UnmarshalJSON(b []byte) error {
	type plain NextStepsData
	var aux struct {
		plain
		FocusAreas json.RawMessage `json:"focusAreas"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*d = NextStepsData(aux.plain)
	if len(d.Comments) == 0 && len(aux.FocusAreas) > 0 {
		// focusAreas was either the heading list or the pool map.
		var pools map[string][]string
		if err := json.Unmarshal(aux.FocusAreas, &pools); err == nil {
			d.Comments = pools
		} else if len(d.Headings) == 0 {
			_ = json.Unmarshal(aux.FocusAreas, &d.Headings)
		}
	}
	return nil
}

// OptionalCommentData has no configuration; the comment is free text only.
type OptionalCommentData struct{}

func (*OptionalCommentData) SectionType() SectionType { return SectionOptionalComment }

// NewLineData has no configuration.
type NewLineData struct{}

func (*NewLineData) SectionType() SectionType { return SectionNewLine }

// lookupPool finds the pool for key, first exactly and then ignoring case and
// punctuation so "needs-improvement" matches "needsImprovement".
func lookupPool(pools map[string][]string, key string) []string {
	if key == "" || len(pools) == 0 {
		return nil
	}
	if p, ok := pools[key]; ok {
		return p
	}
	want := normalizeKey(key)
	for k, p := range pools {
		if normalizeKey(k) == want {
			return p
		}
	}
	return nil
}

func normalizeKey(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

// ScoreValue is a score entered by an author. It accepts JSON numbers or
// strings and keeps the text as typed.
type ScoreValue string

// UnmarshalJSON accepts a number, a string, or null.
func (v *ScoreValue) UnmarshalJSON(b []byte) error {
	s := string(b)
	switch {
	case s == "null":
		*v = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = ScoreValue(strings.TrimSpace(str))
	default:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return fmt.Errorf("invalid score %s", s)
		}
		*v = ScoreValue(s)
	}
	return nil
}

// MarshalJSON writes numeric scores as JSON numbers and anything else as a string.
func (v ScoreValue) MarshalJSON() ([]byte, error) {
	if v == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(v), 64); err == nil {
		return []byte(v), nil
	}
	return json.Marshal(string(v))
}

// String returns the score text.
func (v ScoreValue) String() string { return string(v) }

// IsZero reports whether no score was entered. A literal "0" counts as entered.
func (v ScoreValue) IsZero() bool { return strings.TrimSpace(string(v)) == "" }
