package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Trigger sentinels that never draw a comment.
const (
	NoComment     = "no-comment"
	NotApplicable = "not-applicable"
)

// Score display modes for assessment sections.
const (
	ScoreOutOf      = "outOf"
	ScorePercentage = "percentage"
)

// SectionState is the per-student form state of one section. Each section
// type has its own state struct.
type SectionState interface {
	SectionType() SectionType
	Excluded() bool
}

// Selection is the locked comment of a pool-bearing section: the comment
// drawn, its index in the pool, and the trigger value it was drawn for.
type Selection struct {
	Comment string
	Index   int
	Trigger string
}

// Resolved reports whether a comment is locked in.
func (s Selection) Resolved() bool { return s.Comment != "" }

// Lockable is a state whose section draws from a comment pool.
type Lockable interface {
	SectionState
	Trigger() string
	Selection() Selection
	SetSelection(Selection)
}

// StateMap holds section states keyed by section id.
type StateMap map[string]SectionState

// RatedCommentState is the form state of a rated-comment section.
type RatedCommentState struct {
	Exclude              bool   `json:"exclude,omitempty"`
	Rating               string `json:"rating,omitempty"`
	AdditionalComment    string `json:"additionalComment,omitempty"`
	SelectedComment      string `json:"selectedComment,omitempty"`
	SelectedCommentIndex int    `json:"selectedCommentIndex,omitempty"`
	LastRating           string `json:"lastRating,omitempty"`
}

func (*RatedCommentState) SectionType() SectionType { return SectionRatedComment }
func (s *RatedCommentState) Excluded() bool        { return s.Exclude }
func (s *RatedCommentState) Trigger() string       { return s.Rating }

func (s *RatedCommentState) Selection() Selection {
	return Selection{Comment: s.SelectedComment, Index: s.SelectedCommentIndex, Trigger: s.LastRating}
}

func (s *RatedCommentState) SetSelection(sel Selection) {
	s.SelectedComment, s.SelectedCommentIndex, s.LastRating = sel.Comment, sel.Index, sel.Trigger
}

// StandardCommentState is the form state of a standard-comment section.
type StandardCommentState struct {
	Exclude bool   `json:"exclude,omitempty"`
	Comment string `json:"comment,omitempty"`
}

func (*StandardCommentState) SectionType() SectionType { return SectionStandardComment }
func (s *StandardCommentState) Excluded() bool        { return s.Exclude }

// AssessmentCommentState is the form state of an assessment-comment section.
type AssessmentCommentState struct {
	Exclude              bool       `json:"exclude,omitempty"`
	Performance          string     `json:"performance,omitempty"`
	ScoreType            string     `json:"scoreType,omitempty"`
	Score                ScoreValue `json:"score,omitempty"`
	MaxScore             ScoreValue `json:"maxScore,omitempty"`
	Percentage           ScoreValue `json:"percentage,omitempty"`
	AdditionalComment    string     `json:"additionalComment,omitempty"`
	SelectedComment      string     `json:"selectedComment,omitempty"`
	SelectedCommentIndex int        `json:"selectedCommentIndex,omitempty"`
	LastPerformance      string     `json:"lastPerformance,omitempty"`
}

func (*AssessmentCommentState) SectionType() SectionType { return SectionAssessmentComment }
func (s *AssessmentCommentState) Excluded() bool        { return s.Exclude }
func (s *AssessmentCommentState) Trigger() string       { return s.Performance }

func (s *AssessmentCommentState) Selection() Selection {
	return Selection{Comment: s.SelectedComment, Index: s.SelectedCommentIndex, Trigger: s.LastPerformance}
}

func (s *AssessmentCommentState) SetSelection(sel Selection) {
	s.SelectedComment, s.SelectedCommentIndex, s.LastPerformance = sel.Comment, sel.Index, sel.Trigger
}

// PersonalisedCommentState is the form state of a personalised-comment section.
type PersonalisedCommentState struct {
	Exclude              bool   `json:"exclude,omitempty"`
	IncludeSection       *bool  `json:"includeSection,omitempty"`
	PersonalisedInfo     string `json:"personalisedInfo,omitempty"`
	SelectedHeading      string `json:"selectedHeading,omitempty"`
	AdditionalComment    string `json:"additionalComment,omitempty"`
	SelectedComment      string `json:"selectedComment,omitempty"`
	SelectedCommentIndex int    `json:"selectedCommentIndex,omitempty"`
	LastHeading          string `json:"lastHeading,omitempty"`
}

func (*PersonalisedCommentState) SectionType() SectionType { return SectionPersonalisedComment }
func (s *PersonalisedCommentState) Excluded() bool        { return s.Exclude }
func (s *PersonalisedCommentState) Trigger() string       { return s.SelectedHeading }

// Included is false only when the author explicitly unticked the section.
func (s *PersonalisedCommentState) Included() bool {
	return s.IncludeSection == nil || *s.IncludeSection
}

func (s *PersonalisedCommentState) Selection() Selection {
	return Selection{Comment: s.SelectedComment, Index: s.SelectedCommentIndex, Trigger: s.LastHeading}
}

func (s *PersonalisedCommentState) SetSelection(sel Selection) {
	s.SelectedComment, s.SelectedCommentIndex, s.LastHeading = sel.Comment, sel.Index, sel.Trigger
}

// NextStepsState is the form state of a next-steps section. SelectedFocus and
// CustomSuggestion are older field names still read from saved reports.
type NextStepsState struct {
	Exclude               bool   `json:"exclude,omitempty"`
	IncludeSection        *bool  `json:"includeSection,omitempty"`
	FocusArea             string `json:"focusArea,omitempty"`
	SelectedFocus         string `json:"selectedFocus,omitempty"`
	Priority              string `json:"priority,omitempty"`
	AdditionalSuggestions string `json:"additionalSuggestions,omitempty"`
	CustomSuggestion      string `json:"customSuggestion,omitempty"`
	SelectedComment       string `json:"selectedComment,omitempty"`
	SelectedCommentIndex  int    `json:"selectedCommentIndex,omitempty"`
	LastFocus             string `json:"lastFocus,omitempty"`
}

func (*NextStepsState) SectionType() SectionType { return SectionNextSteps }
func (s *NextStepsState) Excluded() bool        { return s.Exclude }

func (s *NextStepsState) Trigger() string {
	if s.FocusArea != "" {
		return s.FocusArea
	}
	return s.SelectedFocus
}

// Included is false only when the author explicitly unticked the section.
func (s *NextStepsState) Included() bool {
	return s.IncludeSection == nil || *s.IncludeSection
}

// Suggestion returns the author's own suggestion text.
func (s *NextStepsState) Suggestion() string {
	if strings.TrimSpace(s.AdditionalSuggestions) != "" {
		return s.AdditionalSuggestions
	}
	return s.CustomSuggestion
}

func (s *NextStepsState) Selection() Selection {
	return Selection{Comment: s.SelectedComment, Index: s.SelectedCommentIndex, Trigger: s.LastFocus}
}

func (s *NextStepsState) SetSelection(sel Selection) {
	s.SelectedComment, s.SelectedCommentIndex, s.LastFocus = sel.Comment, sel.Index, sel.Trigger
}

// OptionalCommentState is the form state of an optional-additional-comment
// section. ShowOptional and AdditionalComment are the names the writing form
// used before Include and Comment.
type OptionalCommentState struct {
	Exclude           bool   `json:"exclude,omitempty"`
	Include           bool   `json:"include,omitempty"`
	ShowOptional      bool   `json:"showOptional,omitempty"`
	Comment           string `json:"comment,omitempty"`
	AdditionalComment string `json:"additionalComment,omitempty"`
}

func (*OptionalCommentState) SectionType() SectionType { return SectionOptionalComment }
func (s *OptionalCommentState) Excluded() bool        { return s.Exclude }

// Included reports whether the author ticked the optional comment.
func (s *OptionalCommentState) Included() bool { return s.Include || s.ShowOptional }

// Text returns the optional comment text.
func (s *OptionalCommentState) Text() string {
	if strings.TrimSpace(s.Comment) != "" {
		return s.Comment
	}
	return s.AdditionalComment
}

// NewLineState only carries the exclude flag.
type NewLineState struct {
	Exclude bool `json:"exclude,omitempty"`
}

func (*NewLineState) SectionType() SectionType { return SectionNewLine }
func (s *NewLineState) Excluded() bool        { return s.Exclude }

// NewSectionState returns empty state for the given section type.
func NewSectionState(t SectionType) (SectionState, error) {
	switch t {
	case SectionRatedComment:
		return &RatedCommentState{}, nil
	case SectionStandardComment:
		return &StandardCommentState{}, nil
	case SectionAssessmentComment:
		return &AssessmentCommentState{}, nil
	case SectionPersonalisedComment:
		return &PersonalisedCommentState{}, nil
	case SectionNextSteps:
		return &NextStepsState{}, nil
	case SectionOptionalComment:
		return &OptionalCommentState{}, nil
	case SectionNewLine:
		return &NewLineState{}, nil
	}
	return nil, fmt.Errorf("unknown section type %q", t)
}

// DecodeStates decodes saved per-section JSON against a template. The
// template decides each section's state type; entries for sections the
// template no longer has are dropped.
func DecodeStates(tmpl *Template, raw map[string]json.RawMessage) (StateMap, error) {
	states := make(StateMap, len(raw))
	if tmpl == nil {
		return states, nil
	}
	for id, data := range raw {
		sec := tmpl.Section(id)
		if sec == nil {
			slog.Debug("dropping state for unknown section", "template_id", tmpl.ID, "section_id", id)
			continue
		}
		st, err := NewSectionState(sec.Type)
		if err != nil {
			return nil, err
		}
		if len(data) > 0 && string(data) != "null" {
			if err := json.Unmarshal(data, st); err != nil {
				return nil, fmt.Errorf("decode state for section %q: %w", id, err)
			}
		}
		states[id] = st
	}
	return states, nil
}

// EncodeStates encodes section states for storage.
func EncodeStates(states StateMap) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(states))
	for id, st := range states {
		data, err := json.Marshal(st)
		if err != nil {
			return nil, fmt.Errorf("encode state for section %q: %w", id, err)
		}
		out[id] = data
	}
	return out, nil
}

// ErrInvalidPatch is returned for a section patch that is not a JSON object
// or sets a field to a value of the wrong type.
var ErrInvalidPatch = errors.New("invalid section patch")

// ApplyPatch merges a JSON object into a state field by field: keys in the
// patch overwrite, a null value clears the field, and absent keys keep their
// current value. The result is a new state of the same type.
func ApplyPatch(st SectionState, patch json.RawMessage) (SectionState, error) {
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(patch, &changes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}

	current, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(current, &fields); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	for k, v := range changes {
		if string(v) == "null" {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode merged state: %w", err)
	}
	out, err := NewSectionState(st.SectionType())
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(merged, out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}
	return out, nil
}
