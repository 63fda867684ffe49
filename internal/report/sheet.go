package report

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pavelanni/reportwriter/internal/model"
)

// ErrUnknownSection is returned when a section id is not part of the template.
var ErrUnknownSection = errors.New("unknown section")

// Sheet is the in-memory form state of one student under one template.
// Every update marks the sheet dirty until the caller saves it.
type Sheet struct {
	tmpl     *model.Template
	states   model.StateMap
	resolver *Resolver
	dirty    bool
}

// NewSheet wraps existing section states for editing. states may be nil.
func (g *Generator) NewSheet(tmpl *model.Template, states model.StateMap) *Sheet {
	if states == nil {
		states = make(model.StateMap)
	}
	return &Sheet{tmpl: tmpl, states: states, resolver: g.resolver}
}

// State returns the current state of a section, creating empty state on
// first access.
func (s *Sheet) State(sectionID string) (model.SectionState, error) {
	sec := s.tmpl.Section(sectionID)
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	return s.stateFor(sec), nil
}

// Update merges patch, a JSON object of state fields, into a section's
// state and returns the merged state. A change of trigger value re-draws the
// section's comment immediately.
func (s *Sheet) Update(sectionID string, patch json.RawMessage) (model.SectionState, error) {
	sec := s.tmpl.Section(sectionID)
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	merged, err := model.ApplyPatch(s.stateFor(sec), patch)
	if err != nil {
		return nil, fmt.Errorf("update section %s: %w", sectionID, err)
	}
	s.sync(sec, merged)
	s.states[sectionID] = merged
	s.dirty = true
	return merged, nil
}

// Set replaces a section's state.
func (s *Sheet) Set(sectionID string, st model.SectionState) error {
	sec := s.tmpl.Section(sectionID)
	if sec == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	if st.SectionType() != sec.Type {
		return fmt.Errorf("section %s is %s, got %s state", sectionID, sec.Type, st.SectionType())
	}
	s.sync(sec, st)
	s.states[sectionID] = st
	s.dirty = true
	return nil
}

// States returns the live state map. Generation writes comment locks into it.
func (s *Sheet) States() model.StateMap { return s.states }

// Dirty reports whether the sheet changed since it was loaded or saved.
func (s *Sheet) Dirty() bool { return s.dirty }

// MarkClean clears the dirty flag after a save.
func (s *Sheet) MarkClean() { s.dirty = false }

func (s *Sheet) stateFor(sec *model.Section) model.SectionState {
	if st, ok := s.states[sec.ID]; ok && st != nil && st.SectionType() == sec.Type {
		return st
	}
	st, _ := model.NewSectionState(sec.Type)
	s.states[sec.ID] = st
	return st
}

func (s *Sheet) sync(sec *model.Section, st model.SectionState) {
	if l, ok := st.(model.Lockable); ok {
		s.resolver.Resolve(l, sec.Pool(l.Trigger()))
	}
}
