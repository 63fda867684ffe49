package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/reportwriter/internal/model"
)

var (
	// ErrUnsavedChanges is returned when navigation away from a dirty sheet
	// is declined.
	ErrUnsavedChanges = errors.New("unsaved changes")
	// ErrNoStudents is returned when a session is opened on an empty class.
	ErrNoStudents = errors.New("class has no students")
	// ErrStudentIndex is returned for a roster position outside the class.
	ErrStudentIndex = errors.New("student index out of range")
)

// Repository is the report persistence a Session needs. GetReport returns
// nil, nil when no report has been saved yet.
type Repository interface {
	GetReport(studentID, templateID string) (*model.Report, error)
	SaveReport(r *model.Report) error
}

// Session is one author working through a class roster with one template.
// Only the current student's sheet lives in memory; it is discarded on
// navigation unless saved.
type Session struct {
	gen   *Generator
	repo  Repository
	class *model.Class
	tmpl  *model.Template
	index int
	sheet *Sheet
	now   func() time.Time
}

// NewSession validates the template, then opens the first student of the class.
func NewSession(gen *Generator, repo Repository, class *model.Class, tmpl *model.Template) (*Session, error) {
	if tmpl == nil {
		return nil, errors.New("template is required")
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	if class == nil || len(class.Students) == 0 {
		return nil, ErrNoStudents
	}
	s := &Session{gen: gen, repo: repo, class: class, tmpl: tmpl, now: time.Now}
	if err := s.open(0); err != nil {
		return nil, err
	}
	return s, nil
}

// Student returns the student currently being written.
func (s *Session) Student() model.Student { return s.class.Students[s.index] }

// Index returns the roster position of the current student.
func (s *Session) Index() int { return s.index }

// Class returns the roster the session works through.
func (s *Session) Class() *model.Class { return s.class }

// Template returns the session's template.
func (s *Session) Template() *model.Template { return s.tmpl }

// Dirty reports whether the current sheet has unsaved changes.
func (s *Session) Dirty() bool { return s.sheet.Dirty() }

// Sheet exposes the current student's section states.
func (s *Session) Sheet() *Sheet { return s.sheet }

// Preview generates the document for the current student without saving.
func (s *Session) Preview() string {
	return s.gen.Generate(s.tmpl, s.Student(), s.sheet.States())
}

// Update applies a patch to one section and returns the refreshed preview.
func (s *Session) Update(sectionID string, patch []byte) (string, error) {
	if _, err := s.sheet.Update(sectionID, patch); err != nil {
		return "", err
	}
	return s.Preview(), nil
}

// Save generates the document and upserts it as the student's report.
func (s *Session) Save() (*model.Report, error) {
	content := s.Preview()
	data, err := model.EncodeStates(s.sheet.States())
	if err != nil {
		return nil, err
	}
	st := s.Student()
	r := &model.Report{
		ID:          model.ReportID(st.ID, s.tmpl.ID),
		StudentID:   st.ID,
		TemplateID:  s.tmpl.ID,
		ClassID:     s.class.ID,
		Content:     content,
		SectionData: data,
		UpdatedAt:   s.now(),
	}
	if err := s.repo.SaveReport(r); err != nil {
		return nil, fmt.Errorf("save report %s: %w", r.ID, err)
	}
	s.sheet.MarkClean()
	return r, nil
}

// Navigate moves to another student. With unsaved changes, confirm decides
// whether they may be discarded; a nil confirm or a false answer aborts with
// ErrUnsavedChanges and leaves the session untouched.
func (s *Session) Navigate(index int, confirm func() bool) error {
	if index < 0 || index >= len(s.class.Students) {
		return fmt.Errorf("%w: %d", ErrStudentIndex, index)
	}
	if s.sheet.Dirty() && (confirm == nil || !confirm()) {
		return ErrUnsavedChanges
	}
	return s.open(index)
}

// SetContent overwrites the saved text of the current student's report
// without regenerating it. The section state stays as last saved.
func (s *Session) SetContent(content string) (*model.Report, error) {
	st := s.Student()
	r, err := s.repo.GetReport(st.ID, s.tmpl.ID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("no saved report for %s", st.FullName())
	}
	r.Content = content
	r.UpdatedAt = s.now()
	if err := s.repo.SaveReport(r); err != nil {
		return nil, fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return r, nil
}

func (s *Session) open(index int) error {
	st := s.class.Students[index]
	r, err := s.repo.GetReport(st.ID, s.tmpl.ID)
	if err != nil {
		return fmt.Errorf("load report for %s: %w", st.FullName(), err)
	}
	var states model.StateMap
	if r != nil {
		states, err = model.DecodeStates(s.tmpl, r.SectionData)
		if err != nil {
			return fmt.Errorf("load report for %s: %w", st.FullName(), err)
		}
	}
	s.index = index
	s.sheet = s.gen.NewSheet(s.tmpl, states)
	return nil
}
