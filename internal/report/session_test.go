package report

import (
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/reportwriter/internal/model"
)

type memRepo struct {
	reports map[string]*model.Report
}

func newMemRepo() *memRepo { return &memRepo{reports: make(map[string]*model.Report)} }

func (m *memRepo) GetReport(studentID, templateID string) (*model.Report, error) {
	r, ok := m.reports[model.ReportID(studentID, templateID)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) SaveReport(r *model.Report) error {
	if old, ok := m.reports[r.ID]; ok {
		r.CreatedAt = old.CreatedAt
	} else if r.CreatedAt.IsZero() {
		r.CreatedAt = r.UpdatedAt
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func testClass() *model.Class {
	return &model.Class{
		ID:   "class-1",
		Name: "5B",
		Students: []model.Student{
			emma,
			{ID: "s2", FirstName: "Liam", LastName: "Rodriguez"},
		},
	}
}

func newTestSession(t *testing.T, repo Repository) *Session {
	t.Helper()
	s, err := NewSession(NewGenerator(WithDraw(firstDraw)), repo, testClass(), testTemplate(t))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestNewSessionValidation(t *testing.T) {
	gen := NewGenerator()
	repo := newMemRepo()

	if _, err := NewSession(gen, repo, testClass(), &model.Template{Name: "x"}); !errors.Is(err, model.ErrTemplateEmpty) {
		t.Errorf("expected ErrTemplateEmpty, got %v", err)
	}
	tmpl := testTemplate(t)
	tmpl.Name = " "
	if _, err := NewSession(gen, repo, testClass(), tmpl); !errors.Is(err, model.ErrTemplateName) {
		t.Errorf("expected ErrTemplateName, got %v", err)
	}
	if _, err := NewSession(gen, repo, &model.Class{Name: "empty"}, testTemplate(t)); !errors.Is(err, ErrNoStudents) {
		t.Errorf("expected ErrNoStudents, got %v", err)
	}
}

func TestSessionSaveAndReload(t *testing.T) {
	repo := newMemRepo()
	s := newTestSession(t, repo)

	preview, err := s.Update("behaviour", []byte(`{"rating":"good"}`))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !s.Dirty() {
		t.Error("expected dirty after update")
	}

	r, err := s.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.Dirty() {
		t.Error("expected clean after save")
	}
	if r.ID != "s1-tmpl-1" {
		t.Errorf("expected id s1-tmpl-1, got %q", r.ID)
	}
	if r.Content != preview {
		t.Errorf("expected saved content %q, got %q", preview, r.Content)
	}

	got, err := repo.GetReport("s1", "tmpl-1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Content != s.Preview() {
		t.Errorf("expected stored content to match generate, got %q", got.Content)
	}

	// Reopen from storage with a generator that would draw differently.
	s2, err := NewSession(NewGenerator(WithDraw(drawSeq(2))), repo, testClass(), testTemplate(t))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s2.Preview() != r.Content {
		t.Errorf("expected reloaded preview %q, got %q", r.Content, s2.Preview())
	}
}

func TestSessionPreservesCreatedAt(t *testing.T) {
	repo := newMemRepo()
	s := newTestSession(t, repo)
	first := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return first }
	if _, err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	later := first.Add(48 * time.Hour)
	s.now = func() time.Time { return later }
	if _, err := s.Update("intro", []byte(`{"comment":"New text."}`)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	r, err := s.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !r.CreatedAt.Equal(first) {
		t.Errorf("expected created %v, got %v", first, r.CreatedAt)
	}
	if !r.UpdatedAt.Equal(later) {
		t.Errorf("expected updated %v, got %v", later, r.UpdatedAt)
	}
}

func TestSessionNavigate(t *testing.T) {
	s := newTestSession(t, newMemRepo())

	if _, err := s.Update("intro", []byte(`{"comment":"Draft."}`)); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := s.Navigate(1, func() bool { return false }); !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("expected ErrUnsavedChanges, got %v", err)
	}
	if s.Index() != 0 || !s.Dirty() {
		t.Errorf("declined navigation changed the session: index %d dirty %v", s.Index(), s.Dirty())
	}
	if err := s.Navigate(1, nil); !errors.Is(err, ErrUnsavedChanges) {
		t.Errorf("expected ErrUnsavedChanges without confirm, got %v", err)
	}

	if err := s.Navigate(1, func() bool { return true }); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if s.Student().FirstName != "Liam" {
		t.Errorf("expected Liam, got %q", s.Student().FirstName)
	}
	if s.Dirty() {
		t.Error("expected fresh sheet to be clean")
	}

	// Back to Emma: the unsaved draft is gone.
	if err := s.Navigate(0, nil); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if got := s.Preview(); got != "This term Emma studied fractions." {
		t.Errorf("expected default content, got %q", got)
	}

	if err := s.Navigate(5, nil); !errors.Is(err, ErrStudentIndex) {
		t.Errorf("expected ErrStudentIndex, got %v", err)
	}
}

func TestSessionSetContent(t *testing.T) {
	repo := newMemRepo()
	s := newTestSession(t, repo)

	if _, err := s.SetContent("edited"); err == nil {
		t.Error("expected error without a saved report")
	}
	if _, err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.SetContent("Hand edited."); err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	r, _ := repo.GetReport("s1", "tmpl-1")
	if r.Content != "Hand edited." {
		t.Errorf("expected edited content, got %q", r.Content)
	}
}

func TestSessionUnknownSection(t *testing.T) {
	s := newTestSession(t, newMemRepo())
	if _, err := s.Update("missing", []byte(`{}`)); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("expected ErrUnknownSection, got %v", err)
	}
}
