package transfer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pavelanni/reportwriter/internal/model"
)

func testTemplate() *model.Template {
	return &model.Template{
		ID:   "tmpl-1",
		Name: "Science: Term 2",
		Sections: []model.Section{
			{ID: "sec-a", Type: model.SectionRatedComment, Name: "Effort", Data: &model.RatedCommentData{
				Ratings: map[string][]string{"1": {"[Name] needs to focus."}, "good": {"[Name] works hard.", "[Name] is diligent."}},
			}},
			{ID: "sec-b", Type: model.SectionAssessmentComment, Name: "Test", Data: &model.AssessmentCommentData{
				Comments: map[string][]string{"good": {"[Name] scored [Score]."}},
				MaxScore: "50",
			}},
			{ID: "sec-c", Type: model.SectionNewLine, Data: &model.NewLineData{}},
		},
	}
}

// memRepo stores templates by id.
type memRepo struct {
	templates map[string]*model.Template
	deleted   []string
}

func (m *memRepo) FindTemplateByName(name string) (*model.Template, error) {
	for _, t := range m.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memRepo) DeleteTemplate(id string) error {
	delete(m.templates, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memRepo) SaveTemplate(t *model.Template) error {
	m.templates[t.ID] = t
	return nil
}

func TestRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			tmpl := testTemplate()
			data, err := Encode(tmpl, f, now)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			env, err := Decode(data, f)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if env.ExportedBy != ExportedBy || env.Version != "1.0" {
				t.Errorf("unexpected envelope %q %q", env.ExportedBy, env.Version)
			}
			if !env.ExportedAt.Equal(now) {
				t.Errorf("expected exported at %v, got %v", now, env.ExportedAt)
			}
			if diff := cmp.Diff(tmpl.Sections, env.Template.Sections); diff != "" {
				t.Errorf("sections differ (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
		f    Format
	}{
		{"not json", `{`, FormatJSON},
		{"no template", `{"version":"1.0"}`, FormatJSON},
		{"no name", `{"template":{"sections":[]}}`, FormatJSON},
		{"blank name", `{"template":{"name":"  ","sections":[]}}`, FormatJSON},
		{"no sections", `{"template":{"name":"x"}}`, FormatJSON},
		{"yaml no sections", "template:\n  name: x\n", FormatYAML},
		{"unknown section type", `{"template":{"name":"x","sections":[{"id":"a","type":"poem"}]}}`, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.f)
			if !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("expected ErrInvalidTemplate, got %v", err)
			}
		})
	}
}

func TestDecodeLegacyPools(t *testing.T) {
	data := `{"template":{"name":"Old","sections":[
		{"id":"a","type":"assessment-comment","data":{"performances":{"good":["[Name] passed."]},"maxScore":10}}
	]}}`
	env, err := Decode([]byte(data), FormatJSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	sec := env.Template.Section("a")
	if got := sec.Pool("good"); len(got) != 1 || got[0] != "[Name] passed." {
		t.Errorf("expected legacy pool, got %v", got)
	}
	if d := sec.Data.(*model.AssessmentCommentData); d.MaxScore != "10" {
		t.Errorf("expected max score 10, got %q", d.MaxScore)
	}
}

func TestImportPolicies(t *testing.T) {
	existing := testTemplate()
	existing.ID = "old"

	t.Run("no clash", func(t *testing.T) {
		repo := &memRepo{templates: map[string]*model.Template{}}
		got, err := Import(repo, &model.TemplateExport{Template: testTemplate()}, PolicyCopy)
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if got.ID == "tmpl-1" || got.ID == "" {
			t.Errorf("expected a new id, got %q", got.ID)
		}
		if got.Name != "Science: Term 2" {
			t.Errorf("expected name kept, got %q", got.Name)
		}
		if got.Sections[0].ID != "sec-a" {
			t.Errorf("expected section ids kept, got %q", got.Sections[0].ID)
		}
	})

	t.Run("copy", func(t *testing.T) {
		repo := &memRepo{templates: map[string]*model.Template{"old": existing}}
		got, err := Import(repo, &model.TemplateExport{Template: testTemplate()}, PolicyCopy)
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if got.Name != "Science: Term 2 (Imported)" {
			t.Errorf("unexpected name %q", got.Name)
		}
		if len(repo.templates) != 2 {
			t.Errorf("expected both templates kept, got %d", len(repo.templates))
		}
	})

	t.Run("replace", func(t *testing.T) {
		repo := &memRepo{templates: map[string]*model.Template{"old": existing}}
		got, err := Import(repo, &model.TemplateExport{Template: testTemplate()}, PolicyReplace)
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if diff := cmp.Diff([]string{"old"}, repo.deleted); diff != "" {
			t.Errorf("deleted differs (-want +got):\n%s", diff)
		}
		if got.Name != "Science: Term 2" {
			t.Errorf("unexpected name %q", got.Name)
		}
	})

	t.Run("empty template", func(t *testing.T) {
		repo := &memRepo{templates: map[string]*model.Template{}}
		_, err := Import(repo, &model.TemplateExport{Template: &model.Template{Name: "x", Sections: []model.Section{}}}, PolicyCopy)
		if !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("expected ErrInvalidTemplate, got %v", err)
		}
		if len(repo.templates) != 0 {
			t.Error("expected nothing stored")
		}
	})

	t.Run("bad policy", func(t *testing.T) {
		repo := &memRepo{templates: map[string]*model.Template{}}
		if _, err := Import(repo, &model.TemplateExport{Template: testTemplate()}, "merge"); err == nil {
			t.Error("expected error for unknown policy")
		}
	})
}

func TestDuplicate(t *testing.T) {
	orig := testTemplate()
	orig.CreatedAt = time.Now()
	dup, err := Duplicate(orig)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if dup.ID != "" || !dup.CreatedAt.IsZero() {
		t.Errorf("expected fresh identity, got %q %v", dup.ID, dup.CreatedAt)
	}
	if dup.Name != "Science: Term 2 (Copy)" {
		t.Errorf("unexpected name %q", dup.Name)
	}
	dup.Sections[0].Data.(*model.RatedCommentData).Ratings["good"][0] = "changed"
	if orig.Section("sec-a").Pool("good")[0] == "changed" {
		t.Error("expected a deep copy")
	}
}

func TestFileNames(t *testing.T) {
	if got := ExportFileName(testTemplate()); got != "Science__Term_2_template.json" {
		t.Errorf("ExportFileName() = %q", got)
	}
	if got := ExportFileName(&model.Template{Name: "Café"}); got != "Caf__template.json" {
		t.Errorf("ExportFileName() = %q", got)
	}
	tests := map[string]Format{
		"a.json": FormatJSON,
		"a.YAML": FormatYAML,
		"a.yml":  FormatYAML,
		"a":      FormatJSON,
	}
	for name, want := range tests {
		if got := FormatFor(name); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", name, got, want)
		}
	}
	if !strings.HasSuffix(ExportFileName(&model.Template{Name: "x"}), "_template.json") {
		t.Error("expected template suffix")
	}
}

func TestHash(t *testing.T) {
	a, b := Hash([]byte(`{"template":{}}`)), Hash([]byte(`{"template":{} }`))
	if a == b {
		t.Error("different files hashed equal")
	}
	if a != Hash([]byte(`{"template":{}}`)) {
		t.Error("hash is not stable")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex digits", len(a))
	}
}
