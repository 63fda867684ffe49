package seed

import (
	"testing"

	"github.com/pavelanni/reportwriter/internal/model"
	"github.com/pavelanni/reportwriter/internal/report"
	"github.com/pavelanni/reportwriter/internal/store"
)

func TestTemplateCoversEverySectionType(t *testing.T) {
	tmpl := Template()
	if err := tmpl.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	seen := make(map[model.SectionType]bool)
	for _, s := range tmpl.Sections {
		seen[s.Type] = true
	}
	for _, typ := range model.SectionTypes {
		if !seen[typ] {
			t.Errorf("demo template has no %s section", typ)
		}
	}
}

func TestClassRoster(t *testing.T) {
	c := Class()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(c.Students) != 6 {
		t.Fatalf("got %d students, want 6", len(c.Students))
	}
	if got := c.Students[0].FullName(); got != "Emma Thompson" {
		t.Errorf("first student = %q", got)
	}
	if got := c.Students[5].FullName(); got != "Ethan Williams" {
		t.Errorf("last student = %q", got)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	created, err := Apply(s)
	if err != nil || !created {
		t.Fatalf("first Apply = %v, %v", created, err)
	}
	created, err = Apply(s)
	if err != nil || created {
		t.Fatalf("second Apply = %v, %v", created, err)
	}

	templates, err := s.ListTemplates()
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	classes, err := s.ListClasses()
	if err != nil {
		t.Fatalf("ListClasses: %v", err)
	}
	if len(templates) != 1 || len(classes) != 1 {
		t.Errorf("got %d templates and %d classes, want one of each", len(templates), len(classes))
	}
}

func TestDemoReport(t *testing.T) {
	tmpl := Template()
	gen := report.NewGenerator(report.WithDraw(func(int) int { return 0 }))
	sheet := gen.NewSheet(tmpl, nil)

	patches := map[string]string{
		"rated-1":        `{"rating":"good"}`,
		"assessment-1":   `{"performance":"needs-improvement","score":21}`,
		"personalised-1": `{"selectedHeading":"Realistic","personalisedInfo":"a grade 6"}`,
		"next-steps-1":   `{"focusArea":"Organisation"}`,
		"optional-1":     `{"include":true,"comment":"Have a restful holiday, [Name]."}`,
	}
	for id, patch := range patches {
		if _, err := sheet.Update(id, []byte(patch)); err != nil {
			t.Fatalf("Update(%s): %v", id, err)
		}
	}

	emma := model.Student{ID: "s1", FirstName: "Emma", LastName: "Thompson"}
	got := gen.Generate(tmpl, emma, sheet.States())
	want := "Emma regularly participates in class discussions with good insights. " +
		"Emma has made steady progress throughout this term. They have shown good understanding " +
		"of the key concepts covered and consistently completes work to a satisfactory standard. " +
		"Emma scored 21/50 and would benefit from additional support in this area. " +
		"Emma has set a realistic target of a grade 6. With continued hard work, this grade is definitely within reach. " +
		"Emma needs to work on keeping notes and materials better organised.\n\n" +
		"Have a restful holiday, Emma."
	if got != want {
		t.Errorf("Generate() =\n%q\nwant\n%q", got, want)
	}
}
