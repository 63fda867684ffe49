package report

import (
	"testing"

	"github.com/pavelanni/reportwriter/internal/model"
)

// drawSeq returns a draw function that yields the given indexes in turn,
// wrapping each into range.
func drawSeq(idx ...int) func(n int) int {
	i := 0
	return func(n int) int {
		v := idx[i%len(idx)] % n
		i++
		return v
	}
}

func firstDraw(int) int { return 0 }

func testTemplate(t *testing.T) *model.Template {
	t.Helper()
	return &model.Template{
		ID:   "tmpl-1",
		Name: "Term 1",
		Sections: []model.Section{
			{ID: "behaviour", Type: model.SectionRatedComment, Name: "Behaviour", Data: &model.RatedCommentData{
				Ratings: map[string][]string{
					"good":      {"[Name] behaves well.", "[Name] is polite.", "[Name] listens in class."},
					"excellent": {"[Name] is a role model.", "[Name] sets a fine example."},
					"empty":     {},
				},
			}},
			{ID: "intro", Type: model.SectionStandardComment, Name: "Intro", Data: &model.StandardCommentData{
				Content: "This term [Name] studied fractions.",
			}},
			{ID: "test", Type: model.SectionAssessmentComment, Name: "Test", Data: &model.AssessmentCommentData{
				Comments: map[string][]string{
					"good":              {"[Name] scored [Score]."},
					"needs-improvement": {"[Name] found the test hard and scored [Score] marks."},
				},
				MaxScore: "50",
			}},
			{ID: "hobby", Type: model.SectionPersonalisedComment, Name: "Hobby", Data: &model.PersonalisedCommentData{
				Headings: []string{"Sport"},
				Comments: map[string][]string{"Sport": {"[Name] enjoys [personalised information]."}},
			}},
			{ID: "br", Type: model.SectionNewLine, Name: "Break", Data: &model.NewLineData{}},
			{ID: "next", Type: model.SectionNextSteps, Name: "Next steps", Data: &model.NextStepsData{
				Headings: []string{"Reading"},
				Comments: map[string][]string{"Reading": {"[Name] should read every night."}},
			}},
			{ID: "extra", Type: model.SectionOptionalComment, Name: "Extra", Data: &model.OptionalCommentData{}},
		},
	}
}

var emma = model.Student{ID: "s1", FirstName: "Emma", LastName: "Thompson"}

func boolPtr(b bool) *bool { return &b }

func sliceContains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
