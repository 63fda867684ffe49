// Package seed creates the demo template and class used to try out every
// section type.
package seed

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pavelanni/reportwriter/internal/model"
)

const (
	TemplateName = "Demo Template - All Sections"
	ClassName    = "Demo Class 9B"
)

// Repository is the storage the demo data is written to.
type Repository interface {
	FindTemplateByName(name string) (*model.Template, error)
	SaveTemplate(t *model.Template) error
	ListClasses() ([]model.Class, error)
	SaveClass(c *model.Class) error
}

// Apply stores the demo template and class unless items with the same names
// already exist. It reports whether anything was created.
func Apply(repo Repository) (bool, error) {
	created := false

	existing, err := repo.FindTemplateByName(TemplateName)
	if err != nil {
		return false, fmt.Errorf("check demo template: %w", err)
	}
	if existing == nil {
		tmpl := Template()
		if err := repo.SaveTemplate(tmpl); err != nil {
			return false, fmt.Errorf("save demo template: %w", err)
		}
		slog.Info("seeded demo template", "id", tmpl.ID, "sections", len(tmpl.Sections))
		created = true
	}

	classes, err := repo.ListClasses()
	if err != nil {
		return created, fmt.Errorf("check demo class: %w", err)
	}
	for _, c := range classes {
		if c.Name == ClassName {
			return created, nil
		}
	}
	class := Class()
	if err := repo.SaveClass(class); err != nil {
		return created, fmt.Errorf("save demo class: %w", err)
	}
	slog.Info("seeded demo class", "id", class.ID, "students", len(class.Students))
	return true, nil
}

// Class returns the six-student demo roster. Student ids are fresh on every
// call.
func Class() *model.Class {
	students := []struct{ first, last, number, email string }{
		{"Emma", "Thompson", "001", "emma.t@school.edu"},
		{"Liam", "Rodriguez", "002", "liam.r@school.edu"},
		{"Sophia", "Chen", "003", "sophia.c@school.edu"},
		{"Noah", "Patel", "004", "noah.p@school.edu"},
		{"Olivia", "Johnson", "005", "olivia.j@school.edu"},
		{"Ethan", "Williams", "006", "ethan.w@school.edu"},
	}
	c := &model.Class{Name: ClassName}
	for _, s := range students {
		c.Students = append(c.Students, model.Student{
			ID:            uuid.NewString(),
			FirstName:     s.first,
			LastName:      s.last,
			StudentNumber: s.number,
			Email:         s.email,
		})
	}
	return c
}

// Template returns a template with one section of every type.
func Template() *model.Template {
	return &model.Template{
		Name: TemplateName,
		Sections: []model.Section{
			{
				ID:   "rated-1",
				Type: model.SectionRatedComment,
				Name: "Class Participation",
				Data: &model.RatedCommentData{Ratings: map[string][]string{
					"excellent": {
						"[Name] consistently contributes excellent ideas to class discussions.",
						"[Name] demonstrates outstanding engagement in all class activities.",
						"[Name] shows exceptional leadership during group work.",
					},
					"good": {
						"[Name] regularly participates in class discussions with good insights.",
						"[Name] shows good engagement in most class activities.",
						"[Name] works well with others during group tasks.",
					},
					"satisfactory": {
						"[Name] participates in class discussions when prompted.",
						"[Name] shows satisfactory engagement in class activities.",
						"[Name] cooperates well with classmates.",
					},
					"needs-improvement": {
						"[Name] needs to participate more actively in class discussions.",
						"[Name] should show more engagement during class activities.",
						"[Name] would benefit from contributing more to group work.",
					},
				}},
			},
			{
				ID:   "standard-1",
				Type: model.SectionStandardComment,
				Name: "General Progress",
				Data: &model.StandardCommentData{
					Content: "[Name] has made steady progress throughout this term. They have shown good understanding " +
						"of the key concepts covered and consistently completes work to a satisfactory standard.",
				},
			},
			{
				ID:   "assessment-1",
				Type: model.SectionAssessmentComment,
				Name: "Recent Test Results",
				Data: &model.AssessmentCommentData{
					ScoreType: model.ScoreOutOf,
					MaxScore:  "50",
					Comments: map[string][]string{
						"excellent": {
							"[Name] achieved an excellent score of [Score] demonstrating thorough understanding.",
							"[Name]'s result of [Score] shows outstanding grasp of the material.",
						},
						"good": {
							"[Name] achieved a good score of [Score] showing solid understanding.",
							"[Name]'s result of [Score] demonstrates good progress in this area.",
						},
						"satisfactory": {
							"[Name] achieved [Score] which meets expectations for this assessment.",
							"[Name]'s score of [Score] shows satisfactory understanding of the topics.",
						},
						"needs-improvement": {
							"[Name] scored [Score] and would benefit from additional support in this area.",
							"[Name]'s result of [Score] indicates areas that need more focus.",
						},
						"not-completed": {
							"[Name] was unable to complete this assessment and should arrange to catch up.",
							"This assessment was not completed by [Name] - please see me to arrange makeup.",
						},
					},
				},
			},
			{
				ID:   "personalised-1",
				Type: model.SectionPersonalisedComment,
				Name: "Target Grade",
				Data: &model.PersonalisedCommentData{
					Instruction: "Enter the student's target grade for this subject",
					Headings:    []string{"Achievable", "Realistic", "Aspirational"},
					Comments: map[string][]string{
						"Achievable": {
							"[Name] has set an achievable target of [personalised information] and is well positioned to reach this goal with consistent effort.",
							"[Name]'s target grade of [personalised information] is very achievable given their current performance level.",
						},
						"Realistic": {
							"[Name] has set a realistic target of [personalised information]. With continued hard work, this grade is definitely within reach.",
							"[Name]'s target of [personalised information] represents a realistic and motivating goal for them to work towards.",
						},
						"Aspirational": {
							"[Name] has set an aspirational target of [personalised information]. This will require significant effort and dedication to achieve.",
							"[Name]'s ambitious target of [personalised information] shows great motivation, though it will require considerable hard work.",
						},
					},
				},
			},
			{
				ID:   "next-steps-1",
				Type: model.SectionNextSteps,
				Name: "Areas for Development",
				Data: &model.NextStepsData{
					Headings: []string{"Study Skills", "Class Participation", "Organisation", "Homework Completion", "Exam Technique"},
					Comments: map[string][]string{
						"Study Skills": {
							"[Name] should focus on developing more effective study techniques for better retention.",
							"[Name] would benefit from creating study schedules and using active learning methods.",
						},
						"Class Participation": {
							"[Name] should aim to contribute more regularly to class discussions.",
							"[Name] would benefit from asking more questions and sharing ideas during lessons.",
						},
						"Organisation": {
							"[Name] needs to work on keeping notes and materials better organised.",
							"[Name] should focus on developing better organisational systems for schoolwork.",
						},
						"Homework Completion": {
							"[Name] should ensure all homework is completed on time to reinforce learning.",
							"[Name] needs to establish a regular homework routine to improve consistency.",
						},
						"Exam Technique": {
							"[Name] should practice exam techniques to better demonstrate their knowledge under timed conditions.",
							"[Name] would benefit from learning strategies for managing time effectively during assessments.",
						},
					},
				},
			},
			{ID: "newline-1", Type: model.SectionNewLine, Name: "Paragraph Break", Data: &model.NewLineData{}},
			{ID: "optional-1", Type: model.SectionOptionalComment, Name: "Additional Comments", Data: &model.OptionalCommentData{}},
		},
	}
}
