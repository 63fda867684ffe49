package report

import (
	"testing"

	"github.com/pavelanni/reportwriter/internal/model"
)

func strPtr(s string) *string { return &s }

func TestPlaceholdersApply(t *testing.T) {
	tests := []struct {
		name string
		ph   Placeholders
		text string
		want string
	}{
		{"name everywhere", Placeholders{Name: "Emma"}, "[Name] and [Name]", "Emma and Emma"},
		{"score", Placeholders{Name: "Emma", Score: strPtr("42/50")}, "[Name] scored [Score].", "Emma scored 42/50."},
		{"empty score stripped", Placeholders{Name: "Emma", Score: strPtr("")}, "[Name] scored  [Score] marks.", "Emma scored marks."},
		{"score not applicable", Placeholders{Name: "Emma"}, "[Name] [Score]", "Emma [Score]"},
		{"no token keeps spacing", Placeholders{Name: "Emma", Score: strPtr("")}, "[Name]  did well", "Emma  did well"},
		{"personal", Placeholders{Name: "Liam", Personal: strPtr("football")}, "[Name] loves [personalised information].", "Liam loves football."},
		{"personal not applicable", Placeholders{Name: "Liam"}, "[personalised information]", "[personalised information]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ph.Apply(tt.text); got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestScoreText(t *testing.T) {
	tests := []struct {
		name string
		st   model.AssessmentCommentState
		data *model.AssessmentCommentData
		want string
	}{
		{"out of", model.AssessmentCommentState{ScoreType: model.ScoreOutOf, Score: "42", MaxScore: "50"}, nil, "42/50"},
		{"default type", model.AssessmentCommentState{Score: "8", MaxScore: "10"}, nil, "8/10"},
		{"section max", model.AssessmentCommentState{Score: "8"}, &model.AssessmentCommentData{MaxScore: "20"}, "8/20"},
		{"state max wins", model.AssessmentCommentState{Score: "8", MaxScore: "10"}, &model.AssessmentCommentData{MaxScore: "20"}, "8/10"},
		{"bare score", model.AssessmentCommentState{Score: "8"}, nil, "8"},
		{"zero is a score", model.AssessmentCommentState{Score: "0", MaxScore: "10"}, nil, "0/10"},
		{"percentage", model.AssessmentCommentState{ScoreType: model.ScorePercentage, Percentage: "85"}, nil, "85%"},
		{"percentage typed with sign", model.AssessmentCommentState{ScoreType: model.ScorePercentage, Percentage: "85%"}, nil, "85%"},
		{"percentage missing", model.AssessmentCommentState{ScoreType: model.ScorePercentage, Score: "3"}, nil, ""},
		{"section percentage type", model.AssessmentCommentState{Percentage: "70"}, &model.AssessmentCommentData{ScoreType: model.ScorePercentage}, "70%"},
		{"nothing", model.AssessmentCommentState{}, nil, ""},
		{"unknown type", model.AssessmentCommentState{ScoreType: "grade", Score: "A"}, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreText(&tt.st, tt.data); got != tt.want {
				t.Errorf("ScoreText() = %q, want %q", got, tt.want)
			}
		})
	}
}
