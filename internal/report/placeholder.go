package report

import (
	"strings"

	"github.com/pavelanni/reportwriter/internal/model"
)

// Placeholder tokens recognised in comment text.
const (
	TokenName     = "[Name]"
	TokenScore    = "[Score]"
	TokenPersonal = "[personalised information]"
)

// Placeholders holds the substitution values for one section. A nil Score
// or Personal means the token does not apply to the section and is left as
// written.
type Placeholders struct {
	Name     string
	Score    *string
	Personal *string
}

// Apply replaces [Name] first and then the section-specific tokens. An empty
// Score removes the [Score] token and collapses the whitespace left behind.
func (p Placeholders) Apply(text string) string {
	out := strings.ReplaceAll(text, TokenName, p.Name)
	if p.Score != nil && strings.Contains(out, TokenScore) {
		if *p.Score != "" {
			out = strings.ReplaceAll(out, TokenScore, *p.Score)
		} else {
			out = strings.Join(strings.Fields(strings.ReplaceAll(out, TokenScore, "")), " ")
		}
	}
	if p.Personal != nil {
		out = strings.ReplaceAll(out, TokenPersonal, *p.Personal)
	}
	return out
}

// ScoreText renders the score of an assessment section: "85%" for
// percentages, "42/50" when both score and maximum are known, the bare score
// when only it is known, and "" otherwise. The state's maximum wins over the
// section default.
func ScoreText(st *model.AssessmentCommentState, data *model.AssessmentCommentData) string {
	scoreType := st.ScoreType
	if scoreType == "" && data != nil {
		scoreType = data.ScoreType
	}

	switch scoreType {
	case model.ScorePercentage:
		if st.Percentage.IsZero() {
			return ""
		}
		return strings.TrimSuffix(strings.TrimSpace(st.Percentage.String()), "%") + "%"
	case model.ScoreOutOf, "":
		if st.Score.IsZero() {
			return ""
		}
		score := strings.TrimSpace(st.Score.String())
		maxScore := st.MaxScore
		if maxScore.IsZero() && data != nil {
			maxScore = data.MaxScore
		}
		if maxScore.IsZero() {
			return score
		}
		return score + "/" + strings.TrimSpace(maxScore.String())
	}
	return ""
}
