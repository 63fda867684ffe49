package report

import (
	"log/slog"
	"strings"

	"github.com/pavelanni/reportwriter/internal/model"
)

const paragraphBreak = "\n\n"

// Generator turns a template plus per-section state into report text.
type Generator struct {
	resolver *Resolver
}

// Option configures a Generator.
type Option func(*Generator)

// WithDraw sets the function used for random comment draws.
func WithDraw(draw func(n int) int) Option {
	return func(g *Generator) {
		g.resolver = NewResolver(draw)
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{resolver: NewResolver(nil)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the document for one student. Sections contribute in
// template order; a section whose state sets exclude contributes nothing.
// Comments drawn for pool-bearing sections are locked into states, so
// calling Generate again with the same states yields the same text.
func (g *Generator) Generate(tmpl *model.Template, student model.Student, states model.StateMap) string {
	if tmpl == nil {
		return ""
	}
	var sb strings.Builder
	for i := range tmpl.Sections {
		sec := &tmpl.Sections[i]
		st := stateFor(sec, states)
		if st == nil || st.Excluded() {
			continue
		}
		part := g.contribution(sec, st, student)
		if part == paragraphBreak {
			// Drop the space the previous contributor left so paragraphs
			// don't end in whitespace.
			prev := strings.TrimRight(sb.String(), " ")
			sb.Reset()
			sb.WriteString(prev)
		}
		sb.WriteString(part)
	}
	return strings.TrimSpace(sb.String())
}

func (g *Generator) contribution(sec *model.Section, st model.SectionState, student model.Student) string {
	ph := Placeholders{Name: student.FirstName}

	switch s := st.(type) {
	case *model.RatedCommentState:
		comment := g.resolver.Resolve(s, sec.Pool(s.Rating))
		if !Active(sec.Type, s.Rating) {
			return ""
		}
		return join(ph, comment, s.AdditionalComment)

	case *model.StandardCommentState:
		text := strings.TrimSpace(s.Comment)
		if text == "" {
			if d, ok := sec.Data.(*model.StandardCommentData); ok {
				text = strings.TrimSpace(d.Content)
			}
		}
		return join(ph, text)

	case *model.AssessmentCommentState:
		comment := g.resolver.Resolve(s, sec.Pool(s.Performance))
		if !Active(sec.Type, s.Performance) {
			return ""
		}
		data, _ := sec.Data.(*model.AssessmentCommentData)
		score := ScoreText(s, data)
		ph.Score = &score
		return join(ph, comment, s.AdditionalComment)

	case *model.PersonalisedCommentState:
		comment := g.resolver.Resolve(s, sec.Pool(s.SelectedHeading))
		info := strings.TrimSpace(s.PersonalisedInfo)
		if !s.Included() || info == "" {
			return ""
		}
		ph.Personal = &info
		return join(ph, comment, s.AdditionalComment)

	case *model.NextStepsState:
		comment := g.resolver.Resolve(s, sec.Pool(s.Trigger()))
		if !s.Included() || !Active(sec.Type, s.Trigger()) {
			return ""
		}
		return join(ph, comment, s.Suggestion())

	case *model.OptionalCommentState:
		if !s.Included() {
			return ""
		}
		return join(ph, s.Text())

	case *model.NewLineState:
		return paragraphBreak
	}

	slog.Debug("skipping section with unsupported state", "section_id", sec.ID, "section_type", sec.Type)
	return ""
}

// join substitutes each non-blank piece and appends it with a trailing space.
func join(ph Placeholders, pieces ...string) string {
	var sb strings.Builder
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out := strings.TrimSpace(ph.Apply(p))
		if out == "" {
			continue
		}
		sb.WriteString(out)
		sb.WriteByte(' ')
	}
	return sb.String()
}

// stateFor returns the state recorded for a section, or fresh state when
// none is recorded or the recorded state belongs to another section type.
func stateFor(sec *model.Section, states model.StateMap) model.SectionState {
	if st, ok := states[sec.ID]; ok && st != nil {
		if st.SectionType() == sec.Type {
			return st
		}
		slog.Debug("ignoring state of mismatched type", "section_id", sec.ID, "want", sec.Type, "got", st.SectionType())
	}
	st, err := model.NewSectionState(sec.Type)
	if err != nil {
		slog.Debug("skipping section of unknown type", "section_id", sec.ID, "section_type", sec.Type)
		return nil
	}
	return st
}
