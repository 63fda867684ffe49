package report

import (
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/pavelanni/reportwriter/internal/model"
)

// Resolver locks one randomly drawn comment per trigger value. A section is
// either unresolved or resolved(trigger, comment); a new draw happens only
// when the trigger moves to a different value.
type Resolver struct {
	draw func(n int) int
}

// NewResolver returns a resolver that draws with draw, or math/rand/v2 when
// draw is nil. draw must return a value in [0, n).
func NewResolver(draw func(n int) int) *Resolver {
	if draw == nil {
		draw = rand.IntN
	}
	return &Resolver{draw: draw}
}

// Active reports whether a trigger value selects a comment at all for a
// section of type t. "not-applicable" is a sentinel for assessments only.
func Active(t model.SectionType, trigger string) bool {
	trigger = strings.TrimSpace(trigger)
	switch trigger {
	case "", model.NoComment:
		return false
	case model.NotApplicable:
		return t != model.SectionAssessmentComment
	}
	return true
}

// Resolve returns the locked comment for the state's current trigger,
// drawing one from pool if the trigger changed since the last draw. It
// returns "" and clears the lock when the trigger is empty or a sentinel, or
// when the pool has nothing to draw.
func (r *Resolver) Resolve(st model.Lockable, pool []string) string {
	trigger := st.Trigger()
	sel := st.Selection()

	if !Active(st.SectionType(), trigger) {
		if sel.Resolved() || sel.Trigger != "" {
			st.SetSelection(model.Selection{})
		}
		return ""
	}

	if sel.Resolved() {
		if sel.Trigger == trigger {
			return sel.Comment
		}
		// Reports saved before the trigger was recorded keep their comment
		// as long as it still belongs to the current pool.
		if sel.Trigger == "" && containsComment(pool, sel.Comment) {
			sel.Trigger = trigger
			st.SetSelection(sel)
			return sel.Comment
		}
	}

	candidates := make([]int, 0, len(pool))
	for i, c := range pool {
		if strings.TrimSpace(c) != "" {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		st.SetSelection(model.Selection{})
		return ""
	}

	idx := candidates[r.draw(len(candidates))]
	st.SetSelection(model.Selection{Comment: pool[idx], Index: idx, Trigger: trigger})
	slog.Debug("drew comment", "section_type", st.SectionType(), "trigger", trigger, "index", idx)
	return pool[idx]
}

func containsComment(pool []string, comment string) bool {
	for _, c := range pool {
		if c == comment {
			return true
		}
	}
	return false
}
