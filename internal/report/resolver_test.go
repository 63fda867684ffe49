package report

import (
	"testing"

	"github.com/pavelanni/reportwriter/internal/model"
)

func TestActive(t *testing.T) {
	tests := []struct {
		name    string
		typ     model.SectionType
		trigger string
		want    bool
	}{
		{"empty", model.SectionRatedComment, "", false},
		{"blank", model.SectionRatedComment, "  ", false},
		{"no comment", model.SectionRatedComment, model.NoComment, false},
		{"no comment assessment", model.SectionAssessmentComment, model.NoComment, false},
		{"not applicable assessment", model.SectionAssessmentComment, model.NotApplicable, false},
		{"not applicable rating", model.SectionRatedComment, model.NotApplicable, true},
		{"not applicable heading", model.SectionNextSteps, model.NotApplicable, true},
		{"rating", model.SectionRatedComment, "good", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Active(tt.typ, tt.trigger); got != tt.want {
				t.Errorf("Active(%s, %q) = %v, want %v", tt.typ, tt.trigger, got, tt.want)
			}
		})
	}
}

func TestResolveLocksComment(t *testing.T) {
	r := NewResolver(drawSeq(1, 2, 0))
	pool := []string{"a", "b", "c"}
	st := &model.RatedCommentState{Rating: "good"}

	if got := r.Resolve(st, pool); got != "b" {
		t.Fatalf("expected first draw b, got %q", got)
	}
	if st.SelectedComment != "b" || st.SelectedCommentIndex != 1 || st.LastRating != "good" {
		t.Errorf("unexpected lock %+v", st)
	}

	for i := 0; i < 5; i++ {
		if got := r.Resolve(st, pool); got != "b" {
			t.Fatalf("resolve %d: expected locked b, got %q", i, got)
		}
	}
}

func TestResolveTriggerChange(t *testing.T) {
	r := NewResolver(drawSeq(0, 1))
	st := &model.RatedCommentState{Rating: "good"}
	r.Resolve(st, []string{"good one", "good two"})

	st.Rating = "excellent"
	excellent := []string{"great one", "great two"}
	got := r.Resolve(st, excellent)
	if got != "great two" {
		t.Errorf("expected redraw from excellent pool, got %q", got)
	}
	if st.LastRating != "excellent" {
		t.Errorf("expected last rating excellent, got %q", st.LastRating)
	}
}

func TestResolveSentinelClears(t *testing.T) {
	r := NewResolver(firstDraw)
	st := &model.AssessmentCommentState{Performance: "good"}
	r.Resolve(st, []string{"x"})

	for _, sentinel := range []string{model.NoComment, model.NotApplicable, ""} {
		st.Performance = sentinel
		if got := r.Resolve(st, []string{"x"}); got != "" {
			t.Errorf("sentinel %q: expected no comment, got %q", sentinel, got)
		}
		if st.Selection().Resolved() {
			t.Errorf("sentinel %q: expected cleared selection, got %+v", sentinel, st.Selection())
		}
		st.Performance = "good"
		r.Resolve(st, []string{"x"})
	}
}

func TestResolveNotApplicableRating(t *testing.T) {
	r := NewResolver(firstDraw)
	st := &model.RatedCommentState{Rating: model.NotApplicable}
	if got := r.Resolve(st, []string{"x"}); got != "x" {
		t.Errorf("a rating key named not-applicable should draw from its pool, got %q", got)
	}
}

func TestResolveEmptyPool(t *testing.T) {
	r := NewResolver(firstDraw)
	st := &model.NextStepsState{FocusArea: "Reading"}

	if got := r.Resolve(st, nil); got != "" {
		t.Errorf("expected no comment for nil pool, got %q", got)
	}
	if got := r.Resolve(st, []string{"", "  "}); got != "" {
		t.Errorf("expected no comment for blank pool, got %q", got)
	}
	if st.Selection().Resolved() {
		t.Errorf("expected unresolved, got %+v", st.Selection())
	}
}

func TestResolveSkipsBlankEntries(t *testing.T) {
	r := NewResolver(firstDraw)
	st := &model.PersonalisedCommentState{SelectedHeading: "Sport"}

	if got := r.Resolve(st, []string{"", "only"}); got != "only" {
		t.Fatalf("expected only, got %q", got)
	}
	if st.SelectedCommentIndex != 1 {
		t.Errorf("expected pool index 1, got %d", st.SelectedCommentIndex)
	}
}

func TestResolveAdoptsLegacyLock(t *testing.T) {
	draws := 0
	r := NewResolver(func(n int) int { draws++; return 0 })
	pool := []string{"first", "second"}

	st := &model.RatedCommentState{Rating: "good", SelectedComment: "second", SelectedCommentIndex: 1}
	if got := r.Resolve(st, pool); got != "second" {
		t.Errorf("expected legacy comment kept, got %q", got)
	}
	if st.LastRating != "good" {
		t.Errorf("expected trigger recorded, got %q", st.LastRating)
	}

	stale := &model.RatedCommentState{Rating: "good", SelectedComment: "gone"}
	if got := r.Resolve(stale, pool); got != "first" {
		t.Errorf("expected redraw for stale comment, got %q", got)
	}
	if draws != 1 {
		t.Errorf("expected 1 draw, got %d", draws)
	}
}
