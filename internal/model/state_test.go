package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestApplyPatch(t *testing.T) {
	st := &RatedCommentState{Rating: "good", AdditionalComment: "Keep going."}

	got, err := ApplyPatch(st, json.RawMessage(`{"rating":"excellent","additionalComment":null}`))
	if err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	rated, ok := got.(*RatedCommentState)
	if !ok {
		t.Fatalf("ApplyPatch returned %T", got)
	}
	if rated.Rating != "excellent" || rated.AdditionalComment != "" {
		t.Errorf("merged state = %+v", rated)
	}
	if st.Rating != "good" {
		t.Error("ApplyPatch modified its input")
	}
}

func TestApplyPatchRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{"wrong field type", `{"rating":5}`},
		{"array", `[1,2]`},
		{"string", `"x"`},
		{"bool field as string", `{"exclude":"yes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyPatch(&RatedCommentState{}, json.RawMessage(tt.patch))
			if !errors.Is(err, ErrInvalidPatch) {
				t.Errorf("expected ErrInvalidPatch, got %v", err)
			}
		})
	}
}
