package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/reportwriter/internal/llm"
	"github.com/pavelanni/reportwriter/internal/llm/prompts"
	"github.com/pavelanni/reportwriter/internal/store"
)

type suggestRequest struct {
	Key   string `json:"key"`
	Tone  string `json:"tone,omitempty"`
	Count int    `json:"count,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type suggestResponse struct {
	Comments []string `json:"comments"`
}

// handleSuggest asks the language model for new comments for one pool of a
// section. Nothing is stored: the author adds the ones they keep with a
// template update.
func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil || h.config.SuggestDisabled {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "comment suggestions are disabled"})
		return
	}
	tmpl, err := h.store.GetTemplate(chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	sectionID := chi.URLParam(r, "sectionID")
	sec := tmpl.Section(sectionID)
	if sec == nil {
		writeError(w, fmt.Errorf("section %s: %w", sectionID, store.ErrNotFound))
		return
	}

	var req suggestRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	tone := req.Tone
	if tone == "" {
		tone = h.config.SuggestTone
	}
	if !prompts.IsValidTone(tone) {
		badRequest(w, fmt.Errorf("unknown tone %q", tone))
		return
	}
	count := req.Count
	if count <= 0 {
		count = h.config.SuggestCount
	}

	comments, err := h.llm.SuggestComments(r.Context(), llm.SuggestRequest{
		Section: sec,
		Key:     req.Key,
		Tone:    prompts.Tone(tone),
		Count:   count,
		Notes:   req.Notes,
	})
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	if comments == nil {
		comments = []string{}
	}
	writeJSON(w, http.StatusOK, suggestResponse{Comments: comments})
}
