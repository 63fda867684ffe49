package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/reportwriter/internal/model"
	"github.com/pavelanni/reportwriter/internal/report"
)

func (h *Handler) handleListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.store.ListClasses()
	if err != nil {
		writeError(w, err)
		return
	}
	if classes == nil {
		classes = []model.Class{}
	}
	writeJSON(w, http.StatusOK, classes)
}

func (h *Handler) handleGetClass(w http.ResponseWriter, r *http.Request) {
	class, err := h.store.GetClass(chi.URLParam(r, "classID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (h *Handler) handleCreateClass(w http.ResponseWriter, r *http.Request) {
	var class model.Class
	if err := readJSON(w, r, &class); err != nil {
		badRequest(w, err)
		return
	}
	class.ID = ""
	if err := class.Validate(); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.store.SaveClass(&class); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("created class", "id", class.ID, "name", class.Name, "students", len(class.Students))
	writeJSON(w, http.StatusCreated, class)
}

func (h *Handler) handleUpdateClass(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "classID")
	if _, err := h.store.GetClass(id); err != nil {
		writeError(w, err)
		return
	}
	var class model.Class
	if err := readJSON(w, r, &class); err != nil {
		badRequest(w, err)
		return
	}
	class.ID = id
	if err := class.Validate(); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.store.SaveClass(&class); err != nil {
		writeError(w, err)
		return
	}
	h.closeWriters(func(k writerKey) bool { return k.classID == id })
	writeJSON(w, http.StatusOK, class)
}

func (h *Handler) handleDeleteClass(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "classID")
	if err := h.store.DeleteClass(id); err != nil {
		writeError(w, err)
		return
	}
	h.closeWriters(func(k writerKey) bool { return k.classID == id })
	slog.Info("deleted class", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleClassReports downloads every saved report of a class for the
// template given in the "template" query parameter.
func (h *Handler) handleClassReports(w http.ResponseWriter, r *http.Request) {
	templateID := r.URL.Query().Get("template")
	if templateID == "" {
		badRequest(w, fmt.Errorf("template query parameter is required"))
		return
	}
	if _, err := h.store.GetTemplate(templateID); err != nil {
		writeError(w, err)
		return
	}
	class, reports, err := h.store.ExportClassReports(chi.URLParam(r, "classID"), templateID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	setAttachment(w, report.ClassExportFileName(class))
	_, _ = w.Write([]byte(report.ClassExportText(reports)))
}

func (h *Handler) handleListBanks(w http.ResponseWriter, r *http.Request) {
	t := model.SectionType(r.URL.Query().Get("type"))
	if t != "" && !t.Valid() {
		badRequest(w, fmt.Errorf("unknown section type %q", t))
		return
	}
	banks, err := h.store.ListCommentBanks(t)
	if err != nil {
		writeError(w, err)
		return
	}
	if banks == nil {
		banks = []model.CommentBank{}
	}
	writeJSON(w, http.StatusOK, banks)
}

func (h *Handler) handleSaveBank(w http.ResponseWriter, r *http.Request) {
	var bank model.CommentBank
	if err := readJSON(w, r, &bank); err != nil {
		badRequest(w, err)
		return
	}
	if err := bank.Validate(); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.store.SaveCommentBank(bank); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *Handler) handleDeleteBank(w http.ResponseWriter, r *http.Request) {
	t := model.SectionType(chi.URLParam(r, "type"))
	if err := h.store.DeleteCommentBank(t, chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
