package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/reportwriter/internal/model"
	"github.com/pavelanni/reportwriter/internal/transfer"
)

// maxImportBytes bounds uploaded template files.
const maxImportBytes = 10 << 20

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates()
	if err != nil {
		writeError(w, err)
		return
	}
	if templates == nil {
		templates = []model.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.store.GetTemplate(chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl model.Template
	if err := readJSON(w, r, &tmpl); err != nil {
		badRequest(w, err)
		return
	}
	tmpl.ID = ""
	if err := tmpl.Validate(); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.store.SaveTemplate(&tmpl); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("created template", "id", tmpl.ID, "name", tmpl.Name)
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	if _, err := h.store.GetTemplate(id); err != nil {
		writeError(w, err)
		return
	}
	var tmpl model.Template
	if err := readJSON(w, r, &tmpl); err != nil {
		badRequest(w, err)
		return
	}
	tmpl.ID = id
	if err := tmpl.Validate(); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.store.SaveTemplate(&tmpl); err != nil {
		writeError(w, err)
		return
	}
	h.closeWriters(func(k writerKey) bool { return k.templateID == id })
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	if err := h.store.DeleteTemplate(id); err != nil {
		writeError(w, err)
		return
	}
	h.closeWriters(func(k writerKey) bool { return k.templateID == id })
	slog.Info("deleted template", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.store.GetTemplate(chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	dup, err := transfer.Duplicate(tmpl)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.SaveTemplate(dup); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("duplicated template", "from", tmpl.ID, "id", dup.ID)
	writeJSON(w, http.StatusCreated, dup)
}

func (h *Handler) handleExportTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.store.GetTemplate(chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	format := transfer.FormatJSON
	contentType := "application/json"
	fileName := transfer.ExportFileName(tmpl)
	if strings.EqualFold(r.URL.Query().Get("format"), string(transfer.FormatYAML)) {
		format = transfer.FormatYAML
		contentType = "application/yaml"
		fileName = strings.TrimSuffix(fileName, ".json") + ".yaml"
	}
	data, err := transfer.Encode(tmpl, format, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	setAttachment(w, fileName)
	_, _ = w.Write(data)
}

type importResponse struct {
	Template  *model.Template `json:"template"`
	Duplicate bool            `json:"duplicate"`
}

// handleImportTemplate accepts a multipart upload in field "file". The same
// file uploaded twice returns the template created the first time.
func (h *Handler) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		badRequest(w, errors.New("file too large"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, errors.New("no file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("read upload: %w", err))
		return
	}

	policy := transfer.PolicyCopy
	if p := r.FormValue("policy"); p != "" {
		policy = transfer.Policy(p)
	}
	if !policy.Valid() {
		badRequest(w, fmt.Errorf("unknown import policy %q", policy))
		return
	}

	hash := transfer.Hash(data)
	if prevID, err := h.store.ImportedTemplate(hash); err != nil {
		writeError(w, err)
		return
	} else if prevID != "" {
		if prev, err := h.store.GetTemplate(prevID); err == nil {
			slog.Info("template file already imported", "filename", header.Filename, "id", prevID)
			writeJSON(w, http.StatusOK, importResponse{Template: prev, Duplicate: true})
			return
		}
	}

	env, err := transfer.Decode(data, transfer.FormatFor(header.Filename))
	if err != nil {
		badRequest(w, err)
		return
	}
	tmpl, err := transfer.Import(h.store, env, policy)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.MarkImported(hash, tmpl.ID); err != nil {
		slog.Error("failed to record import", "error", err)
	}
	slog.Info("imported template via upload", "filename", header.Filename, "id", tmpl.ID)
	writeJSON(w, http.StatusCreated, importResponse{Template: tmpl})
}

type addSectionRequest struct {
	Type model.SectionType `json:"type"`
	Name string            `json:"name"`
	Bank string            `json:"bank,omitempty"` // comment bank to prefill from
}

// handleAddSection appends a section to a template, optionally prefilled
// from a saved comment bank of the same type.
func (h *Handler) handleAddSection(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.store.GetTemplate(chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req addSectionRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	var sec model.Section
	if req.Bank != "" {
		bank, err := h.store.GetCommentBank(req.Type, req.Bank)
		if err != nil {
			writeError(w, err)
			return
		}
		sec, err = bank.NewSection(req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
	} else {
		sec, err = model.NewSection(req.Type, req.Name)
		if err != nil {
			badRequest(w, err)
			return
		}
	}

	tmpl.Sections = append(tmpl.Sections, sec)
	if err := h.store.SaveTemplate(tmpl); err != nil {
		writeError(w, err)
		return
	}
	h.closeWriters(func(k writerKey) bool { return k.templateID == tmpl.ID })
	writeJSON(w, http.StatusCreated, sec)
}
