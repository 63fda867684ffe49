package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/reportwriter/internal/model"
	"github.com/pavelanni/reportwriter/internal/report"
)

// errNoWriter is returned when a writer route is used before the session
// has been opened.
var errNoWriter = errors.New("no open writer session; POST to the writer route first")

// writerKey identifies one author's session over a class and template.
type writerKey struct {
	userID     int64
	classID    string
	templateID string
}

// writer serializes requests against one report session.
type writer struct {
	mu   sync.Mutex
	sess *report.Session
}

// writerView is the JSON shape returned by writer routes.
type writerView struct {
	ClassID    string                     `json:"classId"`
	TemplateID string                     `json:"templateId"`
	Index      int                        `json:"index"`
	Total      int                        `json:"total"`
	Student    model.Student              `json:"student"`
	Content    string                     `json:"content"`
	Words      int                        `json:"words"`
	Dirty      bool                       `json:"dirty"`
	Sections   map[string]json.RawMessage `json:"sections"`
}

func newWriterView(s *report.Session) (writerView, error) {
	content := s.Preview()
	sections, err := model.EncodeStates(s.Sheet().States())
	if err != nil {
		return writerView{}, err
	}
	return writerView{
		ClassID:    s.Class().ID,
		TemplateID: s.Template().ID,
		Index:      s.Index(),
		Total:      len(s.Class().Students),
		Student:    s.Student(),
		Content:    content,
		Words:      report.WordCount(content),
		Dirty:      s.Dirty(),
		Sections:   sections,
	}, nil
}

func keyFor(r *http.Request) writerKey {
	var userID int64
	if u := model.UserFromContext(r.Context()); u != nil {
		userID = u.ID
	}
	return writerKey{
		userID:     userID,
		classID:    chi.URLParam(r, "classID"),
		templateID: chi.URLParam(r, "templateID"),
	}
}

// closeWriters drops every open session whose key matches, so that edits to
// a template or roster are picked up on the next open.
func (h *Handler) closeWriters(match func(writerKey) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k := range h.writers {
		if match(k) {
			delete(h.writers, k)
		}
	}
}

// lookupWriter returns the caller's open session or replies 404.
func (h *Handler) lookupWriter(w http.ResponseWriter, r *http.Request) (*writer, bool) {
	h.mu.Lock()
	wr, ok := h.writers[keyFor(r)]
	h.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errNoWriter.Error()})
	}
	return wr, ok
}

// withWriter runs fn against the caller's open session and writes the
// resulting view.
func (h *Handler) withWriter(w http.ResponseWriter, r *http.Request, fn func(s *report.Session) error) {
	wr, ok := h.lookupWriter(w, r)
	if !ok {
		return
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()
	if fn != nil {
		if err := fn(wr.sess); err != nil {
			writeError(w, err)
			return
		}
	}
	view, err := newWriterView(wr.sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleOpenWriter starts a session on the first student of the class,
// replacing any session the author already had open for this pair.
func (h *Handler) handleOpenWriter(w http.ResponseWriter, r *http.Request) {
	key := keyFor(r)
	class, err := h.store.GetClass(key.classID)
	if err != nil {
		writeError(w, err)
		return
	}
	tmpl, err := h.store.GetTemplate(key.templateID)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := report.NewSession(h.gen, h.store, class, tmpl)
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := newWriterView(sess)
	if err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	h.writers[key] = &writer{sess: sess}
	h.mu.Unlock()

	slog.Debug("opened writer session", "user_id", key.userID, "class_id", key.classID, "template_id", key.templateID)
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleCloseWriter(w http.ResponseWriter, r *http.Request) {
	key := keyFor(r)
	h.closeWriters(func(k writerKey) bool { return k == key })
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	h.withWriter(w, r, nil)
}

// handleUpdateSection applies a JSON patch of section state fields and
// returns the regenerated preview.
func (h *Handler) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	patch, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, fmt.Errorf("read request body: %w", err))
		return
	}
	if !json.Valid(patch) {
		badRequest(w, errors.New("request body is not valid JSON"))
		return
	}
	sectionID := chi.URLParam(r, "sectionID")
	h.withWriter(w, r, func(s *report.Session) error {
		_, err := s.Update(sectionID, patch)
		return err
	})
}

func (h *Handler) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	h.withWriter(w, r, func(s *report.Session) error {
		rep, err := s.Save()
		if err != nil {
			return err
		}
		slog.Info("saved report", "report_id", rep.ID, "words", report.WordCount(rep.Content))
		return nil
	})
}

// handleNavigate moves to another student. Unsaved changes are only
// discarded with ?confirm=true; otherwise the reply is 409.
func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		badRequest(w, errors.New("invalid student index"))
		return
	}
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	h.withWriter(w, r, func(s *report.Session) error {
		return s.Navigate(index, func() bool { return confirm })
	})
}

type contentRequest struct {
	Content string `json:"content"`
}

// handleSetContent overwrites the saved text of the current student's
// report with a manual edit.
func (h *Handler) handleSetContent(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	wr, ok := h.lookupWriter(w, r)
	if !ok {
		return
	}
	wr.mu.Lock()
	defer wr.mu.Unlock()
	st := wr.sess.Student()
	saved, err := h.store.GetReport(st.ID, wr.sess.Template().ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if saved == nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "report for " + st.FullName() + " has not been saved yet"})
		return
	}
	rep, err := wr.sess.SetContent(req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleDownload serves the current student's report as a text file. A
// saved report is served as saved; pending edits are served as previewed.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	wr, ok := h.lookupWriter(w, r)
	if !ok {
		return
	}
	wr.mu.Lock()
	defer wr.mu.Unlock()

	st := wr.sess.Student()
	content := wr.sess.Preview()
	if !wr.sess.Dirty() {
		saved, err := h.store.GetReport(st.ID, wr.sess.Template().ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if saved != nil {
			content = saved.Content
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	setAttachment(w, report.ExportFileName(st))
	_, _ = w.Write([]byte(report.ExportText(st, content)))
}
