package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/reportwriter/internal/handler/views"
	"github.com/pavelanni/reportwriter/internal/llm"
	"github.com/pavelanni/reportwriter/internal/llm/prompts"
	"github.com/pavelanni/reportwriter/internal/model"
	"github.com/pavelanni/reportwriter/internal/report"
	"github.com/pavelanni/reportwriter/internal/store"
	"github.com/pavelanni/reportwriter/internal/transfer"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 4 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	llm    *llm.Client // nil when suggestions are disabled
	gen    *report.Generator
	config model.AppConfig

	mu      sync.Mutex
	writers map[writerKey]*writer
}

// New creates a new Handler. A nil generator uses the default random draw.
func New(s *store.Store, l *llm.Client, gen *report.Generator, cfg model.AppConfig) (*Handler, error) {
	if s == nil {
		return nil, errors.New("store is required")
	}
	if gen == nil {
		gen = report.NewGenerator()
	}
	if l != nil {
		if err := prompts.Load(prompts.FS); err != nil {
			return nil, fmt.Errorf("load prompts: %w", err)
		}
	}
	return &Handler{
		store:   s,
		llm:     l,
		gen:     gen,
		config:  cfg,
		writers: make(map[writerKey]*writer),
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.csrfMiddleware)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))

		r.Post("/logout", h.handleLogout)
		r.Get("/", h.handleIndex)
		r.Get("/classes/{classID}/status/{templateID}", h.handleClassStatus)

		r.Route("/api", func(r chi.Router) {
			r.Get("/templates", h.handleListTemplates)
			r.Post("/templates", h.handleCreateTemplate)
			r.Post("/templates/import", h.handleImportTemplate)
			r.Get("/templates/{templateID}", h.handleGetTemplate)
			r.Put("/templates/{templateID}", h.handleUpdateTemplate)
			r.Delete("/templates/{templateID}", h.handleDeleteTemplate)
			r.Post("/templates/{templateID}/duplicate", h.handleDuplicateTemplate)
			r.Get("/templates/{templateID}/export", h.handleExportTemplate)
			r.Post("/templates/{templateID}/sections", h.handleAddSection)
			r.Post("/templates/{templateID}/sections/{sectionID}/suggest", h.handleSuggest)

			r.Get("/classes", h.handleListClasses)
			r.Post("/classes", h.handleCreateClass)
			r.Get("/classes/{classID}", h.handleGetClass)
			r.Put("/classes/{classID}", h.handleUpdateClass)
			r.Delete("/classes/{classID}", h.handleDeleteClass)
			r.Get("/classes/{classID}/reports.txt", h.handleClassReports)

			r.Get("/banks", h.handleListBanks)
			r.Post("/banks", h.handleSaveBank)
			r.Delete("/banks/{type}/{name}", h.handleDeleteBank)

			r.Route("/write/{classID}/{templateID}", func(r chi.Router) {
				r.Post("/", h.handleOpenWriter)
				r.Delete("/", h.handleCloseWriter)
				r.Get("/preview", h.handlePreview)
				r.Patch("/sections/{sectionID}", h.handleUpdateSection)
				r.Post("/save", h.handleSaveReport)
				r.Post("/navigate/{index}", h.handleNavigate)
				r.Put("/content", h.handleSetContent)
				r.Get("/download", h.handleDownload)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/admin/users", h.handleAdminUsersPage)
			r.Post("/admin/users", h.handleCreateUser)
			r.Post("/admin/users/{userID}/toggle", h.handleToggleUserActive)
		})
	})
}

// BasePathMiddleware makes the configured base path available to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// path prefixes an absolute application path with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

// cookiePath scopes cookies to the base path.
func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	classes, err := h.store.ListClasses()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.IndexPage(templates, classes).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleClassStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.ClassStatus(chi.URLParam(r, "classID"), chi.URLParam(r, "templateID"))
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ClassStatusPage(st).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, report.ErrUnsavedChanges):
		return http.StatusConflict
	case errors.Is(err, transfer.ErrInvalidTemplate),
		errors.Is(err, report.ErrUnknownSection),
		errors.Is(err, report.ErrNoStudents),
		errors.Is(err, report.ErrStudentIndex),
		errors.Is(err, model.ErrTemplateName),
		errors.Is(err, model.ErrTemplateEmpty),
		errors.Is(err, model.ErrInvalidPatch),
		errors.Is(err, llm.ErrNoPool),
		errors.As(err, &verrs):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// setAttachment marks the response as a download named fileName.
func setAttachment(w http.ResponseWriter, fileName string) {
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError replies with a JSON error body and a status derived from err.
func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// badRequest replies 400 regardless of the error's kind.
func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
