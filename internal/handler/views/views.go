// Package views renders the server-side HTML pages. The *_templ.go files
// are generated from the .templ sources by templ generate.
package views

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	appI18n "github.com/pavelanni/reportwriter/internal/i18n"
	"github.com/pavelanni/reportwriter/internal/model"
)

// link prefixes an absolute path with the deployment base path.
func link(ctx context.Context, p string) string {
	return model.BasePathFromContext(ctx) + p
}

func templateExportPath(id, format string) string {
	p := "/api/templates/" + url.PathEscape(id) + "/export"
	if format != "" {
		p += "?" + url.Values{"format": {format}}.Encode()
	}
	return p
}

func classStatusPath(classID, templateID string) string {
	return "/classes/" + url.PathEscape(classID) + "/status/" + url.PathEscape(templateID)
}

// classReportsPath is the combined plain-text download for a class.
func classReportsPath(classID, templateID string) string {
	return "/api/classes/" + url.PathEscape(classID) + "/reports.txt?" + url.Values{"template": {templateID}}.Encode()
}

func classStatusTitle(ctx context.Context, st *model.ClassStatus) string {
	return appI18n.Td(ctx, "ClassStatusTitle", map[string]any{
		"Class":    st.Class.Name,
		"Template": st.Template.Name,
	})
}

func updatedAgo(ctx context.Context, t time.Time) string {
	return appI18n.Td(ctx, "UpdatedAgo", map[string]any{"When": humanize.Time(t)})
}

func roleLabel(ctx context.Context, role model.UserRole) string {
	if role == model.UserRoleAdmin {
		return appI18n.T(ctx, "RoleAdmin")
	}
	return appI18n.T(ctx, "RoleTeacher")
}

func userStatus(ctx context.Context, u model.User) string {
	if u.Active {
		return appI18n.T(ctx, "Active")
	}
	return appI18n.T(ctx, "Disabled")
}

func userIDPath(id int64) string {
	return strconv.FormatInt(id, 10)
}
