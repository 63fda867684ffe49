package views

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/reportwriter/internal/i18n"
	"github.com/pavelanni/reportwriter/internal/model"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return sb.String()
}

func TestClassStatusPageEscapesNames(t *testing.T) {
	st := &model.ClassStatus{
		Class:    model.Class{ID: "c1", Name: "<b>Year 10</b>"},
		Template: model.Template{ID: "t1", Name: "Autumn & Spring"},
		Missing:  []model.Student{{ID: "s1", FirstName: "Liam", LastName: `O"Brien<script>`}},
	}
	got := render(t, context.Background(), ClassStatusPage(st))

	for _, want := range []string{
		"<h2>&lt;b&gt;Year 10&lt;/b&gt;: Autumn &amp; Spring</h2>",
		"<li>Liam O&#34;Brien&lt;script&gt;</li>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("page missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<b>Year 10") || strings.Contains(got, "<script>") {
		t.Errorf("unescaped user text in page:\n%s", got)
	}
	if strings.Contains(got, "Every student has a report.") {
		t.Errorf("page claims every report is written:\n%s", got)
	}
}

func TestIndexPageLinksUseBasePath(t *testing.T) {
	ctx := model.ContextWithBasePath(context.Background(), "/reports")
	templates := []model.Template{{ID: "t 1", Name: "Autumn"}}
	classes := []model.Class{{ID: "c/1", Name: "10A"}}
	got := render(t, ctx, IndexPage(templates, classes))

	for _, want := range []string{
		`href="/reports/"`,
		`href="/reports/api/templates/t%201/export"`,
		`href="/reports/api/templates/t%201/export?format=yaml"`,
		`href="/reports/classes/c%2F1/status/t%201"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("index page missing %s:\n%s", want, got)
		}
	}
}

func TestLayoutSignedInUser(t *testing.T) {
	tests := []struct {
		name       string
		user       *model.User
		wantLogout bool
	}{
		{"anonymous", nil, false},
		{"signed in", &model.User{ID: 1, Username: "alice", DisplayName: "Alice <Admin>"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := model.ContextWithCSRFToken(context.Background(), "tok")
			if tt.user != nil {
				ctx = model.ContextWithUser(ctx, tt.user)
			}
			got := render(t, ctx, IndexPage(nil, nil))
			if has := strings.Contains(got, `action="/logout"`); has != tt.wantLogout {
				t.Errorf("logout form present = %v, want %v:\n%s", has, tt.wantLogout, got)
			}
			if tt.wantLogout {
				for _, want := range []string{
					`<span class="muted">Alice &lt;Admin&gt;</span>`,
					`<input type="hidden" name="csrf_token" value="tok">`,
				} {
					if !strings.Contains(got, want) {
						t.Errorf("header missing %s:\n%s", want, got)
					}
				}
			}
		})
	}
}

func TestAdminUsersPage(t *testing.T) {
	users := []model.User{
		{ID: 7, Username: "bob", DisplayName: "Bob", Role: model.UserRoleTeacher, Active: false},
	}
	got := render(t, context.Background(), AdminUsersPage(users, "Created bob."))
	for _, want := range []string{
		`<p class="ok">Created bob.</p>`,
		`action="/admin/users/7/toggle"`,
		`<option value="teacher">`,
		`<option value="admin">`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("users page missing %s:\n%s", want, got)
		}
	}
}
