package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "Report Writer" {
		t.Errorf("T(AppTitle) = %q, want 'Report Writer'", got)
	}

	got = T(ctx, "DownloadAll")
	if got != "Download all reports" {
		t.Errorf("T(DownloadAll) = %q, want 'Download all reports'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "AppTitle")
	if got != "Составитель отчётов" {
		t.Errorf("T(AppTitle) = %q, want 'Составитель отчётов'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	tests := []struct {
		lang  string
		count int
		want  string
	}{
		{"en", 1, "1 report written"},
		{"en", 5, "5 reports written"},
		{"ru", 1, "Написан 1 отчёт"},
		{"ru", 3, "Написано 3 отчёта"},
		{"ru", 6, "Написано 6 отчётов"},
	}
	for _, tt := range tests {
		ctx := initLang(t, tt.lang)
		if got := Tp(ctx, "ReportsWritten", tt.count); got != tt.want {
			t.Errorf("Tp(ReportsWritten, %d) [%s] = %q, want %q", tt.count, tt.lang, got, tt.want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ClassStatusTitle", map[string]any{"Class": "5B", "Template": "Autumn"})
	if got != "5B: Autumn" {
		t.Errorf("Td(ClassStatusTitle) = %q, want '5B: Autumn'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMatch(t *testing.T) {
	initLang(t, "en")
	tests := map[string]string{
		"ru-RU,ru;q=0.9,en;q=0.8": "ru",
		"de-DE":                   "en",
		"":                        "en",
		"en-GB":                   "en",
	}
	for accept, want := range tests {
		if got := Match(accept); got != want {
			t.Errorf("Match(%q) = %q, want %q", accept, got, want)
		}
	}
}

func TestMiddlewareNegotiates(t *testing.T) {
	initLang(t, "en")
	var got string
	h := Middleware("en", true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Logout")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Выйти" {
		t.Errorf("expected Russian from header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru")
	req.AddCookie(&http.Cookie{Name: LangCookie, Value: "en"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Log out" {
		t.Errorf("expected cookie to win, got %q", got)
	}

	fixed := Middleware("en", false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Logout")
	}))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru")
	fixed.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Log out" {
		t.Errorf("expected configured language, got %q", got)
	}
}

func TestDefaultLanguageOutsideRequest(t *testing.T) {
	initLang(t, "ru")
	if got := T(context.Background(), "AppTitle"); got != "Составитель отчётов" {
		t.Errorf("T without a localizer = %q, want the configured language", got)
	}
	if got := T(context.Background(), "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("missing message = %q, want its id", got)
	}
}
