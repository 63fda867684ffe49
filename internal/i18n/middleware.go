package i18n

import "net/http"

// LangCookie overrides Accept-Language when set.
const LangCookie = "lang"

// Middleware injects a localizer into every request context. The language
// comes from the lang cookie, then Accept-Language, then the configured
// default when negotiate is false.
func Middleware(lang string, negotiate bool) func(http.Handler) http.Handler {
	fallback := NewLocalizer(lang)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := fallback
			if negotiate {
				accept := r.Header.Get("Accept-Language")
				if c, err := r.Cookie(LangCookie); err == nil && c.Value != "" {
					accept = c.Value
				}
				if accept != "" {
					loc = NewLocalizer(Match(accept), lang)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), loc)))
		})
	}
}
