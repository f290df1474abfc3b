package middleware

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/upb/publish-guard/internal/i18n"
)

// LocaleQueryParam selects the message language explicitly
const LocaleQueryParam = "lang"

// Locale resolves the language of user facing messages: the lang query
// parameter first, then Accept-Language, then fallback
func Locale(fallback language.Tag) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := ResolveLocale(r, fallback)
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), tag)))
		})
	}
}

// ResolveLocale picks the supported tag for a request
func ResolveLocale(r *http.Request, fallback language.Tag) language.Tag {
	if tag, ok := i18n.ParseTag(r.URL.Query().Get(LocaleQueryParam)); ok {
		return tag
	}

	if header := r.Header.Get("Accept-Language"); header != "" {
		if preferred, _, err := language.ParseAcceptLanguage(header); err == nil && len(preferred) > 0 {
			if tag, ok := matchSupported(preferred); ok {
				return tag
			}
		}
	}

	if fallback == (language.Tag{}) {
		return i18n.DefaultTag()
	}
	return fallback
}

func matchSupported(preferred []language.Tag) (language.Tag, bool) {
	for _, p := range preferred {
		if tag, ok := i18n.ParseTag(p.String()); ok {
			return tag, true
		}
	}
	return language.Tag{}, false
}
