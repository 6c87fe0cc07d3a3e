package middleware

import (
	"net/http"
	"net/url"

	"formbridge/internal/pkg/errors"
)

// RefererMiddleware rejects client-API calls that do not originate from the
// add-in's own page. The embedded UI always sends a Referer; anything else is
// not a client of ours.
type RefererMiddleware struct {
	allowedOrigin string
}

func NewRefererMiddleware(appServerURL string) *RefererMiddleware {
	return &RefererMiddleware{allowedOrigin: origin(appServerURL)}
}

func (m *RefererMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		referer := r.Header.Get("Referer")
		if referer == "" {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "No Referer", nil)
			return
		}
		if m.allowedOrigin == "" || origin(referer) != m.allowedOrigin {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Invalid Referer", nil)
			return
		}
		next(w, r)
	}
}

func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
