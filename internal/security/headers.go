package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers sets the response headers every API reply carries. Replies hold
// order totals and payment state, so nothing is cacheable or frameable.
type Headers struct {
	// HSTS enables Strict-Transport-Security with this max-age when the
	// request arrived over TLS, directly or through a proxy that set
	// X-Forwarded-Proto. Zero disables it.
	HSTS time.Duration
}

func (h Headers) Middleware(next http.Handler) http.Handler {
	hsts := ""
	if secs := int64(h.HSTS / time.Second); secs > 0 {
		hsts = "max-age=" + strconv.FormatInt(secs, 10) + "; includeSubDomains"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Cache-Control", "no-store")
		if hsts != "" && overTLS(r) {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func overTLS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
