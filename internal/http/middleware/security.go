package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
//
// HSTS is only ever sent on HTTPS requests, and only when EnableHSTS is set.
// HSTSMaxAge <= 0 means 180 days.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	NoStore      bool     // Cache-Control: no-store (plus legacy Pragma/Expires)
	EnablePolicy bool     // Permissions-Policy and X-Permitted-Cross-Domain-Policies
	Expose       []string // merged into Access-Control-Expose-Headers
}

// SecurityHeaders adds API hardening headers to every response:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: DENY
//	Referrer-Policy: no-referrer
//
// Shared results are personal mail drafts, so the router enables NoStore.
// Expose lists response headers the browser client must be able to read,
// such as Retry-After on a blocked email gate. X-Request-ID is always added
// when the response carries one.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 180 * 24 * time.Hour
	}
	hsts := "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		expose := opt.Expose
		if h.Get("X-Request-ID") != "" {
			expose = append([]string{"X-Request-ID"}, expose...)
		}
		mergeExposed(h, expose)

		c.Next()
	}
}

// mergeExposed appends names to Access-Control-Expose-Headers, skipping any
// already listed (case-insensitive).
func mergeExposed(h http.Header, names []string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	seen := make(map[string]bool)
	for _, part := range strings.Split(cur, ",") {
		if p := strings.TrimSpace(part); p != "" {
			seen[strings.ToLower(p)] = true
		}
	}
	for _, n := range names {
		k := strings.ToLower(n)
		if n == "" || seen[k] {
			continue
		}
		seen[k] = true
		if cur == "" {
			cur = n
		} else {
			cur += ", " + n
		}
	}
	if cur != "" {
		h.Set(hdr, cur)
	}
}

// isHTTPS reports whether the request arrived over TLS, directly or through
// a proxy that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
