// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, a hardening middleware that optionally
// redirects plain-HTTP traffic to HTTPS and attaches a conservative set of
// security headers suitable for a JSON API behind a reverse proxy.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultContentSecurityPolicy is sent when SecurityOptions leaves
// ContentSecurityPolicy empty.
const DefaultContentSecurityPolicy = "default-src 'self'; object-src 'none'"

// SecurityOptions configures SecurityHeaders.
//
// ForceHTTPS redirects requests that arrived over plain HTTP (no TLS and no
// X-Forwarded-Proto: https) to the same URL on https with 301. Tests turn it off.
//
// EnableHSTS emits Strict-Transport-Security on HTTPS requests only. HSTSMaxAge
// defaults to 180 days.
//
// ContentSecurityPolicy overrides DefaultContentSecurityPolicy; "-" disables it.
//
// NoStore adds Cache-Control: no-store (plus legacy Pragma/Expires).
//
// EnablePolicy sends Permissions-Policy and X-Permitted-Cross-Domain-Policies.
type SecurityOptions struct {
	ForceHTTPS            bool
	EnableHSTS            bool
	HSTSMaxAge            time.Duration
	ContentSecurityPolicy string
	NoStore               bool
	EnablePolicy          bool
}

// SecurityHeaders returns a Gin middleware that enforces HTTPS (when enabled)
// and adds security headers to each response.
//
// Always sets:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: SAMEORIGIN
//	Referrer-Policy: strict-origin-when-cross-origin
//	Content-Security-Policy: default-src 'self'; object-src 'none'
//
// If X-Request-ID is present it is exposed via Access-Control-Expose-Headers
// so browser clients can read it.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	csp := strings.TrimSpace(opt.ContentSecurityPolicy)
	if csp == "" {
		csp = DefaultContentSecurityPolicy
	}

	return func(c *gin.Context) {
		if opt.ForceHTTPS && !isHTTPS(c.Request) {
			c.Redirect(http.StatusMovedPermanently, httpsURL(c.Request))
			c.Abort()
			return
		}

		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if csp != "-" {
			h.Set("Content-Security-Policy", csp)
		}

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

		if rid := h.Get(requestIDHeader); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, requestIDHeader)
			} else if !strings.Contains(cur, requestIDHeader) {
				h.Set(hdr, cur+", "+requestIDHeader)
			}
		}

		c.Next()
	}
}

// isHTTPS reports whether the incoming request used HTTPS either directly
// (r.TLS != nil) or via a reverse proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// httpsURL rebuilds the request URL with the https scheme. X-Forwarded-Host
// wins over Host when a proxy set it.
func httpsURL(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return "https://" + host + r.URL.RequestURI()
}
