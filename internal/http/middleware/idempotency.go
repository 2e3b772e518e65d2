// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for unsafe HTTP methods (POST by
// default). It validates the Idempotency-Key request header, optionally asks
// a lookup whether the key already completed, and annotates the context so
// downstream handlers can:
//   - read the normalized key (GetIdempotencyKey)
//   - detect replayed requests (IsReplay)
//   - bypass rate limiting when a replay is served
//
// Persistence stays behind the IdempotencyLookup function type; the handler
// (through the account service) decides how to serve a replay.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-accounts-backend/internal/errs"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set on responses that replay a stored result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored result exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the validated key stored by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found a completed request for the key.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Methods the validator applies to. Empty means POST only.
	Methods []string
}

// IdempotencyLookup reports whether a completed, unexpired result exists for
// key. Errors are treated as "not found" and never block the request.
type IdempotencyLookup func(ctx context.Context, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header (if present),
// stashes it in the context, and marks replays found by lookup.
//
//   - Header absent, or method not covered: no-op.
//   - Header invalid: 400 recorded for ErrorHandler.
//   - Lookup hit: replay and rate-bypass flags set.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	methods := map[string]struct{}{}
	for _, m := range opts.Methods {
		methods[strings.ToUpper(m)] = struct{}{}
	}
	if len(methods) == 0 {
		methods[http.MethodPost] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := methods[c.Request.Method]; !ok {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			Abort(c, errs.NewBadRequest("invalid Idempotency-Key", errs.FieldError{
				Field: HeaderIdempotencyKey,
				Error: "must match " + pat.String() + " and be at most " + strconv.Itoa(maxLen) + " bytes",
			}))
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if exists, err := lookup(c.Request.Context(), key, time.Now().UTC()); err == nil && exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}
