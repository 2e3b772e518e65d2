// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RequireContentType, which rejects requests whose body
// media type is not one the route accepts with 415 Unsupported Media Type.
package middleware

import (
	"mime"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-accounts-backend/internal/errs"
)

// MIMEJSON is the media type accepted by JSON routes.
const MIMEJSON = "application/json"

// RequireContentType returns a middleware that only lets requests through when
// their Content-Type media type (parameters such as charset are ignored) is one
// of accepted. A missing or unparsable Content-Type is rejected as well.
func RequireContentType(accepted ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(accepted))
	for _, a := range accepted {
		allowed[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	list := strings.Join(accepted, ", ")

	return func(c *gin.Context) {
		mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err == nil {
			if _, ok := allowed[strings.ToLower(mt)]; ok {
				c.Next()
				return
			}
		}

		got := c.GetHeader("Content-Type")
		if got == "" {
			got = "none"
		}
		Abort(c, errs.NewUnsupportedMediaType("Content-Type must be "+list+", got "+got))
	}
}

// RequireJSON is RequireContentType(MIMEJSON).
func RequireJSON() gin.HandlerFunc { return RequireContentType(MIMEJSON) }
