// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements ErrorHandler, the single place where errors become
// HTTP responses. Handlers and other middleware record errors with c.Error
// and abort; ErrorHandler classifies the last one with errs.From and writes
// the JSON envelope, unless a response was already written.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-accounts-backend/internal/errs"
)

// httpErrors counts error envelopes written, by stable error code.
var httpErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of error responses by error code.",
	},
	[]string{"code"},
)

func init() {
	prometheus.MustRegister(httpErrors)
}

// ErrorHandler returns a middleware that converts errors recorded on the Gin
// context into the standard error envelope.
//
// 5xx errors are logged with their cause through the request-scoped logger;
// the client only sees the generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		he := errs.From(last.Err)
		if he.Status >= http.StatusInternalServerError {
			LoggerFrom(c).Error().
				Err(last.Err).
				Int("status", he.Status).
				Str("code", he.Code).
				Msg("api error")
		}
		httpErrors.WithLabelValues(he.Code).Inc()
		c.JSON(he.Status, he.Response(GetRequestID(c)))
	}
}

// Abort records err on the context and stops the handler chain. It is the
// error-path counterpart of writing a response.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
