// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by all endpoints. Successful
// responses are written directly; failures are recorded on the Gin context and
// rendered by middleware.ErrorHandler, so every error uses one envelope:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "status": 404,
//	  "error": "Not Found",
//	  "code": "not_found",
//	  "message": "account not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-accounts-backend/internal/http/middleware"
)

// fail records err for the error middleware and aborts the chain.
func fail(c *gin.Context, err error) { middleware.Abort(c, err) }

// Fail is the exported variant of fail(), used by the router fallbacks.
func Fail(c *gin.Context, err error) { fail(c, err) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
