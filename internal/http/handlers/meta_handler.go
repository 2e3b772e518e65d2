package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// IndexResponse describes the service and where its collection lives.
type IndexResponse struct {
	Name    string `json:"name"    example:"Account REST API Service"`
	Version string `json:"version" example:"1.0"`
	URL     string `json:"url"     example:"http://localhost:8080/accounts"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status string `json:"status" example:"OK"`
}

// Index godoc
// @ID          index
// @Summary     Service index
// @Tags        Meta
// @Produce     json
// @Success     200  {object} handlers.IndexResponse
// @Router      / [get]
func (h *Handlers) Index(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme := "http"
		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			scheme = "https"
		}
		ok(c, http.StatusOK, IndexResponse{
			Name:    h.info.Name,
			Version: h.info.Version,
			URL:     scheme + "://" + c.Request.Host + collection,
		})
	}
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Meta
// @Produce     json
// @Success     200  {object} handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{Status: "OK"})
}
