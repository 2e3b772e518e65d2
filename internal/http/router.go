// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, error
// translation, metrics, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery → errors)
//   - Every failure, router fallbacks included, rendered by one error middleware
//   - All dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-accounts-backend/internal/config"
	"github.com/tbourn/go-accounts-backend/internal/docs"
	"github.com/tbourn/go-accounts-backend/internal/domain"
	"github.com/tbourn/go-accounts-backend/internal/errs"
	"github.com/tbourn/go-accounts-backend/internal/http/handlers"
	"github.com/tbourn/go-accounts-backend/internal/http/middleware"
	"github.com/tbourn/go-accounts-backend/internal/repo"
	"github.com/tbourn/go-accounts-backend/internal/services"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

// accountRepoShim adapts the repository free functions to the
// services.AccountRepo interface expected by the AccountService.
type accountRepoShim struct{}

func (accountRepoShim) CreateAccount(ctx context.Context, db *gorm.DB, a *domain.Account) (*domain.Account, error) {
	return repo.CreateAccount(ctx, db, a)
}

func (accountRepoShim) GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	return repo.GetAccount(ctx, db, id)
}

func (accountRepoShim) CountAccounts(ctx context.Context, db *gorm.DB, f repo.AccountFilter) (int64, error) {
	return repo.CountAccounts(ctx, db, f)
}

func (accountRepoShim) ListAccounts(ctx context.Context, db *gorm.DB, f repo.AccountFilter, offset, limit int) ([]domain.Account, error) {
	return repo.ListAccounts(ctx, db, f, offset, limit)
}

func (accountRepoShim) AccountsStats(ctx context.Context, db *gorm.DB, f repo.AccountFilter) (int64, *time.Time, error) {
	return repo.AccountsStats(ctx, db, f)
}

func (accountRepoShim) UpdateAccount(ctx context.Context, db *gorm.DB, a *domain.Account) error {
	return repo.UpdateAccount(ctx, db, a)
}

func (accountRepoShim) PatchAccount(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	return repo.PatchAccount(ctx, db, id, fields)
}

func (accountRepoShim) DeleteAccount(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	return repo.DeleteAccount(ctx, db, id)
}

func (accountRepoShim) PurgeAccounts(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.PurgeAccounts(ctx, db)
}

// idemRepoShim adapts the idempotency repository functions.
type idemRepoShim struct{}

func (idemRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, scope, key, now)
}

func (idemRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, scope, key, resourceID, status, ttl)
}

// NewAccountService builds the account service on top of the repository
// package, honouring the configured idempotency window.
func NewAccountService(db *gorm.DB, cfg config.Config) *services.AccountService {
	svc := services.NewAccountService(db, accountRepoShim{}, idemRepoShim{})
	if cfg.IdempotencyTTL > 0 {
		svc.IdempotencyTTL = cfg.IdempotencyTTL
	}
	return svc
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: observability, error translation, idempotency and rate limiting,
// CORS and security headers, meta endpoints, and the accounts resource under
// cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. ErrorHandler: render recorded errors as JSON envelopes
//  6. Body size limiter and gzip
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	// Unknown methods on known paths become 405 instead of 404.
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Error envelopes for everything below
	r.Use(middleware.ErrorHandler())

	// 6) Global body size limit and response compression
	r.Use(limitBody(MaxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, services.IdempotencyScopeCreate, key, now)
			return rec != nil, err
		},
	))

	// 9) Token-bucket rate limiter per IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	r.Use(corsMiddleware(cfg.CORS)...)

	// Security headers (HTTPS redirect, CSP; HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		ForceHTTPS:            cfg.Security.ForceHTTPS,
		EnableHSTS:            cfg.Security.EnableHSTS,
		HSTSMaxAge:            cfg.Security.HSTSMaxAge,
		ContentSecurityPolicy: cfg.Security.ContentSecurityPolicy,
		EnablePolicy:          true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, errs.NewNotFound("the requested URL was not found on the server"))
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, errs.NewMethodNotAllowed("the method is not allowed for the requested URL"))
	})

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.Version = cfg.Version
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: handlers ← services ← repo/db
	h := handlers.New(NewAccountService(db, cfg), handlers.Info{Version: cfg.Version})

	// Meta
	collection := path.Join(cfg.APIBasePath, "accounts")
	r.GET("/", h.Index(collection))
	r.GET("/health", h.Health)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		jsonOnly := middleware.RequireJSON()

		api.POST("/accounts", jsonOnly, h.CreateAccount)
		api.GET("/accounts", h.ListAccounts)
		api.GET("/accounts/:id", h.GetAccount)
		api.PUT("/accounts/:id", jsonOnly, h.UpdateAccount)
		api.PATCH("/accounts/:id", jsonOnly, h.PatchAccount)
		api.DELETE("/accounts/:id", h.DeleteAccount)
	}
}

// corsMiddleware returns the CORS handlers for the configured origins.
func corsMiddleware(cfg config.CORSConfig) []gin.HandlerFunc {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "Location", "ETag", middleware.HeaderIdempotencyReplayed}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

	if len(cfg.AllowedOrigins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     allowHeaders,
				ExposeHeaders:    exposeHeaders,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	return []gin.HandlerFunc{cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     methods,
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    exposeHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to fail with *http.MaxBytesError (413).
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
