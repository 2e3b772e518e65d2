// Account HTTP handlers.
//
// This file exposes REST endpoints for the account resource:
//   - POST   /accounts        (create, Idempotency-Key aware)
//   - GET    /accounts        (list, paginated, name filter, ETag support)
//   - GET    /accounts/{id}   (read)
//   - PUT    /accounts/{id}   (full update)
//   - PATCH  /accounts/{id}   (partial update)
//   - DELETE /accounts/{id}   (delete, idempotent)
//
// Handlers are transport-thin: they bind and validate input, call the account
// service, and translate results into HTTP responses. Errors are recorded on
// the context and rendered by middleware.ErrorHandler.
package handlers

import (
	"context"
	"fmt"
	"hash/crc32"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-accounts-backend/internal/domain"
	"github.com/tbourn/go-accounts-backend/internal/errs"
	"github.com/tbourn/go-accounts-backend/internal/http/middleware"
	"github.com/tbourn/go-accounts-backend/internal/services"
	"github.com/tbourn/go-accounts-backend/internal/utils"
	"github.com/tbourn/go-accounts-backend/internal/validation"
)

// dateLayout is the wire format of date_joined.
const dateLayout = "2006-01-02"

// AccountService defines the account operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccountService interface {
	// CreateIdempotent creates an account, replaying the earlier result when
	// key was already used. An empty key always creates.
	CreateIdempotent(ctx context.Context, key string, in services.AccountInput) (*domain.Account, bool, error)
	Get(ctx context.Context, id string) (*domain.Account, error)
	ListPage(ctx context.Context, name string, page, pageSize int) ([]domain.Account, int64, error)
	// Stats returns the match count and latest update time, used for ETags.
	Stats(ctx context.Context, name string) (int64, *time.Time, error)
	Update(ctx context.Context, id string, in services.AccountInput) (*domain.Account, error)
	Patch(ctx context.Context, id string, p services.AccountPatch) (*domain.Account, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Info describes the running service for the index document.
type Info struct {
	Name    string
	Version string
}

// Handlers groups the HTTP endpoints of the service.
type Handlers struct {
	accounts AccountService
	info     Info
}

// New constructs a Handlers instance bound to the given service.
func New(accounts AccountService, info Info) *Handlers {
	if info.Name == "" {
		info.Name = "Account REST API Service"
	}
	return &Handlers{accounts: accounts, info: info}
}

//
// DTOs
//

// AccountRequest is the JSON payload for POST /accounts and PUT /accounts/{id}.
type AccountRequest struct {
	Name        string  `json:"name"         binding:"required,min=1,max=64"  example:"Ada Lovelace"`
	Email       string  `json:"email"        binding:"required,email,max=64" example:"ada@example.com"`
	Address     string  `json:"address"      binding:"required,max=256"      example:"12 St James's Square, London"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=32"      example:"+44 20 7946 0000"`
	// DateJoined defaults to today (create) or stays unchanged (update).
	DateJoined *string `json:"date_joined" binding:"omitempty,datetime=2006-01-02" example:"2024-05-01"`
}

// PatchAccountRequest is the JSON payload for PATCH /accounts/{id}.
// Omitted fields are left unchanged; an empty phone_number clears it.
type PatchAccountRequest struct {
	Name        *string `json:"name"         binding:"omitempty,min=1,max=64"`
	Email       *string `json:"email"        binding:"omitempty,email,max=64"`
	Address     *string `json:"address"      binding:"omitempty,min=1,max=256"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=32"`
	DateJoined  *string `json:"date_joined"  binding:"omitempty,datetime=2006-01-02"`
}

// AccountResponse is the public representation of an account.
type AccountResponse struct {
	ID          string    `json:"id"           example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Name        string    `json:"name"         example:"Ada Lovelace"`
	Email       string    `json:"email"        example:"ada@example.com"`
	Address     string    `json:"address"      example:"12 St James's Square, London"`
	PhoneNumber *string   `json:"phone_number" example:"+44 20 7946 0000"`
	DateJoined  string    `json:"date_joined"  example:"2024-05-01"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListAccountsResponse wraps a page of accounts and pagination information.
type ListAccountsResponse struct {
	Accounts   []AccountResponse `json:"accounts"`
	Pagination Pagination        `json:"pagination"`
}

//
// Helpers
//

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Address:     a.Address,
		PhoneNumber: a.PhoneNumber,
		DateJoined:  a.DateJoined.UTC().Format(dateLayout),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), 1)
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	return utils.ClampPage(page, pageSize, defaultPageSize, maxPageSize)
}

// accountID reads and validates the :id path parameter.
func accountID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, errs.NewBadRequest("account id must be a UUID", errs.FieldError{Field: "id", Error: "must be a UUID"}))
		return "", false
	}
	return id, true
}

// parseDate converts an optional YYYY-MM-DD string. Binding has already
// checked the format.
func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, errs.NewBadRequest("validation failed", errs.FieldError{Field: field, Error: "must be a date formatted as " + dateLayout})
	}
	return &t, nil
}

func (r AccountRequest) input() (services.AccountInput, error) {
	dj, err := parseDate("date_joined", r.DateJoined)
	if err != nil {
		return services.AccountInput{}, err
	}
	return services.AccountInput{
		Name:        r.Name,
		Email:       r.Email,
		Address:     r.Address,
		PhoneNumber: r.PhoneNumber,
		DateJoined:  dj,
	}, nil
}

func (r PatchAccountRequest) patch() (services.AccountPatch, error) {
	dj, err := parseDate("date_joined", r.DateJoined)
	if err != nil {
		return services.AccountPatch{}, err
	}
	return services.AccountPatch{
		Name:        r.Name,
		Email:       r.Email,
		Address:     r.Address,
		PhoneNumber: r.PhoneNumber,
		DateJoined:  dj,
	}, nil
}

// listETag derives a weak ETag from everything the list body depends on.
func listETag(name string, page, pageSize int, count int64, maxTS *time.Time) string {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	return fmt.Sprintf(`W/"accounts:%08x:%d:%d:%d:%d"`, crc32.ChecksumIEEE([]byte(name)), page, pageSize, count, ts)
}

// etagMatches reports whether an If-None-Match header matches etag, honouring
// lists and the "*" wildcard.
func etagMatches(inm, etag string) bool {
	for _, part := range strings.Split(inm, ",") {
		part = strings.TrimSpace(part)
		if part == "*" || part == etag {
			return true
		}
	}
	return false
}

//
// Handlers
//

// CreateAccount godoc
// @ID          createAccount
// @Summary     Create an account
// @Description Creates an account. Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.AccountRequest  true  "Account payload"
//
// @Success     201  {object}  handlers.AccountResponse
// @Header      201  {string}  Location              "URL of the new account"
// @Header      201  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  errs.Response  "Validation error"
// @Failure     409  {object}  errs.Response  "Idempotency key cannot be replayed"
// @Failure     415  {object}  errs.Response  "Content-Type is not application/json"
// @Failure     500  {object}  errs.Response  "Internal error"
// @Router      /accounts [post]
func (h *Handlers) CreateAccount(c *gin.Context) {
	var req AccountRequest
	if err := validation.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		fail(c, err)
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	a, replayed, err := h.accounts.CreateIdempotent(c.Request.Context(), key, in)
	if err != nil {
		fail(c, serviceError(err))
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	c.Header("Location", strings.TrimSuffix(c.FullPath(), "/")+"/"+a.ID)
	ok(c, http.StatusCreated, toAccountResponse(a))
}

// ListAccounts godoc
// @ID          listAccounts
// @Summary     List accounts (paginated)
// @Description Returns a page of accounts, optionally filtered by exact name. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Accounts
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       name           query   string  false "Exact name filter"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListAccountsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} errs.Response "Internal error"
// @Router      /accounts [get]
func (h *Handlers) ListAccounts(c *gin.Context) {
	ctx := c.Request.Context()
	name := strings.TrimSpace(c.Query("name"))
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.accounts.Stats(ctx, name); err == nil {
		etag := listETag(name, page, pageSize, count, maxTS)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && etagMatches(inm, etag) {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.accounts.ListPage(ctx, name, page, pageSize)
	if err != nil {
		fail(c, serviceError(err))
		return
	}

	out := make([]AccountResponse, 0, len(items))
	for i := range items {
		out = append(out, toAccountResponse(&items[i]))
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListAccountsResponse{
		Accounts: out,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetAccount godoc
// @ID          getAccount
// @Summary     Read an account
// @Tags        Accounts
// @Produce     json
// @Param       id   path  string  true  "Account ID (UUID)"  format(uuid)
// @Success     200  {object} handlers.AccountResponse
// @Failure     400  {object} errs.Response "Malformed id"
// @Failure     404  {object} errs.Response "Account not found"
// @Router      /accounts/{id} [get]
func (h *Handlers) GetAccount(c *gin.Context) {
	id, valid := accountID(c)
	if !valid {
		return
	}
	a, err := h.accounts.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, serviceError(err))
		return
	}
	ok(c, http.StatusOK, toAccountResponse(a))
}

// UpdateAccount godoc
// @ID          updateAccount
// @Summary     Replace an account
// @Description Replaces every mutable field. Omitting date_joined keeps the stored date; omitting phone_number clears it.
// @Tags        Accounts
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Account ID (UUID)"  format(uuid)
// @Param       body  body  handlers.AccountRequest  true  "Account payload"
// @Success     200  {object} handlers.AccountResponse
// @Failure     400  {object} errs.Response "Validation error"
// @Failure     404  {object} errs.Response "Account not found"
// @Failure     415  {object} errs.Response "Content-Type is not application/json"
// @Router      /accounts/{id} [put]
func (h *Handlers) UpdateAccount(c *gin.Context) {
	id, valid := accountID(c)
	if !valid {
		return
	}
	var req AccountRequest
	if err := validation.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		fail(c, err)
		return
	}
	a, err := h.accounts.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, serviceError(err))
		return
	}
	ok(c, http.StatusOK, toAccountResponse(a))
}

// PatchAccount godoc
// @ID          patchAccount
// @Summary     Partially update an account
// @Tags        Accounts
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Account ID (UUID)"  format(uuid)
// @Param       body  body  handlers.PatchAccountRequest  true  "Fields to change"
// @Success     200  {object} handlers.AccountResponse
// @Failure     400  {object} errs.Response "Validation error"
// @Failure     404  {object} errs.Response "Account not found"
// @Failure     415  {object} errs.Response "Content-Type is not application/json"
// @Router      /accounts/{id} [patch]
func (h *Handlers) PatchAccount(c *gin.Context) {
	id, valid := accountID(c)
	if !valid {
		return
	}
	var req PatchAccountRequest
	if err := validation.BindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	p, err := req.patch()
	if err != nil {
		fail(c, err)
		return
	}
	a, err := h.accounts.Patch(c.Request.Context(), id, p)
	if err != nil {
		fail(c, serviceError(err))
		return
	}
	ok(c, http.StatusOK, toAccountResponse(a))
}

// DeleteAccount godoc
// @ID          deleteAccount
// @Summary     Delete an account
// @Description Deleting an account that does not exist also returns 204.
// @Tags        Accounts
// @Param       id   path  string  true  "Account ID (UUID)"  format(uuid)
// @Success     204  {string} string "No Content"
// @Failure     400  {object} errs.Response "Malformed id"
// @Router      /accounts/{id} [delete]
func (h *Handlers) DeleteAccount(c *gin.Context) {
	id, valid := accountID(c)
	if !valid {
		return
	}
	if _, err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		fail(c, serviceError(err))
		return
	}
	noContent(c)
}
