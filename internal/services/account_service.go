// Package services – AccountService
//
// This file implements the AccountService, which manages the lifecycle of
// accounts. It normalizes input, applies defaults, coordinates repository
// operations for create/read/update/delete and pagination, and records
// idempotent creates.
//
// Service-level errors (ErrAccountNotFound, ErrInvalidAccount) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-accounts-backend/internal/domain"
	"github.com/tbourn/go-accounts-backend/internal/repo"
	"github.com/tbourn/go-accounts-backend/internal/utils"
)

// IdempotencyScopeCreate namespaces Idempotency-Key values used on
// POST /accounts.
const IdempotencyScopeCreate = "accounts.create"

// AccountRepo defines the repository contract required by AccountService.
type AccountRepo interface {
	CreateAccount(ctx context.Context, db *gorm.DB, a *domain.Account) (*domain.Account, error)
	GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error)
	CountAccounts(ctx context.Context, db *gorm.DB, f repo.AccountFilter) (int64, error)
	ListAccounts(ctx context.Context, db *gorm.DB, f repo.AccountFilter, offset, limit int) ([]domain.Account, error)
	AccountsStats(ctx context.Context, db *gorm.DB, f repo.AccountFilter) (int64, *time.Time, error)
	UpdateAccount(ctx context.Context, db *gorm.DB, a *domain.Account) error
	PatchAccount(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error
	DeleteAccount(ctx context.Context, db *gorm.DB, id string) (bool, error)
	PurgeAccounts(ctx context.Context, db *gorm.DB) (int64, error)
}

// IdempotencyRepo persists completed creates keyed by (scope, key).
type IdempotencyRepo interface {
	GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// AccountInput carries the fields of a create or full update.
// DateJoined is optional; nil means "today" on create and "unchanged" on update.
type AccountInput struct {
	Name        string
	Email       string
	Address     string
	PhoneNumber *string
	DateJoined  *time.Time
}

// AccountPatch carries a partial update; nil fields are left unchanged.
// An empty PhoneNumber clears the stored number.
type AccountPatch struct {
	Name        *string
	Email       *string
	Address     *string
	PhoneNumber *string
	DateJoined  *time.Time
}

// AccountService provides account operations on top of AccountRepo.
type AccountService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the account repository used by this service.
	Repo AccountRepo
	// Idem stores idempotency records; nil disables idempotent creates.
	Idem IdempotencyRepo
	// IdempotencyTTL is how long a recorded create can be replayed.
	IdempotencyTTL time.Duration

	// DefaultPageSize is used when callers pass a non-positive page size.
	DefaultPageSize int
	// MaxPageSize caps page sizes.
	MaxPageSize int
	// EmailLocale selects the casing rules applied to e-mail domains.
	EmailLocale language.Tag
}

// NewAccountService constructs an AccountService with default paging and a
// 24h idempotency window.
func NewAccountService(db *gorm.DB, r AccountRepo, idem IdempotencyRepo) *AccountService {
	return &AccountService{
		DB:              db,
		Repo:            r,
		Idem:            idem,
		IdempotencyTTL:  24 * time.Hour,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		EmailLocale:     language.Und,
	}
}

// Create normalizes in and inserts a new account.
func (s *AccountService) Create(ctx context.Context, in AccountInput) (*domain.Account, error) {
	a, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if a.DateJoined.IsZero() {
		a.DateJoined = domain.Today()
	}
	out, err := s.Repo.CreateAccount(ctx, s.DB, a)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return out, nil
}

// CreateIdempotent behaves like Create, but when key was already used for a
// completed create within the TTL it returns the original account and
// replayed=true instead of inserting again. A blank key is a plain Create.
func (s *AccountService) CreateIdempotent(ctx context.Context, key string, in AccountInput) (acc *domain.Account, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" || s.Idem == nil {
		acc, err = s.Create(ctx, in)
		return acc, false, err
	}

	if rec, err := s.Idem.GetIdempotency(ctx, s.DB, IdempotencyScopeCreate, key, time.Now().UTC()); err == nil {
		acc, err := s.Get(ctx, rec.ResourceID)
		if errors.Is(err, ErrAccountNotFound) {
			// The key still names an account that has since been deleted.
			return nil, false, ErrIdempotencyConflict
		}
		if err != nil {
			return nil, false, err
		}
		return acc, true, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	acc, err = s.Create(ctx, in)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.Idem.CreateIdempotency(ctx, s.DB, IdempotencyScopeCreate, key, acc.ID, http.StatusCreated, s.IdempotencyTTL); err != nil {
		// An account without its record would be created again on retry.
		s.discard(ctx, acc.ID)
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, false, err
		}
		// Lost a race with a concurrent request carrying the same key:
		// serve the winner.
		rec, lerr := s.Idem.GetIdempotency(ctx, s.DB, IdempotencyScopeCreate, key, time.Now().UTC())
		if lerr != nil {
			return nil, false, ErrIdempotencyConflict
		}
		winner, gerr := s.Get(ctx, rec.ResourceID)
		if gerr != nil {
			return nil, false, ErrIdempotencyConflict
		}
		return winner, true, nil
	}
	return acc, false, nil
}

// discard deletes an account whose idempotent create could not be recorded.
func (s *AccountService) discard(ctx context.Context, id string) {
	if _, err := s.Repo.DeleteAccount(ctx, s.DB, id); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("account_id", id).Msg("discard unrecorded account")
	}
}

// Get returns the account with the given id or ErrAccountNotFound.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	a, err := s.Repo.GetAccount(ctx, s.DB, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return a, nil
}

// ListPage returns a page of accounts matching name (exact, optional) and the
// total number of matches. Invalid page/pageSize values fall back to defaults.
func (s *AccountService) ListPage(ctx context.Context, name string, page, pageSize int) ([]domain.Account, int64, error) {
	page, pageSize = s.clampPage(page, pageSize)
	f := repo.AccountFilter{Name: normalizeName(name)}

	total, err := s.Repo.CountAccounts(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Account{}, 0, nil
	}
	items, err := s.Repo.ListAccounts(ctx, s.DB, f, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Stats returns the count and latest UpdatedAt of accounts matching name.
func (s *AccountService) Stats(ctx context.Context, name string) (int64, *time.Time, error) {
	return s.Repo.AccountsStats(ctx, s.DB, repo.AccountFilter{Name: normalizeName(name)})
}

// Update replaces every mutable field of account id with in.
// A nil DateJoined keeps the stored date.
func (s *AccountService) Update(ctx context.Context, id string, in AccountInput) (*domain.Account, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a, err := s.build(in)
	if err != nil {
		return nil, err
	}
	a.ID = cur.ID
	a.CreatedAt = cur.CreatedAt
	if a.DateJoined.IsZero() {
		a.DateJoined = cur.DateJoined
	}
	if err := s.Repo.UpdateAccount(ctx, s.DB, a); err != nil {
		return nil, mapRepoErr(err)
	}
	return a, nil
}

// Patch applies the non-nil fields of p to account id and returns the result.
func (s *AccountService) Patch(ctx context.Context, id string, p AccountPatch) (*domain.Account, error) {
	fields := map[string]any{}
	if p.Name != nil {
		name := normalizeName(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be blank", ErrInvalidAccount)
		}
		fields["name"] = name
	}
	if p.Email != nil {
		email := s.normalizeEmail(*p.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email must not be blank", ErrInvalidAccount)
		}
		fields["email"] = email
	}
	if p.Address != nil {
		addr := strings.TrimSpace(*p.Address)
		if addr == "" {
			return nil, fmt.Errorf("%w: address must not be blank", ErrInvalidAccount)
		}
		fields["address"] = addr
	}
	if p.PhoneNumber != nil {
		if phone := strings.TrimSpace(*p.PhoneNumber); phone != "" {
			fields["phone_number"] = phone
		} else {
			fields["phone_number"] = nil
		}
	}
	if p.DateJoined != nil {
		fields["date_joined"] = dateOnly(*p.DateJoined)
	}

	if err := s.Repo.PatchAccount(ctx, s.DB, id, fields); err != nil {
		return nil, mapRepoErr(err)
	}
	return s.Get(ctx, id)
}

// Delete removes account id. It reports whether something was deleted;
// deleting a missing account is not an error.
func (s *AccountService) Delete(ctx context.Context, id string) (bool, error) {
	return s.Repo.DeleteAccount(ctx, s.DB, id)
}

// Purge deletes all accounts.
func (s *AccountService) Purge(ctx context.Context) (int64, error) {
	return s.Repo.PurgeAccounts(ctx, s.DB)
}

// build turns an AccountInput into a domain.Account, normalizing each field.
func (s *AccountService) build(in AccountInput) (*domain.Account, error) {
	a := &domain.Account{
		Name:    normalizeName(in.Name),
		Email:   s.normalizeEmail(in.Email),
		Address: strings.TrimSpace(in.Address),
	}
	switch {
	case a.Name == "":
		return nil, fmt.Errorf("%w: name must not be blank", ErrInvalidAccount)
	case a.Email == "":
		return nil, fmt.Errorf("%w: email must not be blank", ErrInvalidAccount)
	case a.Address == "":
		return nil, fmt.Errorf("%w: address must not be blank", ErrInvalidAccount)
	}
	if in.PhoneNumber != nil {
		if phone := strings.TrimSpace(*in.PhoneNumber); phone != "" {
			a.PhoneNumber = &phone
		}
	}
	if in.DateJoined != nil {
		a.DateJoined = dateOnly(*in.DateJoined)
	}
	return a, nil
}

func (s *AccountService) clampPage(page, pageSize int) (int, int) {
	def := s.DefaultPageSize
	if def <= 0 {
		def = 20
	}
	return utils.ClampPage(page, pageSize, def, s.MaxPageSize)
}

// normalizeEmail trims the address and lower-cases its domain part.
// The local part is case-sensitive and kept as given.
func (s *AccountService) normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return email
	}
	return email[:at+1] + cases.Lower(s.EmailLocale).String(email[at+1:])
}

// mapRepoErr converts repository sentinels into service errors.
func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrAccountNotFound
	case errors.Is(err, repo.ErrConstraint), errors.Is(err, repo.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	return err
}

// normalizeName trims whitespace and collapses multiple spaces to one.
func normalizeName(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// dateOnly truncates t to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
