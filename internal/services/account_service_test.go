package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-accounts-backend/internal/domain"
	"github.com/tbourn/go-accounts-backend/internal/repo"
)

// ----- Fake repos -----

type fakeAccountRepo struct {
	rows map[string]*domain.Account
	seq  int

	createErr error
	updateErr error
	patchErr  error
	countErr  error
	deleteErr error

	lastFilter repo.AccountFilter
	lastOffset int
	lastLimit  int
	lastPatch  map[string]any
	deleted    []string
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{rows: map[string]*domain.Account{}}
}

func (r *fakeAccountRepo) CreateAccount(_ context.Context, _ *gorm.DB, a *domain.Account) (*domain.Account, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	a.ID = fmt.Sprintf("acc-%d", r.seq)
	cp := *a
	r.rows[a.ID] = &cp
	return a, nil
}

func (r *fakeAccountRepo) GetAccount(_ context.Context, _ *gorm.DB, id string) (*domain.Account, error) {
	a, ok := r.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) CountAccounts(_ context.Context, _ *gorm.DB, f repo.AccountFilter) (int64, error) {
	r.lastFilter = f
	if r.countErr != nil {
		return 0, r.countErr
	}
	var n int64
	for _, a := range r.rows {
		if f.Name == "" || a.Name == f.Name {
			n++
		}
	}
	return n, nil
}

func (r *fakeAccountRepo) ListAccounts(_ context.Context, _ *gorm.DB, f repo.AccountFilter, offset, limit int) ([]domain.Account, error) {
	r.lastFilter, r.lastOffset, r.lastLimit = f, offset, limit
	out := []domain.Account{}
	for _, a := range r.rows {
		if f.Name == "" || a.Name == f.Name {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) AccountsStats(_ context.Context, _ *gorm.DB, f repo.AccountFilter) (int64, *time.Time, error) {
	r.lastFilter = f
	return int64(len(r.rows)), nil, nil
}

func (r *fakeAccountRepo) UpdateAccount(_ context.Context, _ *gorm.DB, a *domain.Account) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.rows[a.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) PatchAccount(_ context.Context, _ *gorm.DB, id string, fields map[string]any) error {
	r.lastPatch = fields
	if r.patchErr != nil {
		return r.patchErr
	}
	a, ok := r.rows[id]
	if !ok {
		return repo.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			a.Name = v.(string)
		case "email":
			a.Email = v.(string)
		case "address":
			a.Address = v.(string)
		case "phone_number":
			if v == nil {
				a.PhoneNumber = nil
			} else {
				s := v.(string)
				a.PhoneNumber = &s
			}
		case "date_joined":
			a.DateJoined = v.(time.Time)
		}
	}
	return nil
}

func (r *fakeAccountRepo) DeleteAccount(_ context.Context, _ *gorm.DB, id string) (bool, error) {
	r.deleted = append(r.deleted, id)
	if r.deleteErr != nil {
		return false, r.deleteErr
	}
	if _, ok := r.rows[id]; !ok {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

func (r *fakeAccountRepo) PurgeAccounts(_ context.Context, _ *gorm.DB) (int64, error) {
	n := int64(len(r.rows))
	r.rows = map[string]*domain.Account{}
	return n, nil
}

type fakeIdemRepo struct {
	recs      map[string]*domain.Idempotency
	createErr error
	getErr    error
}

func (r *fakeIdemRepo) GetIdempotency(_ context.Context, _ *gorm.DB, scope, key string, _ time.Time) (*domain.Idempotency, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	rec, ok := r.recs[scope+"|"+key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return rec, nil
}

func (r *fakeIdemRepo) CreateIdempotency(_ context.Context, _ *gorm.DB, scope, key, resourceID string, status int, _ time.Duration) (*domain.Idempotency, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	rec := &domain.Idempotency{Scope: scope, Key: key, ResourceID: resourceID, Status: status}
	r.recs[scope+"|"+key] = rec
	return rec, nil
}

func strp(s string) *string { return &s }

func validInput() AccountInput {
	return AccountInput{Name: "Ada Lovelace", Email: "ada@Example.COM", Address: "12 St James Sq"}
}

// ----- Tests -----

func TestNewAccountService_Defaults(t *testing.T) {
	r := newFakeAccountRepo()
	s := NewAccountService(nil, r, nil)

	if s.Repo != r || s.Idem != nil {
		t.Fatalf("repos not wired as given")
	}
	if s.DefaultPageSize != 20 || s.MaxPageSize != 100 {
		t.Fatalf("paging defaults = %d/%d", s.DefaultPageSize, s.MaxPageSize)
	}
	if s.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("IdempotencyTTL = %v", s.IdempotencyTTL)
	}
	if s.EmailLocale != language.Und {
		t.Fatalf("EmailLocale = %v", s.EmailLocale)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"   leading   ":    "leading",
		"multi   spaces":   "multi spaces",
		"tabs\tand\nlines": "tabs and lines",
		"\t  \n":           "",
	}
	for in, want := range cases {
		if got := normalizeName(in); got != want {
			t.Errorf("normalizeName(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestNormalizeEmail_LowersDomainOnly(t *testing.T) {
	s := NewAccountService(nil, newFakeAccountRepo(), nil)
	cases := map[string]string{
		"  Ada@Example.COM ": "Ada@example.com",
		"no-at-sign":         "no-at-sign",
		"a@b@C.org":          "a@b@c.org",
	}
	for in, want := range cases {
		if got := s.normalizeEmail(in); got != want {
			t.Errorf("normalizeEmail(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestCreate_NormalizesAndDefaultsDate(t *testing.T) {
	r := newFakeAccountRepo()
	s := NewAccountService(nil, r, nil)

	in := validInput()
	in.Name = "  Ada   Lovelace "
	in.PhoneNumber = strp("   ")

	a, err := s.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Name != "Ada Lovelace" || a.Email != "ada@example.com" {
		t.Fatalf("not normalized: %+v", a)
	}
	if a.PhoneNumber != nil {
		t.Fatalf("blank phone should be dropped, got %q", *a.PhoneNumber)
	}
	if !a.DateJoined.Equal(domain.Today()) {
		t.Fatalf("DateJoined = %v; want today", a.DateJoined)
	}
}

func TestCreate_TruncatesDateJoinedToDay(t *testing.T) {
	s := NewAccountService(nil, newFakeAccountRepo(), nil)
	in := validInput()
	dj := time.Date(2021, 3, 4, 15, 30, 0, 0, time.FixedZone("x", 3600))
	in.DateJoined = &dj

	a, err := s.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	if !a.DateJoined.Equal(want) {
		t.Fatalf("DateJoined = %v; want %v", a.DateJoined, want)
	}
}

func TestCreate_RejectsBlankFields(t *testing.T) {
	s := NewAccountService(nil, newFakeAccountRepo(), nil)
	for _, mut := range []func(*AccountInput){
		func(in *AccountInput) { in.Name = "   " },
		func(in *AccountInput) { in.Email = "" },
		func(in *AccountInput) { in.Address = "\t" },
	} {
		in := validInput()
		mut(&in)
		if _, err := s.Create(context.Background(), in); !errors.Is(err, ErrInvalidAccount) {
			t.Fatalf("expected ErrInvalidAccount for %+v, got %v", in, err)
		}
	}
}

func TestCreate_MapsRepoErrors(t *testing.T) {
	r := newFakeAccountRepo()
	s := NewAccountService(nil, r, nil)

	r.createErr = fmt.Errorf("%w: value too long", repo.ErrConstraint)
	if _, err := s.Create(context.Background(), validInput()); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("constraint: got %v", err)
	}

	boom := errors.New("db down")
	r.createErr = boom
	if _, err := s.Create(context.Background(), validInput()); !errors.Is(err, boom) {
		t.Fatalf("passthrough: got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := NewAccountService(nil, newFakeAccountRepo(), nil)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestListPage_DefaultsClampAndTotalZero(t *testing.T) {
	r := newFakeAccountRepo()
	s := NewAccountService(nil, r, nil)

	items, total, err := s.ListPage(context.Background(), "", 0, 0)
	if err != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty list: items=%v total=%d err=%v", items, total, err)
	}

	_, _ = s.Create(context.Background(), validInput())
	if _, _, err := s.ListPage(context.Background(), "  Ada   Lovelace ", 3, 1000); err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if r.lastFilter.Name != "Ada Lovelace" {
		t.Fatalf("filter not normalized: %q", r.lastFilter.Name)
	}
	if r.lastLimit != 100 || r.lastOffset != 200 {
		t.Fatalf("offset/limit = %d/%d; want 200/100", r.lastOffset, r.lastLimit)
	}
}

func TestListPage_CountError(t *testing.T) {
	r := newFakeAccountRepo()
	r.countErr = errors.New("boom")
	s := NewAccountService(nil, r, nil)
	if _, _, err := s.ListPage(context.Background(), "", 1, 10); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpdate_ReplacesFieldsKeepsIdentity(t *testing.T) {
	r := newFakeAccountRepo()
	s := NewAccountService(nil, r, nil)

	in := validInput()
	in.PhoneNumber = strp("555")
	orig, _ := s.Create(context.Background(), in)

	upd := AccountInput{Name: "Grace", Email: "grace@navy.mil", Address: "Arlington"}
	got, err := s.Update(context.Background(), orig.ID, upd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ID != orig.ID || got.Name != "Grace" || got.PhoneNumber != nil {
		t.Fatalf("unexpected update result: %+v", got)
	}
	if !got.DateJoined.Equal(orig.DateJoined) {
		t.Fatalf("nil DateJoined should keep stored date")
	}

	if _, err := s.Update(context.Background(), "missing", upd); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("missing: got %v", err)
	}
	if _, err := s.Update(context.Background(), orig.ID, AccountInput{}); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("blank: got %v", err)
	}
}

func TestPatch_BuildsColumnMap(t *testing.T) {
	r := newFakeAccountRepo()
	s := NewAccountService(nil, r, nil)

	in := validInput()
	in.PhoneNumber = strp("555")
	orig, _ := s.Create(context.Background(), in)

	got, err := s.Patch(context.Background(), orig.ID, AccountPatch{
		Email:       strp(" new@HOST.io "),
		PhoneNumber: strp(""),
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(r.lastPatch) != 2 {
		t.Fatalf("expected two columns, got %v", r.lastPatch)
	}
	if v, ok := r.lastPatch["phone_number"]; !ok || v != nil {
		t.Fatalf("empty phone should clear to NULL, got %v", r.lastPatch)
	}
	if got.Email != "new@host.io" || got.Name != orig.Name || got.PhoneNumber != nil {
		t.Fatalf("unexpected patch result: %+v", got)
	}
}

func TestPatch_EmptyAndErrors(t *testing.T) {
	r := newFakeAccountRepo()
	s := NewAccountService(nil, r, nil)
	orig, _ := s.Create(context.Background(), validInput())

	if got, err := s.Patch(context.Background(), orig.ID, AccountPatch{}); err != nil || got.ID != orig.ID {
		t.Fatalf("empty patch: %v %v", got, err)
	}
	if _, err := s.Patch(context.Background(), "missing", AccountPatch{Name: strp("x")}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("missing: %v", err)
	}
	if _, err := s.Patch(context.Background(), orig.ID, AccountPatch{Name: strp("  ")}); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("blank name: %v", err)
	}
}

func TestDelete_And_Purge(t *testing.T) {
	r := newFakeAccountRepo()
	s := NewAccountService(nil, r, nil)
	a, _ := s.Create(context.Background(), validInput())
	_, _ = s.Create(context.Background(), validInput())

	if ok, err := s.Delete(context.Background(), a.ID); err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if ok, err := s.Delete(context.Background(), a.ID); err != nil || ok {
		t.Fatalf("second Delete = %v, %v", ok, err)
	}
	if n, err := s.Purge(context.Background()); err != nil || n != 1 {
		t.Fatalf("Purge = %d, %v", n, err)
	}
}

func TestCreateIdempotent_ReplaysSameKey(t *testing.T) {
	r := newFakeAccountRepo()
	idem := &fakeIdemRepo{recs: map[string]*domain.Idempotency{}}
	s := NewAccountService(nil, r, idem)

	first, replayed, err := s.CreateIdempotent(context.Background(), "k-1", validInput())
	if err != nil || replayed {
		t.Fatalf("first: %v replayed=%v", err, replayed)
	}
	second, replayed, err := s.CreateIdempotent(context.Background(), "k-1", validInput())
	if err != nil || !replayed || second.ID != first.ID {
		t.Fatalf("second: acc=%v replayed=%v err=%v", second, replayed, err)
	}
	if len(r.rows) != 1 {
		t.Fatalf("expected one stored account, got %d", len(r.rows))
	}

	// blank key → plain create
	if _, replayed, err := s.CreateIdempotent(context.Background(), "  ", validInput()); err != nil || replayed {
		t.Fatalf("blank key: %v %v", replayed, err)
	}
	if len(r.rows) != 2 {
		t.Fatalf("expected two stored accounts, got %d", len(r.rows))
	}
}

func TestCreateIdempotent_DeletedResourceIsConflict(t *testing.T) {
	r := newFakeAccountRepo()
	idem := &fakeIdemRepo{recs: map[string]*domain.Idempotency{}}
	s := NewAccountService(nil, r, idem)

	first, _, _ := s.CreateIdempotent(context.Background(), "k", validInput())
	_, _ = s.Delete(context.Background(), first.ID)

	acc, _, err := s.CreateIdempotent(context.Background(), "k", validInput())
	if !errors.Is(err, ErrIdempotencyConflict) || acc != nil {
		t.Fatalf("expected ErrIdempotencyConflict, got acc=%v err=%v", acc, err)
	}
	if len(r.rows) != 0 {
		t.Fatalf("no account should be created, have %d", len(r.rows))
	}
}

func TestCreateIdempotent_LostRaceServesWinner(t *testing.T) {
	r := newFakeAccountRepo()
	idem := &fakeIdemRepo{recs: map[string]*domain.Idempotency{}}
	s := NewAccountService(nil, r, idem)

	winner, _ := s.Create(context.Background(), validInput())

	// Simulate: lookup misses, then insert hits the winner's record.
	race := &racingIdemRepo{winnerID: winner.ID}
	s.Idem = race

	got, replayed, err := s.CreateIdempotent(context.Background(), "k", validInput())
	if err != nil || !replayed || got.ID != winner.ID {
		t.Fatalf("got acc=%v replayed=%v err=%v", got, replayed, err)
	}
	if len(r.rows) != 1 {
		t.Fatalf("loser copy should be deleted, have %d rows", len(r.rows))
	}
}

func TestCreateIdempotent_LookupErrorPropagates(t *testing.T) {
	boom := errors.New("lookup failed")
	s := NewAccountService(nil, newFakeAccountRepo(), &fakeIdemRepo{getErr: boom})
	if _, _, err := s.CreateIdempotent(context.Background(), "k", validInput()); !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestCreateIdempotent_RecordFailureLeavesNoAccount(t *testing.T) {
	boom := errors.New("idempotency insert failed")
	r := newFakeAccountRepo()
	s := NewAccountService(nil, r, &fakeIdemRepo{recs: map[string]*domain.Idempotency{}, createErr: boom})

	acc, replayed, err := s.CreateIdempotent(context.Background(), "k", validInput())
	if !errors.Is(err, boom) || acc != nil || replayed {
		t.Fatalf("got acc=%v replayed=%v err=%v; want the insert error only", acc, replayed, err)
	}
	if len(r.rows) != 0 {
		t.Fatalf("account must be removed when its record fails, have %d", len(r.rows))
	}

	// A retry with the same key, once the record store recovers, creates exactly one account.
	s.Idem = &fakeIdemRepo{recs: map[string]*domain.Idempotency{}}
	if _, _, err := s.CreateIdempotent(context.Background(), "k", validInput()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(r.rows) != 1 {
		t.Fatalf("retry should leave one account, have %d", len(r.rows))
	}
}

func TestCreateIdempotent_LogsFailedDiscard(t *testing.T) {
	r := newFakeAccountRepo()
	r.deleteErr = errors.New("db gone")
	s := NewAccountService(nil, r, &fakeIdemRepo{recs: map[string]*domain.Idempotency{}, createErr: errors.New("insert failed")})

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	if _, _, err := s.CreateIdempotent(ctx, "k", validInput()); err == nil {
		t.Fatalf("expected an error")
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "db gone") || !strings.Contains(out, `"account_id":"acc-1"`) {
		t.Fatalf("discard failure not logged: %s", out)
	}
}

type racingIdemRepo struct {
	winnerID string
	lookups  int
}

func (r *racingIdemRepo) GetIdempotency(_ context.Context, _ *gorm.DB, _, _ string, _ time.Time) (*domain.Idempotency, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, repo.ErrNotFound
	}
	return &domain.Idempotency{ResourceID: r.winnerID}, nil
}

func (r *racingIdemRepo) CreateIdempotency(_ context.Context, _ *gorm.DB, _, _, _ string, _ int, _ time.Duration) (*domain.Idempotency, error) {
	return nil, fmt.Errorf("%w: ux_idem_scope_key", repo.ErrDuplicate)
}
