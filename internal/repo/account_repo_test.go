package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-accounts-backend/internal/domain"
)

func strPtr(s string) *string { return &s }

func newAccount(name string) *domain.Account {
	return &domain.Account{
		Name:    name,
		Email:   name + "@example.com",
		Address: "1 Main St",
	}
}

func TestCreateAccount_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	a, err := CreateAccount(context.Background(), db, newAccount("x"))
	if err == nil || a != nil {
		t.Fatalf("expected error creating without table, got a=%v err=%v", a, err)
	}
}

func TestCreateAccount_DefaultsAndRoundTrip(t *testing.T) {
	db := newTestDB(t, &domain.Account{})
	ctx := context.Background()

	in := newAccount("ada")
	in.ID = "client-supplied"
	in.PhoneNumber = strPtr("555-0100")

	got, err := CreateAccount(ctx, db, in)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if got.ID == "" || got.ID == "client-supplied" {
		t.Fatalf("expected server-generated ID, got %q", got.ID)
	}
	if !got.DateJoined.Equal(domain.Today()) {
		t.Fatalf("expected DateJoined default to today, got %v", got.DateJoined)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", got)
	}

	read, err := GetAccount(ctx, db, got.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if read.Name != "ada" || read.Email != "ada@example.com" || read.PhoneNumber == nil || *read.PhoneNumber != "555-0100" {
		t.Fatalf("round trip mismatch: %+v", read)
	}
}

func TestCreateAccount_KeepsExplicitDateJoined(t *testing.T) {
	db := newTestDB(t, &domain.Account{})
	in := newAccount("bob")
	in.DateJoined = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

	got, err := CreateAccount(context.Background(), db, in)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if !got.DateJoined.Equal(in.DateJoined) {
		t.Fatalf("DateJoined overwritten: %v", got.DateJoined)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Account{})
	_, err := GetAccount(context.Background(), db, "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndCountAccounts_FilterAndPaging(t *testing.T) {
	db := newTestDB(t, &domain.Account{})
	ctx := context.Background()

	for _, n := range []string{"a", "b", "c", "b"} {
		if _, err := CreateAccount(ctx, db, newAccount(n)); err != nil {
			t.Fatalf("seed %s: %v", n, err)
		}
	}

	total, err := CountAccounts(ctx, db, AccountFilter{})
	if err != nil || total != 4 {
		t.Fatalf("CountAccounts = %d, %v; want 4", total, err)
	}
	nb, err := CountAccounts(ctx, db, AccountFilter{Name: "b"})
	if err != nil || nb != 2 {
		t.Fatalf("CountAccounts(name=b) = %d, %v; want 2", nb, err)
	}

	page, err := ListAccounts(ctx, db, AccountFilter{}, 0, 3)
	if err != nil || len(page) != 3 {
		t.Fatalf("ListAccounts page1 = %d, %v; want 3", len(page), err)
	}
	rest, err := ListAccounts(ctx, db, AccountFilter{}, 3, 3)
	if err != nil || len(rest) != 1 {
		t.Fatalf("ListAccounts page2 = %d, %v; want 1", len(rest), err)
	}

	onlyB, err := ListAccounts(ctx, db, AccountFilter{Name: "b"}, 0, 10)
	if err != nil || len(onlyB) != 2 {
		t.Fatalf("ListAccounts(name=b) = %d, %v", len(onlyB), err)
	}
	for _, a := range onlyB {
		if a.Name != "b" {
			t.Fatalf("filter leaked %q", a.Name)
		}
	}

	none, err := ListAccounts(ctx, db, AccountFilter{Name: "zzz"}, 0, 10)
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v, %v", none, err)
	}
}

func TestUpdateAccount_WritesZeroValues_And_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Account{})
	ctx := context.Background()

	in := newAccount("carol")
	in.PhoneNumber = strPtr("555")
	a, err := CreateAccount(ctx, db, in)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	a.Name = "caroline"
	a.PhoneNumber = nil // full replace clears the phone number
	if err := UpdateAccount(ctx, db, a); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	got, _ := GetAccount(ctx, db, a.ID)
	if got.Name != "caroline" || got.PhoneNumber != nil {
		t.Fatalf("update not applied: %+v", got)
	}

	missing := newAccount("ghost")
	missing.ID = "00000000-0000-0000-0000-000000000000"
	if err := UpdateAccount(ctx, db, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPatchAccount_OnlyGivenColumns(t *testing.T) {
	db := newTestDB(t, &domain.Account{})
	ctx := context.Background()

	a, err := CreateAccount(ctx, db, newAccount("dave"))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := PatchAccount(ctx, db, a.ID, map[string]any{"email": "new@example.com"}); err != nil {
		t.Fatalf("PatchAccount: %v", err)
	}
	got, _ := GetAccount(ctx, db, a.ID)
	if got.Email != "new@example.com" || got.Name != "dave" || got.Address != "1 Main St" {
		t.Fatalf("patch touched other columns: %+v", got)
	}

	// empty patch is a read-only existence check
	if err := PatchAccount(ctx, db, a.ID, map[string]any{}); err != nil {
		t.Fatalf("empty patch on existing: %v", err)
	}
	if err := PatchAccount(ctx, db, "00000000-0000-0000-0000-000000000000", map[string]any{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty patch on missing: expected ErrNotFound, got %v", err)
	}
	if err := PatchAccount(ctx, db, "00000000-0000-0000-0000-000000000000", map[string]any{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("patch on missing: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAccount_And_Purge(t *testing.T) {
	db := newTestDB(t, &domain.Account{})
	ctx := context.Background()

	a, _ := CreateAccount(ctx, db, newAccount("eve"))
	_, _ = CreateAccount(ctx, db, newAccount("frank"))
	_, _ = CreateAccount(ctx, db, newAccount("grace"))

	deleted, err := DeleteAccount(ctx, db, a.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteAccount = %v, %v; want true", deleted, err)
	}
	deleted, err = DeleteAccount(ctx, db, a.ID)
	if err != nil || deleted {
		t.Fatalf("second DeleteAccount = %v, %v; want false, nil", deleted, err)
	}

	n, err := PurgeAccounts(ctx, db)
	if err != nil || n != 2 {
		t.Fatalf("PurgeAccounts = %d, %v; want 2", n, err)
	}
	if total, _ := CountAccounts(ctx, db, AccountFilter{}); total != 0 {
		t.Fatalf("expected empty table after purge, got %d", total)
	}

	// purging an empty table is fine
	if n, err := PurgeAccounts(ctx, db); err != nil || n != 0 {
		t.Fatalf("PurgeAccounts on empty = %d, %v", n, err)
	}
}
