// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Account
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only CRUD persistence and query composition.
//
// Error semantics:
//   - When an account is not found, functions return ErrNotFound.
//   - Constraint violations are reported as ErrDuplicate / ErrConstraint.
//   - Other DB errors (connectivity, missing tables) are propagated raw.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-accounts-backend/internal/domain"
)

// AccountFilter narrows list/count queries. Zero value matches everything.
type AccountFilter struct {
	// Name matches accounts whose name equals Name exactly.
	Name string
}

func (f AccountFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	return q
}

// CreateAccount inserts a. The ID is always freshly generated; CreatedAt and
// UpdatedAt are set to UTC now, and DateJoined defaults to today when zero.
func CreateAccount(ctx context.Context, db *gorm.DB, a *domain.Account) (*domain.Account, error) {
	now := time.Now().UTC()
	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.DateJoined.IsZero() {
		a.DateJoined = domain.Today()
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, translateError(err)
	}
	return a, nil
}

// GetAccount fetches a single account by ID, or ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

// CountAccounts returns the number of accounts matching f.
func CountAccounts(ctx context.Context, db *gorm.DB, f AccountFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Account{})).Count(&total).Error
	return total, err
}

// ListAccounts returns a page of accounts matching f, most recent first.
// The caller computes offset and limit (e.g., (page-1)*pageSize).
func ListAccounts(ctx context.Context, db *gorm.DB, f AccountFilter, offset, limit int) ([]domain.Account, error) {
	out := []domain.Account{}
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateAccount writes every mutable column of a (zero values included) to the
// row identified by a.ID. It returns ErrNotFound when no row matched.
func UpdateAccount(ctx context.Context, db *gorm.DB, a *domain.Account) error {
	a.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", a.ID).
		Select("name", "email", "address", "phone_number", "date_joined", "updated_at").
		Updates(a)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PatchAccount updates only the given columns of the account identified by
// id. Keys are column names. It returns ErrNotFound when no row matched.
func PatchAccount(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		_, err := GetAccount(ctx, db, id)
		return err
	}
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAccount removes the account identified by id. It reports whether a
// row was deleted; a missing account is not an error.
func DeleteAccount(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Account{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// PurgeAccounts deletes every account and returns the number of rows removed.
func PurgeAccounts(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&domain.Account{})
	return res.RowsAffected, res.Error
}
