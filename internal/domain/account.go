// Package domain defines the persistence models for accounts and the
// bookkeeping records that support them. These types are mapped with GORM
// and shared by the repository, service and HTTP layers.
package domain

import "time"

// Account is a customer account managed through the /accounts resource.
//
// Fields:
//   - ID: UUID primary key (char(36)), generated on create.
//   - Name: display name (1–64 chars).
//   - Email: contact address (≤ 64 chars).
//   - Address: postal address (≤ 256 chars).
//   - PhoneNumber: optional phone number (≤ 32 chars).
//   - DateJoined: calendar date the account was opened (UTC midnight).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Account struct {
	ID          string    `json:"id"                     gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name"                   gorm:"type:varchar(64);not null;index:idx_accounts_name"`
	Email       string    `json:"email"                  gorm:"type:varchar(64);not null"`
	Address     string    `json:"address"                gorm:"type:varchar(256);not null"`
	PhoneNumber *string   `json:"phone_number,omitempty" gorm:"type:varchar(32)"`
	DateJoined  time.Time `json:"date_joined"            gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// Today returns the current UTC date truncated to midnight, the default
// DateJoined for new accounts.
func Today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
