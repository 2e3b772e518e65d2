// Package services defines the business logic for accounts.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import "errors"

var (
	// ErrAccountNotFound indicates that the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAccount is returned when account data is rejected after
	// normalization or by a database constraint. It is usually wrapped with
	// a description of the offending field.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrIdempotencyConflict is returned when an Idempotency-Key cannot be
	// replayed, e.g. it names an account that was deleted since.
	ErrIdempotencyConflict = errors.New("idempotency key cannot be replayed")
)
