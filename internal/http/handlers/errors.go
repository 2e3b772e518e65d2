package handlers

import (
	"errors"

	"github.com/tbourn/go-accounts-backend/internal/errs"
	"github.com/tbourn/go-accounts-backend/internal/services"
)

// serviceError maps service sentinels to typed HTTP errors. Anything else is
// returned unchanged and ends up as a 500.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		return errs.NewNotFound("account not found").WithCause(err)
	case errors.Is(err, services.ErrInvalidAccount):
		return errs.NewBadRequest(err.Error()).WithCause(err)
	case errors.Is(err, services.ErrIdempotencyConflict):
		return errs.NewConflict(err.Error()).WithCause(err)
	}
	return err
}
