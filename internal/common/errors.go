// Package common holds the error taxonomy shared by services, middleware and handlers.
package common

import "errors"

var (
	// store errors
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")

	// auth errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrProtectedAccount   = errors.New("admin accounts cannot be deleted")

	// collaborator errors
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrValidation = errors.New("validation error")
	ErrInternal   = errors.New("internal error")
)
