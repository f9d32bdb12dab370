package services

import "errors"

// Typed failures surfaced by the services. Handlers map these to HTTP
// statuses with errors.Is instead of matching message strings.
var (
	// ErrEmailTaken is returned when signing up (or changing email to)
	// an address that is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately indistinguishable to avoid user enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when a token subject or profile target
	// no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrProductNotFound is returned for lookups, updates and deletes of
	// a nonexistent product id.
	ErrProductNotFound = errors.New("product not found")
)
