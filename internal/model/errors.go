package model

import "errors"

// Sentinel errors shared across services and mapped to HTTP statuses by
// the API layer. Wrap with fmt.Errorf("...: %w", err) to add context.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrOutOfStock       = errors.New("out of stock")
	ErrConflict         = errors.New("conflict")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
)
