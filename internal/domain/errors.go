package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// ErrValidation marks a user-correctable draft defect; it never reaches the network.
	ErrValidation = errors.New("validation failed")
	// ErrKeyNotRegistered is the expected absence of a recipient encryption key.
	ErrKeyNotRegistered = errors.New("no public key registered")
	ErrEncryption       = errors.New("encryption failed")
	// ErrNetwork marks an unreachable chain-query collaborator.
	ErrNetwork     = errors.New("network error")
	ErrPublish     = errors.New("content publish failed")
	ErrTransaction = errors.New("transaction failed")
)
