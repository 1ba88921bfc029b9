// ===========================================
// Package service - Business Logic Layer
// ===========================================
// Services own the rules of the link lifecycle: creation policy, the
// redirect state machine, click recording and analytics. Handlers only
// translate HTTP; repositories only store.
// ===========================================

package service

import "errors"

// Service errors. Handlers map these to HTTP status codes; anything else
// is an internal error.
var (
	ErrNotFound     = errors.New("link not found")
	ErrInvalidURL   = errors.New("invalid URL")
	ErrInvalidCode  = errors.New("custom code must be 3-20 characters of a-z, 0-9, _ or -")
	ErrReservedCode = errors.New("custom code is reserved")
	ErrCodeTaken    = errors.New("short code already taken")
	ErrForbidden    = errors.New("link belongs to another user")
	ErrUnauthorized = errors.New("authentication required")
	ErrInvalidInput = errors.New("invalid input")
)
