package domain

import "errors"

// Sentinel errors the HTTP layer has to tell apart. Services wrap anything
// unexpected with %w and return these as-is so handlers can errors.Is them.
var (
	ErrDuplicateEmail  = errors.New("an account with that email already exists")
	ErrUnknownEmail    = errors.New("no account with that email")
	ErrBadPassword     = errors.New("password incorrect")
	ErrNotFound        = errors.New("record not found")
	ErrInvalidDate     = errors.New("malformed due date, expected YYYY-MM-DD")
	ErrUnauthenticated = errors.New("sign in required")
	ErrForbidden       = errors.New("you do not own this list")
)
