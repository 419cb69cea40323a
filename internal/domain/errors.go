package domain

import "errors"

// Activity errors
var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrNotOwner         = errors.New("activity belongs to another user")
	ErrInvalidInput     = errors.New("invalid activity input")
)
