package errors

import "errors"

var (
	ErrNotFound = errors.New("causa not found")

	ErrInvalidID = errors.New("invalid causa ID format")
)
