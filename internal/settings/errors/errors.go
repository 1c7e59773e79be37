package errors

import "errors"

var ErrNotFound = errors.New("settings not found")
