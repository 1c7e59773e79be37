package errors

import "errors"

var (
	ErrNotFound         = errors.New("manager config not found")
	ErrAlertNotFound    = errors.New("alert not found")
	ErrRunStatsNotFound = errors.New("worker run stats not found")
)
