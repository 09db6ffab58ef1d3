package analytics

import "errors"

var (
	ErrNoSuchUser    = errors.New("user not found")
	ErrInvalidPeriod = errors.New("invalid year or month")
)
