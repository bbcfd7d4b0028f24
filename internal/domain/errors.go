package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrProviderFailure = errors.New("provider failure")
	ErrJobNotPending   = errors.New("job is not pending")
)
