package domain

import "errors"

// Core operations never return these; they belong to the service and infrastructure layers.
var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidReference is returned when a reference dataset fails validation
	ErrInvalidReference = errors.New("invalid reference dataset")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
