package domain

import "errors"

var (
	// ErrAuthFailed means an upstream rejected our API key.
	ErrAuthFailed = errors.New("upstream authentication failed")

	// ErrUpstreamUnavailable covers transport failures and unexpected
	// upstream status codes.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrPostNotFound    = errors.New("post not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrUserRequired    = errors.New("user id required")
	ErrInvalidArgument = errors.New("invalid argument")
)
