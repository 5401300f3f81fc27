package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	ErrTimeout = fmt.Errorf("operation timed out")

	// Authentication errors
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrNotConnected       = fmt.Errorf("spotify account not connected")
	ErrTokenRefreshFailed = fmt.Errorf("token refresh failed")

	// Upstream call errors, classified by the bounded caller
	ErrUpstreamTimeout = fmt.Errorf("upstream request timed out")
	ErrAuthExpired     = fmt.Errorf("upstream authentication expired")
	ErrForbidden       = fmt.Errorf("upstream access forbidden")
	ErrRateLimited     = fmt.Errorf("upstream rate limit exceeded")
	ErrUpstream        = fmt.Errorf("upstream request failed")

	// Pipeline errors
	ErrZeroResolved       = fmt.Errorf("no candidates resolved")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
