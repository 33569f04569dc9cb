package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated        = fmt.Errorf("not authenticated")
	ErrRefreshFailed           = fmt.Errorf("token refresh failed")
	ErrReauthorizationRequired = fmt.Errorf("reauthorization required")
	ErrTimeout                 = fmt.Errorf("operation timed out")

	// Authorization flow errors
	ErrNoPortAvailable  = fmt.Errorf("no callback port available")
	ErrStateMismatch    = fmt.Errorf("state parameter mismatch")
	ErrUserDenied       = fmt.Errorf("authorization denied")
	ErrExchangeRejected = fmt.Errorf("code exchange rejected")
	ErrInvalidCallback  = fmt.Errorf("invalid callback request")
	ErrFlowFinished     = fmt.Errorf("authorization flow already finished")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrNoActiveDevice     = fmt.Errorf("no active playback device")

	// Persistence errors
	ErrRunNotFound = fmt.Errorf("run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
