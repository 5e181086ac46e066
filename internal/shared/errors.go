package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Session errors
	ErrNoSession      = fmt.Errorf("no session")
	ErrSessionExpired = fmt.Errorf("session expired")
	ErrStateMismatch  = fmt.Errorf("state parameter mismatch")

	// Authentication errors
	ErrAuthExchange   = fmt.Errorf("authorization exchange failed")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTokenExpired   = fmt.Errorf("access token expired")

	// Infrastructure errors
	ErrStoreUnavailable    = fmt.Errorf("session store unavailable")
	ErrProviderUnavailable = fmt.Errorf("provider unavailable")
	ErrAPIRequest          = fmt.Errorf("API request failed")
)
