// Package kylas talks to the Kylas CRM REST API: OAuth token lifecycle,
// rule-based entity search, lead/deal lookups and message activity logging.
package kylas

import "errors"

// Sentinel errors for stable mapping to HTTP responses at the handler layer.
var (
	// ErrReauthorizationRequired means the refresh token itself has expired
	// and the user must go through the OAuth flow again.
	ErrReauthorizationRequired = errors.New("refresh token expired, please reconnect")

	// ErrTokenRefreshFailed means the refresh-token grant was attempted and
	// rejected by the CRM. There is no retry.
	ErrTokenRefreshFailed = errors.New("access token refresh failed")

	// ErrEntityNotFound means a lead or deal id does not exist, or a deal
	// carries no cross-reference to a lead.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrResolutionFailed means a search stage of the resolver failed.
	// Entities resolved before the failing stage are still returned.
	ErrResolutionFailed = errors.New("entity resolution failed")

	// ErrNotConnected means the account has no messaging project linked.
	ErrNotConnected = errors.New("no messaging project connected")
)
