package tasty

import "errors"

var (
	// ErrUnauthorized means the session token was rejected. Callers may
	// build a fresh session and retry the whole run once; the client itself
	// never retries.
	ErrUnauthorized = errors.New("unauthorized: session token rejected")

	// errIncompleteChain marks a nested chain response with entries missing
	// the expiration timestamp pair, which triggers the raw-endpoint
	// fallback.
	errIncompleteChain = errors.New("chain response has entries missing expiration fields")
)
