package gex

import "errors"

// ErrMissingCredentials is returned by connect functions before any network
// call when the provider credentials are not configured.
var ErrMissingCredentials = errors.New("missing API credentials")
