package leaserenew

import "errors"

// Error kinds returned by the session, the authenticator and the renewer.
// Callers test for them with errors.Is; a returned error may match more than
// one kind, e.g. a login that could not find the password field matches both
// ErrLoginFailed and ErrElementNotFound.
var (
	ErrDriverInitFailed = errors.New("browser session could not be created")
	ErrElementNotFound  = errors.New("element not found")
	ErrLoginFailed      = errors.New("login failed")
	ErrRenewalFailed    = errors.New("renewal failed")
)
