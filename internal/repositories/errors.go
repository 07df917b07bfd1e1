package repositories

import "errors"

// Adapter boundary errors. Services map these onto their own taxonomy; the
// adapters never invent richer types than the boundary needs.
var (
	// ErrNotFound is returned by store reads when no record exists for the
	// given key. Distinguishable from transport/store failures so callers
	// can tell "never registered" apart from "store is down".
	ErrNotFound = errors.New("record not found")

	// ErrInvalidCredentials is returned by Authenticate when the identity
	// provider rejects the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailInUse is returned by CreateIdentity when the email is taken.
	ErrEmailInUse = errors.New("email already in use")

	// ErrWeakCredential is returned when a password fails the provider's
	// minimum-strength check.
	ErrWeakCredential = errors.New("credential below minimum strength")

	// ErrReauthenticationFailed is returned by Reauthenticate when the
	// supplied current credential is wrong.
	ErrReauthenticationFailed = errors.New("reauthentication failed")
)
