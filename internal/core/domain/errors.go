package domain

import "errors"

// Request shape.
var (
	ErrInvalidIdentityClass = errors.New("unknown identity class")
	ErrInvalidAuthType      = errors.New("unknown auth type")
	ErrInvalidAddress       = errors.New("address is not a valid account address")
	ErrMissingCredentials   = errors.New("email and password are required")
)

// Wallet flow.
var (
	ErrIdentityExists      = errors.New("identity already exists, login instead")
	ErrSignupRequired      = errors.New("identity not found, signup instead")
	ErrIdentityUnavailable = errors.New("identity not found or not allowed to authenticate")
	ErrSignatureInvalid    = errors.New("signature verification failed")
	ErrNonceConsumed       = errors.New("nonce already consumed")
)

// Password flow.
var (
	ErrPasswordUnsupported = errors.New("password authentication is not available for this identity class")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

// Guards.
var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrTokenMissing       = errors.New("missing bearer token")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrVerificationFailed = errors.New("verification failed")
	ErrForbidden          = errors.New("access forbidden")
)

// Infrastructure.
var (
	ErrTooManyAttempts = errors.New("too many attempts, try again later")
)

var clientErrors = []error{
	ErrInvalidIdentityClass, ErrInvalidAuthType, ErrInvalidAddress, ErrMissingCredentials,
	ErrIdentityExists, ErrSignupRequired, ErrIdentityUnavailable, ErrSignatureInvalid, ErrNonceConsumed,
	ErrPasswordUnsupported, ErrInvalidCredentials,
	ErrIdentityNotFound, ErrTokenMissing, ErrTokenInvalid, ErrVerificationFailed, ErrForbidden,
	ErrTooManyAttempts,
}

// IsClientError reports whether err is caused by the request rather than by
// the service or its dependencies.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
