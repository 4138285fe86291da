package praetor

import "errors"

var (
	// ErrNoCredential is returned when no credential accompanies the
	// request.
	ErrNoCredential = errors.New("praetor: credential not provided")

	// ErrInvalidCredential is returned for malformed or badly signed
	// credentials.
	ErrInvalidCredential = errors.New("praetor: invalid credential")

	// ErrExpiredCredential is returned for well-formed credentials past
	// their expiry.
	ErrExpiredCredential = errors.New("praetor: credential expired")

	// ErrSessionNotFound is returned when no active, unexpired session
	// matches the credential.
	ErrSessionNotFound = errors.New("praetor: session invalid or expired")

	// ErrUserInactive is returned when the session's user has been
	// deactivated.
	ErrUserInactive = errors.New("praetor: user inactive")

	// ErrAccessDenied is returned by Enforce when the decision pipeline
	// denies the request.
	ErrAccessDenied = errors.New("praetor: access denied")

	// ErrRoleRequired is returned when a required role is not held.
	ErrRoleRequired = errors.New("praetor: required role not held")
)

// ErrorCode maps an error to its stable wire code. Unrecognized errors map
// to "INTERNAL" so infrastructure failures are never mistaken for denials.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNoCredential):
		return "NO_TOKEN"
	case errors.Is(err, ErrExpiredCredential):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrInvalidCredential):
		return "INVALID_TOKEN"
	case errors.Is(err, ErrSessionNotFound):
		return "INVALID_SESSION"
	case errors.Is(err, ErrUserInactive):
		return "USER_INACTIVE"
	case errors.Is(err, ErrRoleRequired):
		return "ROLE_REQUIRED"
	case errors.Is(err, ErrAccessDenied):
		return "ACCESS_DENIED"
	default:
		return "INTERNAL"
	}
}

// WireCode returns the stable wire code for a decision outcome.
func (c DecisionCode) WireCode() string {
	switch c {
	case DecisionACLDenied:
		return "ACL_DENIED"
	case DecisionPermissionDenied:
		return "PERMISSION_DENIED"
	case DecisionABACDenied:
		return "ABAC_DENIED"
	default:
		return "ALLOWED"
	}
}
