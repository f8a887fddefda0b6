package auth

import "errors"

var (
	// ErrMissingCredentials indicates the email or password was not supplied.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrUserNotFound indicates no account exists for the supplied email.
	ErrUserNotFound = errors.New("no user found with this email")
	// ErrInvalidPassword indicates the password does not match the stored hash.
	ErrInvalidPassword = errors.New("incorrect password")
	// ErrUnverifiedProfile indicates an external identity assertion cannot be trusted.
	ErrUnverifiedProfile = errors.New("external profile has no verified email")
	// ErrInvalidToken indicates a session token failed signature, claim or expiry checks.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrTokenRevoked indicates the session was signed out before it expired.
	ErrTokenRevoked = errors.New("session token revoked")
)
