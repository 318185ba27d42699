package auth

import (
	"errors"

	"fintrack/internal/core"
)

// FriendlyMessage maps authentication failures to the message shown to the
// person at the keyboard. Unknown errors get a generic line so internals
// never leak into the UI.
func FriendlyMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Incorrect email or password. Please try again."
	case errors.Is(err, core.ErrEmailTaken):
		return "An account with this email already exists. Try signing in instead."
	case errors.Is(err, ErrWeakPassword):
		return "Password must be at least 6 characters long."
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrNotSignedIn):
		return "Your session has expired. Please sign in again."
	default:
		return "Something went wrong. Please try again."
	}
}
