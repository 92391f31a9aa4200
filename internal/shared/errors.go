package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionMissing occurs when a handler runs outside the session middleware.
	ErrSessionMissing = errors.New("session missing")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// GenericErrorMessage is shown when an error carries no user-facing text.
const GenericErrorMessage = "No fue posible completar la solicitud. Intenta de nuevo."

// UserMessenger is implemented by errors whose text is safe to show to users.
type UserMessenger interface {
	UserMessage() string
}

// UserSafeMessage returns the user-facing text carried by err, or fallback.
func UserSafeMessage(err error, fallback string) string {
	if fallback == "" {
		fallback = GenericErrorMessage
	}
	var um UserMessenger
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
