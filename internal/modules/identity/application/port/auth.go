package port

import (
	"errors"
	"net/http"

	"evacumate/internal/modules/identity/domain"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrProviderDenied is returned when the provider redirects back with an error.
	ErrProviderDenied   = errors.New("identity provider denied login")
	ErrInvalidCallback  = errors.New("invalid login callback")
	ErrInvalidState     = errors.New("unknown login state")
	ErrStateExpired     = errors.New("login state expired")
	ErrExchangeFailed   = errors.New("authorization code exchange failed")
	ErrProfileFailed    = errors.New("userinfo request failed")
)

// AuthProvider is the identity collaborator as seen by the pages. The
// authenticated flag is derived from the request's session cookie only.
type AuthProvider interface {
	IsAuthenticated(r *http.Request) bool
	CurrentSession(r *http.Request) (domain.Session, error)
	// Login redirects the browser to the provider's authorize page.
	Login(w http.ResponseWriter, r *http.Request) error
	// Complete finishes the redirect flow and sets the session cookie.
	Complete(w http.ResponseWriter, r *http.Request) (domain.Session, error)
	// Logout clears the session cookie and redirects through the provider's
	// logout page back to returnTo.
	Logout(w http.ResponseWriter, r *http.Request, returnTo string) error
}
