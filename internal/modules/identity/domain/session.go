package domain

import "strings"

// SessionUser is the profile the identity provider returned at login.
type SessionUser struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// DisplayName is the greeting shown to the user.
func (u SessionUser) DisplayName() string {
	for _, candidate := range []string{u.Name, u.Email, u.Subject} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Session is one authenticated browser session.
type Session struct {
	ID   string      `json:"id"`
	User SessionUser `json:"user"`
}
