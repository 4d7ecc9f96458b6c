package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

const sessionIssuer = "evacumate"

// Claims is the payload of a session cookie. Name and Email are the
// identity provider's profile fields at login time.
type Claims struct {
	SessionID string `json:"sid"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

type TokenValidator interface {
	Validate(token string) (*Claims, error)
}

type TokenIssuer interface {
	Issue(subject, sessionID, name, email string) (string, time.Time, error)
}

// SessionTokens signs and validates HS256 session tokens.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &SessionTokens{secret: []byte(strings.TrimSpace(secret)), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for issuing and validating.
func (s *SessionTokens) WithClock(now func() time.Time) *SessionTokens {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *SessionTokens) Issue(subject, sessionID, name, email string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("%w: session secret not configured", ErrInvalidToken)
	}
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)
	claims := Claims{
		SessionID: sessionID,
		Name:      name,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   subject,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *SessionTokens) Validate(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("%w: session secret not configured", ErrInvalidToken)
	}

	claims := &Claims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithLeeway(5*time.Second), jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return nil, ErrInvalidToken
	}

	if claims.RegisteredClaims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.SessionID == "" {
		claims.SessionID = claims.RegisteredClaims.ID
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}

	return claims, nil
}

var (
	_ TokenValidator = (*SessionTokens)(nil)
	_ TokenIssuer    = (*SessionTokens)(nil)
)
