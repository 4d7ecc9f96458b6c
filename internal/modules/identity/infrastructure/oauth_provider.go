package infrastructure

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"evacumate/internal/modules/identity/application/port"
	"evacumate/internal/modules/identity/domain"
	"evacumate/internal/shared/auth"
	"evacumate/internal/shared/normalization"
)

// ProviderConfig describes the identity provider and the session cookie.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	LogoutURL    string
	RedirectURL  string
	Scopes       []string

	CookieName   string
	CookieSecure bool
	StateTTL     time.Duration
	Timeout      time.Duration
}

// OAuthProvider runs the authorization-code flow with PKCE against the
// identity provider and keeps the resulting profile in a signed cookie.
type OAuthProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	logoutURL   string
	clientID    string
	cookieName  string
	secure      bool
	states      *StateStore
	revoked     *RevokedSessions
	tokens      *auth.SessionTokens
	httpClient  *http.Client
}

func NewOAuthProvider(cfg ProviderConfig, tokens *auth.SessionTokens, httpClient *http.Client) *OAuthProvider {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = "evacumate_session"
	}
	return &OAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		logoutURL:   strings.TrimSpace(cfg.LogoutURL),
		clientID:    cfg.ClientID,
		cookieName:  cookieName,
		secure:      cfg.CookieSecure,
		states:      NewStateStore(cfg.StateTTL),
		revoked:     NewRevokedSessions(),
		tokens:      tokens,
		httpClient:  httpClient,
	}
}

func (p *OAuthProvider) IsAuthenticated(r *http.Request) bool {
	_, err := p.CurrentSession(r)
	return err == nil
}

func (p *OAuthProvider) CurrentSession(r *http.Request) (domain.Session, error) {
	claims, err := p.claims(r)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		ID: claims.SessionID,
		User: domain.SessionUser{
			Subject: claims.Subject,
			Name:    claims.Name,
			Email:   claims.Email,
		},
	}, nil
}

func (p *OAuthProvider) claims(r *http.Request) (*auth.Claims, error) {
	token := auth.ExtractToken(r, p.cookieName)
	if token == "" {
		return nil, port.ErrNotAuthenticated
	}
	claims, err := p.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrNotAuthenticated, err)
	}
	if p.revoked.Revoked(claims.SessionID) {
		return nil, fmt.Errorf("%w: session logged out", port.ErrNotAuthenticated)
	}
	return claims, nil
}

// Login redirects to the provider. The state also goes into a short-lived
// cookie so the callback is only accepted from the browser that started it.
func (p *OAuthProvider) Login(w http.ResponseWriter, r *http.Request) error {
	verifier := oauth2.GenerateVerifier()
	state := p.states.Create(verifier)
	http.SetCookie(w, p.loginCookie(state, int(p.states.ttl.Seconds())))
	target := p.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	slog.Info("login redirect", slog.String("authUrl", p.oauth.Endpoint.AuthURL))
	http.Redirect(w, r, target, http.StatusFound)
	return nil
}

func (p *OAuthProvider) Complete(w http.ResponseWriter, r *http.Request) (domain.Session, error) {
	query := r.URL.Query()
	if errParam := strings.TrimSpace(query.Get("error")); errParam != "" {
		return domain.Session{}, fmt.Errorf("%w: %s %s", port.ErrProviderDenied, errParam, strings.TrimSpace(query.Get("error_description")))
	}
	code := strings.TrimSpace(query.Get("code"))
	state := strings.TrimSpace(query.Get("state"))
	if code == "" || state == "" {
		return domain.Session{}, port.ErrInvalidCallback
	}
	bound := auth.ExtractTokenFromCookie(r, p.loginCookieName())
	http.SetCookie(w, p.loginCookie("", -1))
	if bound == "" || subtle.ConstantTimeCompare([]byte(bound), []byte(state)) != 1 {
		slog.Warn("login callback state not bound to this browser", slog.Bool("cookie", bound != ""))
		return domain.Session{}, fmt.Errorf("%w: login cookie mismatch", port.ErrInvalidState)
	}

	verifier, err := p.states.Take(state)
	if err != nil {
		return domain.Session{}, err
	}

	ctx := context.WithValue(r.Context(), oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		slog.Error("login code exchange failed", slog.Any("error", err))
		return domain.Session{}, fmt.Errorf("%w: %v", port.ErrExchangeFailed, err)
	}

	user, err := p.fetchProfile(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{ID: uuid.NewString(), User: user}
	signed, expiresAt, err := p.tokens.Issue(user.Subject, session.ID, user.Name, user.Email)
	if err != nil {
		return domain.Session{}, fmt.Errorf("issue session: %w", err)
	}
	http.SetCookie(w, p.sessionCookie(signed, expiresAt))
	slog.Info("login completed", slog.String("sessionId", session.ID), slog.String("subject", user.Subject))
	return session, nil
}

// Logout revokes the session id for the rest of its token lifetime, then
// clears the cookie and redirects through the provider's logout page.
func (p *OAuthProvider) Logout(w http.ResponseWriter, r *http.Request, returnTo string) error {
	if claims, err := p.claims(r); err == nil && claims.ExpiresAt != nil {
		// the slack outlives the validation leeway
		p.revoked.Revoke(claims.SessionID, claims.ExpiresAt.Add(time.Minute))
	}
	http.SetCookie(w, p.sessionCookie("", time.Unix(0, 0)))

	target := strings.TrimSpace(returnTo)
	if target == "" {
		target = "/"
	}
	if p.logoutURL != "" {
		logoutURL, err := url.Parse(p.logoutURL)
		if err != nil {
			return fmt.Errorf("parse logout url: %w", err)
		}
		values := logoutURL.Query()
		values.Set("returnTo", target)
		values.Set("client_id", p.clientID)
		logoutURL.RawQuery = values.Encode()
		target = logoutURL.String()
	}
	http.Redirect(w, r, target, http.StatusFound)
	return nil
}

func (p *OAuthProvider) fetchProfile(ctx context.Context, token *oauth2.Token) (domain.SessionUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return domain.SessionUser{}, fmt.Errorf("%w: %v", port.ErrProfileFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return domain.SessionUser{}, fmt.Errorf("%w: %v", port.ErrProfileFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		slog.Warn("userinfo request failed", slog.Int("status", res.StatusCode), slog.String("body", string(body)))
		return domain.SessionUser{}, fmt.Errorf("%w: status %d", port.ErrProfileFailed, res.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return domain.SessionUser{}, fmt.Errorf("%w: decode: %v", port.ErrProfileFailed, err)
	}
	user := domain.SessionUser{
		Subject: normalization.StringField(payload, "sub", "user_id", "id"),
		Name:    normalization.StringField(payload, "name", "nickname", "preferred_username"),
		Email:   normalization.StringField(payload, "email"),
	}
	if user.Subject == "" {
		return domain.SessionUser{}, fmt.Errorf("%w: missing subject", port.ErrProfileFailed)
	}
	return user, nil
}

func (p *OAuthProvider) sessionCookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     p.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	return cookie
}

func (p *OAuthProvider) loginCookieName() string { return p.cookieName + "_login" }

func (p *OAuthProvider) loginCookie(state string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     p.loginCookieName(),
		Value:    state,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

var _ port.AuthProvider = (*OAuthProvider)(nil)
