package infrastructure

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evacumate/internal/modules/identity/application/port"
	"evacumate/internal/shared/auth"
)

type fakeIdentityProvider struct {
	server *httptest.Server

	mu            sync.Mutex
	challenge     string
	tokenStatus   int
	profileStatus int
	profile       string
	verifierOK    bool
}

func newFakeIdentityProvider(t *testing.T) *fakeIdentityProvider {
	t.Helper()
	idp := &fakeIdentityProvider{
		tokenStatus:   http.StatusOK,
		profileStatus: http.StatusOK,
		profile:       `{"sub":"auth0|123","name":"Ada Lovelace","email":"ada@example.com"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		idp.mu.Lock()
		status := idp.tokenStatus
		sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
		idp.verifierOK = base64.RawURLEncoding.EncodeToString(sum[:]) == idp.challenge
		idp.mu.Unlock()

		if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code") != "good-code" {
			status = http.StatusBadRequest
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		idp.mu.Lock()
		status, body := idp.profileStatus, idp.profile
		idp.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (f *fakeIdentityProvider) config() ProviderConfig {
	return ProviderConfig{
		ClientID:     "client-abc",
		ClientSecret: "shh",
		AuthURL:      f.server.URL + "/authorize",
		TokenURL:     f.server.URL + "/oauth/token",
		UserInfoURL:  f.server.URL + "/userinfo",
		LogoutURL:    f.server.URL + "/v2/logout",
		RedirectURL:  "http://localhost:8080/callback",
		Scopes:       []string{"openid", "profile", "email"},
		CookieName:   "evacumate_session",
	}
}

func newProvider(t *testing.T, idp *fakeIdentityProvider) (*OAuthProvider, *auth.SessionTokens) {
	t.Helper()
	tokens := auth.NewSessionTokens("test-secret", time.Hour)
	return NewOAuthProvider(idp.config(), tokens, nil), tokens
}

// startLogin runs Login and returns the state sent to the provider along with
// the cookie binding it to the browser.
func startLogin(t *testing.T, provider *OAuthProvider, idp *fakeIdentityProvider) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, provider.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil)))
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	query := location.Query()
	idp.mu.Lock()
	idp.challenge = query.Get("code_challenge")
	idp.mu.Unlock()

	login := cookieNamed(rec, "evacumate_session_login")
	require.NotNil(t, login, "login must bind the state to the browser")
	return query.Get("state"), login
}

func callback(t *testing.T, provider *OAuthProvider, query string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?"+query, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	_, err := provider.Complete(rec, req)
	return rec, err
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginRedirectsWithPKCE(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	provider, _ := newProvider(t, idp)

	rec := httptest.NewRecorder()
	require.NoError(t, provider.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil)))
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", location.Path)
	query := location.Query()
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "client-abc", query.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/callback", query.Get("redirect_uri"))
	assert.Equal(t, "openid profile email", query.Get("scope"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.NotEmpty(t, query.Get("code_challenge"))
	assert.NotEmpty(t, query.Get("state"))
	assert.Equal(t, 1, provider.states.Len())

	login := cookieNamed(rec, "evacumate_session_login")
	require.NotNil(t, login)
	assert.Equal(t, query.Get("state"), login.Value)
	assert.True(t, login.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, login.SameSite)
	assert.Positive(t, login.MaxAge)
}

func TestCompleteIssuesSessionCookie(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	provider, _ := newProvider(t, idp)
	state, login := startLogin(t, provider, idp)

	rec := httptest.NewRecorder()
	callbackReq := httptest.NewRequest(http.MethodGet, "/callback?code=good-code&state="+url.QueryEscape(state), nil)
	callbackReq.AddCookie(login)
	session, err := provider.Complete(rec, callbackReq)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "auth0|123", session.User.Subject)
	assert.Equal(t, "Ada Lovelace", session.User.Name)
	assert.Equal(t, "ada@example.com", session.User.Email)

	idp.mu.Lock()
	assert.True(t, idp.verifierOK, "token request must carry the PKCE verifier")
	idp.mu.Unlock()

	sessionCookie := cookieNamed(rec, "evacumate_session")
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)
	cleared := cookieNamed(rec, "evacumate_session_login")
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(sessionCookie)
	assert.True(t, provider.IsAuthenticated(req))
	current, err := provider.CurrentSession(req)
	require.NoError(t, err)
	assert.Equal(t, session, current)

	_, err = callback(t, provider, "code=good-code&state="+url.QueryEscape(state), login)
	assert.ErrorIs(t, err, port.ErrInvalidState, "a state can only be used once")
}

func TestCompleteFailures(t *testing.T) {
	t.Parallel()

	t.Run("provider error", func(t *testing.T) {
		idp := newFakeIdentityProvider(t)
		provider, _ := newProvider(t, idp)
		_, err := callback(t, provider, "error=access_denied&error_description=nope")
		assert.ErrorIs(t, err, port.ErrProviderDenied)
	})

	t.Run("missing code", func(t *testing.T) {
		idp := newFakeIdentityProvider(t)
		provider, _ := newProvider(t, idp)
		_, err := callback(t, provider, "state=abc")
		assert.ErrorIs(t, err, port.ErrInvalidCallback)
	})

	t.Run("unknown state", func(t *testing.T) {
		idp := newFakeIdentityProvider(t)
		provider, _ := newProvider(t, idp)
		_, err := callback(t, provider, "code=good-code&state=forged")
		assert.ErrorIs(t, err, port.ErrInvalidState)
	})

	t.Run("exchange rejected", func(t *testing.T) {
		idp := newFakeIdentityProvider(t)
		provider, _ := newProvider(t, idp)
		state, login := startLogin(t, provider, idp)
		rec, err := callback(t, provider, "code=bad-code&state="+url.QueryEscape(state), login)
		assert.ErrorIs(t, err, port.ErrExchangeFailed)
		assert.Nil(t, cookieNamed(rec, "evacumate_session"))
	})

	t.Run("callback without login cookie", func(t *testing.T) {
		idp := newFakeIdentityProvider(t)
		provider, _ := newProvider(t, idp)
		state, _ := startLogin(t, provider, idp)
		rec, err := callback(t, provider, "code=good-code&state="+url.QueryEscape(state))
		assert.ErrorIs(t, err, port.ErrInvalidState)
		assert.Nil(t, cookieNamed(rec, "evacumate_session"))
		assert.Equal(t, 1, provider.states.Len(), "the pending login stays usable by its own browser")
	})

	t.Run("login cookie from another attempt", func(t *testing.T) {
		idp := newFakeIdentityProvider(t)
		provider, _ := newProvider(t, idp)
		victimState, _ := startLogin(t, provider, idp)
		_, attackerLogin := startLogin(t, provider, idp)
		rec, err := callback(t, provider, "code=good-code&state="+url.QueryEscape(victimState), attackerLogin)
		assert.ErrorIs(t, err, port.ErrInvalidState)
		assert.Nil(t, cookieNamed(rec, "evacumate_session"))
	})

	t.Run("profile unavailable", func(t *testing.T) {
		idp := newFakeIdentityProvider(t)
		idp.profileStatus = http.StatusInternalServerError
		provider, _ := newProvider(t, idp)
		state, login := startLogin(t, provider, idp)
		_, err := callback(t, provider, "code=good-code&state="+url.QueryEscape(state), login)
		assert.ErrorIs(t, err, port.ErrProfileFailed)
	})

	t.Run("profile without subject", func(t *testing.T) {
		idp := newFakeIdentityProvider(t)
		idp.profile = `{"name":"Nobody"}`
		provider, _ := newProvider(t, idp)
		state, login := startLogin(t, provider, idp)
		_, err := callback(t, provider, "code=good-code&state="+url.QueryEscape(state), login)
		assert.ErrorIs(t, err, port.ErrProfileFailed)
	})
}

func TestCurrentSessionRejectsBadCookies(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	tokens := auth.NewSessionTokens("test-secret", time.Hour)
	provider := NewOAuthProvider(idp.config(), tokens, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := provider.CurrentSession(req)
	assert.ErrorIs(t, err, port.ErrNotAuthenticated)

	req.AddCookie(&http.Cookie{Name: "evacumate_session", Value: "garbage"})
	assert.False(t, provider.IsAuthenticated(req))

	past := auth.NewSessionTokens("test-secret", time.Hour).WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	expired, _, err := past.Issue("auth0|123", "sess-1", "Ada", "ada@example.com")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "evacumate_session", Value: expired})
	assert.False(t, provider.IsAuthenticated(req))

	valid, _, err := tokens.Issue("auth0|123", "sess-2", "Ada", "ada@example.com")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	session, err := provider.CurrentSession(req)
	require.NoError(t, err)
	assert.Equal(t, "sess-2", session.ID)
}

func TestLogoutClearsCookieAndRedirectsThroughProvider(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	provider, _ := newProvider(t, idp)

	rec := httptest.NewRecorder()
	require.NoError(t, provider.Logout(rec, httptest.NewRequest(http.MethodGet, "/logout", nil), "http://localhost:8080"))
	assert.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/v2/logout", location.Path)
	assert.Equal(t, "http://localhost:8080", location.Query().Get("returnTo"))
	assert.Equal(t, "client-abc", location.Query().Get("client_id"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestLogoutRevokesSessionToken(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	provider, tokens := newProvider(t, idp)
	signed, _, err := tokens.Issue("auth0|123", "sess-7", "Ada", "ada@example.com")
	require.NoError(t, err)
	cookie := &http.Cookie{Name: "evacumate_session", Value: signed}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	require.True(t, provider.IsAuthenticated(req))
	require.NoError(t, provider.Logout(httptest.NewRecorder(), req, "http://localhost:8080"))
	assert.Equal(t, 1, provider.revoked.Len())

	replay := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	replay.AddCookie(cookie)
	_, err = provider.CurrentSession(replay)
	assert.ErrorIs(t, err, port.ErrNotAuthenticated)

	bearer := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	bearer.Header.Set("Authorization", "Bearer "+signed)
	assert.False(t, provider.IsAuthenticated(bearer))

	other, _, err := tokens.Issue("auth0|123", "sess-8", "Ada", "ada@example.com")
	require.NoError(t, err)
	fresh := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	fresh.AddCookie(&http.Cookie{Name: "evacumate_session", Value: other})
	assert.True(t, provider.IsAuthenticated(fresh))
}

func TestRevokedSessionsExpire(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	revoked := NewRevokedSessions()
	revoked.now = func() time.Time { return now }

	revoked.Revoke("sess-1", now.Add(time.Minute))
	revoked.Revoke("sess-old", now.Add(-time.Second))
	revoked.Revoke("  ", now.Add(time.Hour))
	assert.True(t, revoked.Revoked("sess-1"))
	assert.False(t, revoked.Revoked("sess-old"))
	assert.Equal(t, 1, revoked.Len())

	now = now.Add(2 * time.Minute)
	assert.False(t, revoked.Revoked("sess-1"))
	revoked.Revoke("sess-2", now.Add(time.Minute))
	assert.Equal(t, 1, revoked.Len(), "expired entries are pruned")
}

func TestLogoutWithoutProviderLogoutURL(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	cfg := idp.config()
	cfg.LogoutURL = ""
	provider := NewOAuthProvider(cfg, auth.NewSessionTokens("test-secret", time.Hour), nil)

	rec := httptest.NewRecorder()
	require.NoError(t, provider.Logout(rec, httptest.NewRequest(http.MethodGet, "/logout", nil), "http://localhost:8080"))
	assert.Equal(t, "http://localhost:8080", rec.Header().Get("Location"))
}
