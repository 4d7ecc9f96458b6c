package transport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"evacumate/internal/modules/identity/application/port"
	"evacumate/internal/modules/identity/domain"
	"evacumate/internal/shared/httputil"
)

const sessionContextKey = "evacumate.session"

// SessionCloser releases per-session server state when a user logs out.
type SessionCloser interface {
	Unmount(sessionID string)
}

var callbackErrors = httputil.NewErrorMapper().
	WithMapping(port.ErrProviderDenied, http.StatusBadRequest, "the identity provider did not complete the login").
	WithMapping(port.ErrInvalidCallback, http.StatusBadRequest, "missing code or state").
	WithMapping(port.ErrInvalidState, http.StatusBadRequest, "unknown login attempt, please log in again").
	WithMapping(port.ErrStateExpired, http.StatusBadRequest, "login attempt expired, please log in again").
	WithMapping(port.ErrExchangeFailed, http.StatusBadRequest, "unable to complete login").
	WithMapping(port.ErrProfileFailed, http.StatusBadGateway, "unable to read your profile").
	WithDefault(http.StatusInternalServerError, "login failed")

// RegisterRoutes mounts /login, /callback and /logout.
func RegisterRoutes(e *echo.Echo, provider port.AuthProvider, sessions SessionCloser, publicURL string) {
	e.GET("/login", NewLoginHandler(provider))
	e.GET("/callback", NewCallbackHandler(provider))
	logout := NewLogoutHandler(provider, sessions, publicURL)
	e.GET("/logout", logout)
	e.POST("/logout", logout)
}

func NewLoginHandler(provider port.AuthProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		if provider.IsAuthenticated(c.Request()) {
			return c.Redirect(http.StatusFound, "/dashboard")
		}
		return provider.Login(c.Response(), c.Request())
	}
}

// NewCallbackHandler finishes the login. Failures render the error page; the
// user starts over from /login.
func NewCallbackHandler(provider port.AuthProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := provider.Complete(c.Response(), c.Request())
		if err != nil {
			info := callbackErrors.Map(err)
			slog.Warn("login callback failed", slog.Int("status", info.Status), slog.Any("error", err))
			c.Logger().Warnf("login callback failed ip=%s: %v", c.RealIP(), err)
			return renderError(c, info)
		}
		slog.Info("login callback success", slog.String("sessionId", session.ID))
		return c.Redirect(http.StatusFound, "/dashboard")
	}
}

// NewLogoutHandler unmounts the session's dashboard before the cookie is
// dropped, then sends the browser through the provider's logout page. A GET
// navigated to from another site is sent home without logging out.
func NewLogoutHandler(provider port.AuthProvider, sessions SessionCloser, publicURL string) echo.HandlerFunc {
	returnTo := strings.TrimRight(strings.TrimSpace(publicURL), "/")
	return func(c echo.Context) error {
		if c.Request().Method == http.MethodGet && crossSite(c.Request()) {
			slog.Warn("cross-site logout ignored", slog.String("ip", c.RealIP()))
			return c.Redirect(http.StatusFound, "/")
		}
		if session, err := provider.CurrentSession(c.Request()); err == nil {
			if sessions != nil {
				sessions.Unmount(session.ID)
			}
			slog.Info("logout", slog.String("sessionId", session.ID))
		}
		target := returnTo
		if target == "" {
			target = c.Scheme() + "://" + c.Request().Host
		}
		return provider.Logout(c.Response(), c.Request(), target)
	}
}

// RequireSession answers 401 for requests without a valid session and
// stores the session on the context otherwise.
func RequireSession(provider port.AuthProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := provider.CurrentSession(c.Request())
			if err != nil {
				slog.Debug("session rejected", slog.String("path", c.Path()), slog.Any("error", err))
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			c.Set(sessionContextKey, session)
			return next(c)
		}
	}
}

// LoadSession stores the session on the context when there is one. It never rejects.
func LoadSession(provider port.AuthProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if session, err := provider.CurrentSession(c.Request()); err == nil {
				c.Set(sessionContextKey, session)
			}
			return next(c)
		}
	}
}

// SessionFrom returns the session stored by RequireSession or LoadSession.
func SessionFrom(c echo.Context) (domain.Session, bool) {
	session, ok := c.Get(sessionContextKey).(domain.Session)
	return session, ok
}

// CurrentUser is the signed-in user of the request, if any.
func CurrentUser(c echo.Context) (domain.SessionUser, bool) {
	session, ok := SessionFrom(c)
	return session.User, ok
}

// crossSite reports a request the browser marked as initiated by another
// site. Clients that send no Sec-Fetch-Site header are let through.
func crossSite(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("Sec-Fetch-Site")), "cross-site")
}

func renderError(c echo.Context, info httputil.HTTPErrorInfo) error {
	if c.Echo().Renderer == nil {
		return echo.NewHTTPError(info.Status, info.Message)
	}
	return c.Render(info.Status, "error.html", map[string]any{
		"Status":  info.Status,
		"Message": info.Message,
	})
}
