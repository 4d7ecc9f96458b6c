package transport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"evacumate/internal/modules/dashboard/application/port"
	"evacumate/internal/modules/dashboard/application/usecase"
	"evacumate/internal/modules/dashboard/domain"
	identityport "evacumate/internal/modules/identity/application/port"
	identity "evacumate/internal/modules/identity/domain"
	identityhttp "evacumate/internal/modules/identity/interface"
	realtime "evacumate/internal/modules/realtime/domain"
	"evacumate/internal/modules/realtime/infrastructure"
	realtimehttp "evacumate/internal/modules/realtime/interface"
	shelters "evacumate/internal/modules/shelters/domain"
	"evacumate/internal/shared/httputil"
)

const (
	pageTitle = "Evacu-Mate"
	// loadingRefresh is the meta refresh, in seconds, of a page rendered
	// before the shelter list settled.
	loadingRefresh = 1
)

var dispatchErrors = httputil.NewErrorMapper().
	WithMapping(port.ErrViewClosed, http.StatusConflict, "dashboard was closed, reload the page").
	WithMapping(identityport.ErrNotAuthenticated, http.StatusUnauthorized, "not authenticated").
	WithDefault(http.StatusInternalServerError, "dispatch failed")

type Options struct {
	// LoadWait bounds how long a page render waits for the shelter list.
	LoadWait  time.Duration
	Websocket realtimehttp.WebsocketOptions
}

type authPanel struct {
	Authenticated bool
	Name          string
}

type page struct {
	Title    string
	Refresh  int
	Auth     authPanel
	State    domain.ViewState
	Loading  bool
	Shelters []shelters.Shelter
	Notice   *domain.Notice
}

// DashboardResponse is the body of GET /api/dashboard.
type DashboardResponse struct {
	State    domain.ViewState     `json:"state"`
	Shelters []shelters.Shelter   `json:"shelters"`
	Notice   *domain.Notice       `json:"notice"`
	User     identity.SessionUser `json:"user"`
}

// RegisterRoutes mounts the gate on / and /dashboard, the dispatch action,
// the JSON snapshot and the notices websocket.
func RegisterRoutes(e *echo.Echo, provider identityport.AuthProvider, views *usecase.Registry, hub *infrastructure.Hub, opts Options) {
	gate := NewGateHandler(views, opts.LoadWait)
	e.GET("/", gate, identityhttp.LoadSession(provider))
	e.GET("/dashboard", gate, identityhttp.LoadSession(provider))

	e.POST("/dashboard/dispatch/:id", NewDispatchHandler(views), identityhttp.RequireSession(provider))
	e.GET("/api/dashboard", NewSnapshotHandler(views), identityhttp.RequireSession(provider))

	wsOpts := opts.Websocket
	wsOpts.Commands = NewStateCommand(views)
	wsOpts.OnConnect = func(client *infrastructure.Client) { sendState(views, client) }
	e.GET("/ws/notices", realtimehttp.NewNoticesWebsocketHandler(hub, resolveSession, wsOpts), identityhttp.LoadSession(provider))
}

// NewGateHandler renders the dashboard for an authenticated session and the
// auth page otherwise.
func NewGateHandler(views *usecase.Registry, loadWait time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := identityhttp.CurrentUser(c)
		if !ok {
			return c.Render(http.StatusOK, "auth.html", page{Title: pageTitle})
		}
		session, _ := identityhttp.SessionFrom(c)

		view := views.Mount(session.ID, user.Subject)
		ready := view.Wait(c.Request().Context(), loadWait)
		snap := view.Snapshot()

		data := page{
			Title:    pageTitle,
			Auth:     authPanel{Authenticated: true, Name: user.DisplayName()},
			State:    snap.State,
			Loading:  !ready || snap.State == domain.ViewLoading,
			Shelters: snap.Shelters,
			Notice:   snap.Notice,
		}
		if data.Loading {
			data.Refresh = loadingRefresh
		}
		return c.Render(http.StatusOK, "dashboard.html", data)
	}
}

// NewDispatchHandler runs one dispatch for the session's view. Browsers
// posting the form are sent back to the dashboard; JSON clients get the
// outcome.
func NewDispatchHandler(views *usecase.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, ok := identityhttp.SessionFrom(c)
		if !ok {
			return dispatchErrors.HTTPError(identityport.ErrNotAuthenticated)
		}
		shelterID := strings.TrimSpace(c.Param("id"))
		if shelterID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing shelter id")
		}

		view := views.Mount(session.ID, session.User.Subject)
		outcome, err := view.RequestDispatch(c.Request().Context(), shelterID)
		if err != nil {
			c.Logger().Warnf("dispatch rejected session=%s shelter=%s: %v", session.ID, shelterID, err)
			return dispatchErrors.HTTPError(err)
		}

		if wantsJSON(c) {
			return c.JSON(http.StatusOK, outcome)
		}
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
}

func NewSnapshotHandler(views *usecase.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, ok := identityhttp.SessionFrom(c)
		if !ok {
			return dispatchErrors.HTTPError(identityport.ErrNotAuthenticated)
		}
		snap := views.Mount(session.ID, session.User.Subject).Snapshot()
		return c.JSON(http.StatusOK, DashboardResponse{
			State:    snap.State,
			Shelters: snap.Shelters,
			Notice:   snap.Notice,
			User:     session.User,
		})
	}
}

// NewStateCommand answers the websocket "state" action with the session's
// current snapshot.
func NewStateCommand(views *usecase.Registry) infrastructure.CommandHandler {
	return func(_ context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
		if !strings.EqualFold(strings.TrimSpace(cmd.Action), realtime.ActionState) {
			client.SendDomainMessage(&realtime.Message{
				Topic:     realtime.TopicSystemError,
				Entity:    realtime.SystemEntity,
				Action:    realtime.ActionError,
				Metadata:  map[string]string{"action": cmd.Action},
				Data:      map[string]string{"error": "unsupported action"},
				Timestamp: time.Now().UTC(),
			})
			return
		}
		sendState(views, client)
	}
}

func sendState(views *usecase.Registry, client *infrastructure.Client) {
	view, ok := views.Lookup(client.SessionID())
	if !ok {
		slog.Debug("ws state skipped, no mounted view", slog.String("sessionId", client.SessionID()))
		return
	}
	snap := view.Snapshot()
	client.SendDomainMessage(&realtime.Message{
		Topic:     realtime.TopicNotices,
		Entity:    realtime.NoticeEntity,
		Action:    realtime.ActionState,
		Metadata:  map[string]string{realtime.MetadataSessionID: client.SessionID()},
		Data:      snap,
		Timestamp: time.Now().UTC(),
	})
}

func resolveSession(c echo.Context) (string, string, bool) {
	session, ok := identityhttp.SessionFrom(c)
	if !ok {
		return "", "", false
	}
	return session.ID, session.User.Subject, true
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
