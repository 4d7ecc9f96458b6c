package transport

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"evacumate/internal/modules/realtime/domain"
	"evacumate/internal/modules/realtime/infrastructure"
)

// SessionResolver returns the session behind a request.
type SessionResolver func(c echo.Context) (sessionID, userID string, ok bool)

type WebsocketOptions struct {
	SendBuffer     int
	AllowedOrigins []string
	// Commands handles actions other than subscribe, unsubscribe and ping.
	Commands infrastructure.CommandHandler
	// OnConnect runs after the connected message is queued.
	OnConnect func(client *infrastructure.Client)
}

// NewUpgrader accepts same-host origins, plus any listed in allowedOrigins.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			allowed[strings.ToLower(trimmed)] = struct{}{}
		}
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			if _, ok := allowed[strings.ToLower(origin)]; ok {
				return true
			}
			parsed, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return strings.EqualFold(parsed.Host, r.Host)
		},
	}
}

// NewNoticesWebsocketHandler exposes /ws/notices. The client is bound to the
// caller's session and subscribed to notices and vehicle telemetry.
func NewNoticesWebsocketHandler(hub *infrastructure.Hub, resolve SessionResolver, opts WebsocketOptions) echo.HandlerFunc {
	upgrader := NewUpgrader(opts.AllowedOrigins)
	return func(c echo.Context) error {
		logger := c.Logger()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		peerIP := c.RealIP()

		sessionID, userID, ok := resolve(c)
		if !ok || strings.TrimSpace(sessionID) == "" {
			slog.Warn("notices ws rejected", slog.String("ip", peerIP))
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("notices ws upgrade failed", slog.String("sessionId", sessionID), slog.String("ip", peerIP), slog.Any("error", err))
			logger.Errorf("ws upgrade failed session=%s ip=%s reqID=%s: %v", sessionID, peerIP, requestID, err)
			return nil
		}

		client := infrastructure.NewClient(hub, conn, sessionID, userID, opts.SendBuffer, opts.Commands)
		topics := domain.DefaultTopics()
		hub.AttachClient(client, topics)
		connectedAt := time.Now()
		client.AddCloseHook(func(cl *infrastructure.Client) {
			slog.Info("notices ws closed", slog.String("clientId", cl.ID()), slog.String("sessionId", cl.SessionID()), slog.Duration("connected", time.Since(connectedAt)))
		})

		go client.WritePump()
		go client.ReadPump()

		client.SendDomainMessage(&domain.Message{
			Topic:    domain.TopicSystemConnected,
			Entity:   domain.SystemEntity,
			Action:   domain.ActionConnected,
			Metadata: map[string]string{domain.MetadataSessionID: sessionID},
			Data: map[string]any{
				"clientId": client.ID(),
				"topics":   topics,
			},
			Timestamp: time.Now().UTC(),
		})
		if opts.OnConnect != nil {
			opts.OnConnect(client)
		}

		logger.Infof("ws connected session=%s user=%s ip=%s reqID=%s", sessionID, userID, peerIP, requestID)
		return nil
	}
}
