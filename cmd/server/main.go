package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"evacumate/internal/config"
	dashboard "evacumate/internal/modules/dashboard/application/usecase"
	dashboardhttp "evacumate/internal/modules/dashboard/interface"
	identity "evacumate/internal/modules/identity/infrastructure"
	identityhttp "evacumate/internal/modules/identity/interface"
	handler "evacumate/internal/modules/realtime/application/handler"
	realtimeport "evacumate/internal/modules/realtime/application/port"
	usecase "evacumate/internal/modules/realtime/application/usecase"
	"evacumate/internal/modules/realtime/domain"
	"evacumate/internal/modules/realtime/infrastructure"
	realtimehttp "evacumate/internal/modules/realtime/interface"
	shelters "evacumate/internal/modules/shelters/infrastructure"
	"evacumate/internal/platform/broker"
	"evacumate/internal/platform/metrics"
	"evacumate/internal/platform/web"
	"evacumate/internal/shared/auth"
	"evacumate/internal/shared/logging"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logFile, writer, logger, err := logging.Setup(cfg.Logging.Directory, logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID), slog.String("dispatchTopic", cfg.Kafka.DispatchTopic))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := infrastructure.NewHub()
	broadcastUC := usecase.NewBroadcastUseCase(hub)
	meters := metrics.NewMetrics(hub.Len)

	// Event bus
	events := broker.NewDispatchPublisher(cfg.Kafka.Brokers, cfg.Kafka.DispatchTopic)
	registry := infrastructure.NewHandlerRegistry()
	for _, topic := range cfg.Kafka.TelemetryTopics {
		registry.Register(countTelemetry(handler.NewTelemetryHandler(topic, broadcastUC), meters))
	}
	consumers := broker.StartKafkaConsumers(ctx, registry, cfg.Kafka.Brokers, cfg.Kafka.GroupID, registry.Topics())

	// Dashboards
	views := dashboard.NewRegistry(dashboard.ViewDeps{
		Shelters:  shelters.NewShelterHTTPClient(cfg.REST.BaseURL, cfg.REST.Timeout, nil),
		Dispatch:  shelters.NewDispatchHTTPClient(cfg.REST.BaseURL, cfg.REST.Timeout, nil),
		Events:    events,
		Notices:   usecase.NewSessionNotices(broadcastUC),
		Metrics:   meters,
		NoticeTTL: cfg.Dashboard.NoticeTTL,
	}, cfg.Dashboard.ViewIdle)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		views.Run(ctx, sweepInterval)
	}()

	// Identity
	tokens := auth.NewSessionTokens(cfg.Session.Secret, cfg.Session.TTL)
	provider := identity.NewOAuthProvider(identity.ProviderConfig{
		ClientID:     cfg.Identity.ClientID,
		ClientSecret: cfg.Identity.ClientSecret,
		AuthURL:      cfg.Identity.AuthURL,
		TokenURL:     cfg.Identity.TokenURL,
		UserInfoURL:  cfg.Identity.UserInfoURL,
		LogoutURL:    cfg.Identity.LogoutURL,
		RedirectURL:  cfg.Identity.RedirectURL,
		Scopes:       cfg.Identity.Scopes,
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.Secure,
		StateTTL:     cfg.Identity.LoginStateTTL,
		Timeout:      cfg.REST.Timeout,
	}, tokens, nil)

	renderer, err := web.NewRenderer()
	if err != nil {
		slog.Error("templates", slog.Any("error", err))
		os.Exit(1)
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(writer)
	e.Logger.SetLevel(echoLevel(cfg.Logging.Level))
	e.Renderer = renderer
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(meters.Middleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok", "views": views.Len(), "clients": hub.Len()})
	})
	e.GET("/metrics", echo.WrapHandler(meters.Handler()))

	identityhttp.RegisterRoutes(e, provider, sessionCloser{views: views, hub: hub}, cfg.Server.PublicURL)
	dashboardhttp.RegisterRoutes(e, provider, views, hub, dashboardhttp.Options{
		LoadWait: cfg.Dashboard.LoadWait,
		Websocket: realtimehttp.WebsocketOptions{
			SendBuffer:     cfg.Websocket.SendBuffer,
			AllowedOrigins: cfg.Websocket.AllowedOrigins,
		},
	})

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("error", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", slog.Any("error", err))
	}
	cancel()
	<-sweeperDone
	consumers.Wait()
	hub.Close()
	if closer, ok := events.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("dispatch producer close", slog.Any("error", err))
		}
	}
}

// sessionCloser drops everything a session holds on logout: its dashboard
// view and its websocket clients.
type sessionCloser struct {
	views *dashboard.Registry
	hub   *infrastructure.Hub
}

func (s sessionCloser) Unmount(sessionID string) {
	s.views.Unmount(sessionID)
	if n := s.hub.DisconnectSession(sessionID); n > 0 {
		slog.Info("session websockets closed", slog.String("sessionId", sessionID), slog.Int("clients", n))
	}
}

type telemetryCounter struct {
	realtimeport.TopicHandler
	meters *metrics.Metrics
}

func countTelemetry(h realtimeport.TopicHandler, m *metrics.Metrics) realtimeport.TopicHandler {
	return telemetryCounter{TopicHandler: h, meters: m}
}

func (t telemetryCounter) Handle(ctx context.Context, msg *domain.Message) error {
	err := t.TopicHandler.Handle(ctx, msg)
	if err == nil {
		t.meters.TelemetryForwarded.Inc()
	}
	return err
}

func echoLevel(raw string) log.Lvl {
	switch logging.ParseLevel(raw) {
	case slog.LevelDebug, slog.LevelDebug - 2:
		return log.DEBUG
	case slog.LevelWarn:
		return log.WARN
	case slog.LevelError:
		return log.ERROR
	default:
		return log.INFO
	}
}
