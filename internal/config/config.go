package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

var ErrIdentityNotConfigured = errors.New("identity provider not configured")

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	REST      RESTConfig
	Identity  IdentityConfig
	Session   SessionConfig
	Dashboard DashboardConfig
	Kafka     KafkaConfig
	Websocket WebsocketConfig
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	// PublicURL is the origin browsers use to reach the server; logout returns here.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
}

type LoggingConfig struct {
	Directory string `env:"LOG_DIRECTORY" envDefault:"./logs"`
	Level     string `env:"LOG_LEVEL" envDefault:"info"`
	Format    string `env:"LOG_FORMAT" envDefault:"text"`
}

// RESTConfig points at the backend that serves /shelters and /request-waymo.
type RESTConfig struct {
	BaseURL string        `env:"REST_BASE_URL" envDefault:"http://localhost:8000"`
	Timeout time.Duration `env:"REST_TIMEOUT" envDefault:"10s"`
}

type IdentityConfig struct {
	ClientID     string   `env:"IDENTITY_CLIENT_ID"`
	ClientSecret string   `env:"IDENTITY_CLIENT_SECRET"`
	AuthURL      string   `env:"IDENTITY_AUTH_URL"`
	TokenURL     string   `env:"IDENTITY_TOKEN_URL"`
	UserInfoURL  string   `env:"IDENTITY_USERINFO_URL"`
	LogoutURL    string   `env:"IDENTITY_LOGOUT_URL"`
	RedirectURL  string   `env:"IDENTITY_REDIRECT_URL" envDefault:"http://localhost:8080/callback"`
	Scopes       []string `env:"IDENTITY_SCOPES" envSeparator:"," envDefault:"openid,profile,email"`
	// LoginStateTTL bounds how long a started login may take to come back through /callback.
	LoginStateTTL time.Duration `env:"IDENTITY_LOGIN_STATE_TTL" envDefault:"10m"`
}

type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"evacumate_session"`
	Secret     string        `env:"SESSION_SECRET"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"8h"`
	Secure     bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
}

type DashboardConfig struct {
	NoticeTTL time.Duration `env:"DASHBOARD_NOTICE_TTL" envDefault:"5s"`
	LoadWait  time.Duration `env:"DASHBOARD_LOAD_WAIT" envDefault:"2s"`
	ViewIdle  time.Duration `env:"DASHBOARD_VIEW_IDLE_TTL" envDefault:"30m"`
}

type KafkaConfig struct {
	Brokers         []string `env:"KAFKA_BROKERS" envSeparator:","`
	GroupID         string   `env:"KAFKA_GROUP_ID" envDefault:"evacumate-web"`
	DispatchTopic   string   `env:"KAFKA_DISPATCH_TOPIC" envDefault:"dispatch.requested"`
	TelemetryTopics []string `env:"KAFKA_TELEMETRY_TOPICS" envSeparator:"," envDefault:"vehicles.telemetry"`
}

type WebsocketConfig struct {
	SendBuffer     int      `env:"WS_SEND_BUFFER" envDefault:"8"`
	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
}

// Load parses the process environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)
	cfg.Kafka.TelemetryTopics = compact(cfg.Kafka.TelemetryTopics)
	cfg.Websocket.AllowedOrigins = compact(cfg.Websocket.AllowedOrigins)
	cfg.Server.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.Server.PublicURL), "/")
	return &cfg, nil
}

// Validate reports settings the web server cannot start without.
func (c *Config) Validate() error {
	if err := c.Identity.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Dashboard.NoticeTTL <= 0 {
		return fmt.Errorf("DASHBOARD_NOTICE_TTL must be positive")
	}
	if _, err := url.Parse(c.REST.BaseURL); err != nil {
		return fmt.Errorf("REST_BASE_URL: %w", err)
	}
	return nil
}

func (c IdentityConfig) Validate() error {
	missing := make([]string, 0)
	if strings.TrimSpace(c.ClientID) == "" {
		missing = append(missing, "IDENTITY_CLIENT_ID")
	}
	if strings.TrimSpace(c.AuthURL) == "" {
		missing = append(missing, "IDENTITY_AUTH_URL")
	}
	if strings.TrimSpace(c.TokenURL) == "" {
		missing = append(missing, "IDENTITY_TOKEN_URL")
	}
	if strings.TrimSpace(c.UserInfoURL) == "" {
		missing = append(missing, "IDENTITY_USERINFO_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIdentityNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
