package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Server captures process-level configuration, loaded from the environment.
type Server struct {
	Addr        string `envconfig:"CASEDESK_ADDR" default:":8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// StoreBackend selects case persistence: memory or postgres.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`

	// NotificationBackend selects notification persistence: memory or redis.
	NotificationBackend string `envconfig:"NOTIFICATION_BACKEND" default:"memory"`
	Redis               RedisConfig

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"case-lifecycle"`

	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Prefix       string `envconfig:"S3_PREFIX" default:"cases"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	CatalogPath string `envconfig:"CATALOG_PATH"`

	// TerminalPolicy decides whether approved/rejected cases may move again.
	TerminalPolicy string `envconfig:"CASE_TERMINAL_POLICY" default:"enforce"`
	IDStrategy     string `envconfig:"ID_STRATEGY" default:"uuid"`
	NotifyOnEvents bool   `envconfig:"NOTIFY_ON_EVENTS" default:"false"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// RedisConfig holds connection settings for the notification store.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// IsProduction reports whether the process runs in production mode.
func (s Server) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// FromEnv builds a Server config from environment variables and validates the
// combinations that would otherwise fail late during wiring.
func FromEnv() (Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return Server{}, fmt.Errorf("process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks backend selections against their required settings.
func (s Server) Validate() error {
	switch s.StoreBackend {
	case "memory":
	case "postgres":
		if s.DatabaseURL == "" {
			return fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", s.StoreBackend)
	}

	switch s.NotificationBackend {
	case "memory":
	case "redis":
		if s.Redis.URL == "" {
			return fmt.Errorf("NOTIFICATION_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown NOTIFICATION_BACKEND %q", s.NotificationBackend)
	}

	switch s.TerminalPolicy {
	case "enforce", "allow":
	default:
		return fmt.Errorf("unknown CASE_TERMINAL_POLICY %q", s.TerminalPolicy)
	}

	switch s.IDStrategy {
	case "uuid", "nanoid":
	default:
		return fmt.Errorf("unknown ID_STRATEGY %q", s.IDStrategy)
	}
	return nil
}
