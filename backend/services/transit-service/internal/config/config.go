package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "transitkiosk/backend/libs/config"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config defines transit service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Seed      SeedConfig      `yaml:"seed"`
}

type HTTPConfig struct {
	Port string `yaml:"port" env:"TRANSIT_HTTP_PORT"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"dsn" env:"TRANSIT_POSTGRES_DSN"`
	MaxOpenConns int    `yaml:"maxOpenConns" env:"TRANSIT_POSTGRES_MAX_CONNS"`
	AutoMigrate  bool   `yaml:"autoMigrate" env:"TRANSIT_AUTO_MIGRATE"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"TRANSIT_STORAGE_DRIVER"`
}

// RedisConfig is optional. An empty Addr disables the active-trip cache and the shared
// trip event channel.
type RedisConfig struct {
	Addr          string `yaml:"addr" env:"TRANSIT_REDIS_ADDR"`
	Password      string `yaml:"password" env:"TRANSIT_REDIS_PASSWORD"`
	DB            int           `yaml:"db" env:"TRANSIT_REDIS_DB"`
	TTL           time.Duration `yaml:"ttl" env:"TRANSIT_REDIS_TTL"`
	EventsChannel string        `yaml:"eventsChannel" env:"TRANSIT_REDIS_EVENTS_CHANNEL"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwtSecret" env:"TRANSIT_JWT_SECRET"`
	JWTExpiration     time.Duration `yaml:"jwtExpiration" env:"TRANSIT_JWT_EXPIRATION"`
	AdminUser         string        `yaml:"adminUser" env:"TRANSIT_ADMIN_USER"`
	AdminPasswordHash string        `yaml:"adminPasswordHash" env:"TRANSIT_ADMIN_PASSWORD_HASH"`
	RequireAPIKey     bool          `yaml:"requireApiKey" env:"TRANSIT_REQUIRE_API_KEY"`
}

// WebSocketConfig tunes the live trip feed. An empty AllowedOrigins accepts any origin.
type WebSocketConfig struct {
	PingInterval   time.Duration `yaml:"pingInterval" env:"TRANSIT_WS_PING_INTERVAL"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" env:"TRANSIT_WS_WRITE_TIMEOUT"`
	AllowedOrigins []string      `yaml:"allowedOrigins" env:"TRANSIT_WS_ALLOWED_ORIGINS"`
}

type SeedConfig struct {
	Defaults bool `yaml:"defaults" env:"TRANSIT_SEED_DEFAULTS"`
}

// Default returns the configuration used before the file and environment are applied.
func Default() *Config {
	return &Config{
		HTTP:     HTTPConfig{Port: "8080"},
		Database: DatabaseConfig{MaxOpenConns: 25, AutoMigrate: true},
		Storage:  StorageConfig{Driver: DriverPostgres},
		Redis:    RedisConfig{TTL: 24 * time.Hour, EventsChannel: "transit:trip-events"},
		Auth: AuthConfig{
			JWTExpiration: time.Hour,
			AdminUser:     "admin",
			RequireAPIKey: true,
		},
		WebSocket: WebSocketConfig{PingInterval: 30 * time.Second, WriteTimeout: 10 * time.Second},
	}
}

// Load reads configuration from CONFIG_FILE and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML path that takes precedence over CONFIG_FILE.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.TrimSpace(path) != "" {
		err = libconfig.LoadConfigFile(path, cfg)
	} else {
		err = libconfig.LoadConfig(cfg)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("config: database dsn required for postgres storage")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Auth.AdminPasswordHash != "" && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("config: jwt secret required when admin login is enabled")
	}
	if c.Redis.DB < 0 {
		return errors.New("config: redis db must not be negative")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// ActiveTripTTL returns the cache ttl, falling back to a day.
func (c *Config) ActiveTripTTL() time.Duration {
	return orDefault(c.Redis.TTL, 24*time.Hour)
}

// JWTExpiration returns the admin token lifetime.
func (c *Config) JWTExpiration() time.Duration {
	return orDefault(c.Auth.JWTExpiration, time.Hour)
}

// PingInterval is the websocket keepalive period.
func (c *Config) PingInterval() time.Duration {
	return orDefault(c.WebSocket.PingInterval, 30*time.Second)
}

// WriteTimeout bounds each websocket write.
func (c *Config) WriteTimeout() time.Duration {
	return orDefault(c.WebSocket.WriteTimeout, 10*time.Second)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
