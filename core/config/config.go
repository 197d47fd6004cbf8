package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	LogLevel string         `mapstructure:"log_level"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// OAuthConfig carries the credentials for every supported provider plus the
// values shared across them: the redirect URI the frontend handles and the
// secret that signs OAuth state payloads.
type OAuthConfig struct {
	RedirectURI    string               `mapstructure:"redirect_uri"`
	StateSecret    string               `mapstructure:"state_secret"`
	Strava         ProviderCredentials  `mapstructure:"strava"`
	Fitbit         ProviderCredentials  `mapstructure:"fitbit"`
	CalorieTracker CalorieTrackerConfig `mapstructure:"calorietracker"`
}

type ProviderCredentials struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type CalorieTrackerConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BaseURL      string `mapstructure:"base_url"`
}

// ArchiveConfig configures the optional S3 sink for raw provider payloads.
type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type WorkerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Concurrency int    `mapstructure:"concurrency"`
	SyncCron    string `mapstructure:"sync_cron"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads .env when present, then the environment (HEALTHTRACK_ prefix,
// dots become underscores), and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HEALTHTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyDefaults(v)

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	cfg = &c
	return cfg, nil
}

// Get returns the loaded config, or nil before Load.
func Get() *Config {
	return cfg
}

// GetSafe returns the config, loading it on first use. A load failure still
// yields a defaults-only config so callers never receive nil.
func GetSafe() *Config {
	once.Do(func() {
		if cfg == nil {
			if _, err := Load(); err != nil {
				v := viper.New()
				applyDefaults(v)
				var c Config
				_ = v.Unmarshal(&c)
				cfg = &c
			}
		}
	})
	return cfg
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "7070")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "healthtrack")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry_hours", 72)

	v.SetDefault("oauth.redirect_uri", "")
	v.SetDefault("oauth.state_secret", "")
	v.SetDefault("oauth.strava.client_id", "")
	v.SetDefault("oauth.strava.client_secret", "")
	v.SetDefault("oauth.fitbit.client_id", "")
	v.SetDefault("oauth.fitbit.client_secret", "")
	v.SetDefault("oauth.calorietracker.client_id", "")
	v.SetDefault("oauth.calorietracker.client_secret", "")
	v.SetDefault("oauth.calorietracker.base_url", "https://api.calorietracker.io")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "ap-southeast-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.sync_cron", "0 * * * *")

	v.SetDefault("log_level", "info")
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	if c.OAuth.StateSecret == "" {
		return fmt.Errorf("config: oauth.state_secret is required")
	}
	if c.OAuth.RedirectURI == "" {
		return fmt.Errorf("config: oauth.redirect_uri is required")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("config: archive.bucket is required when archive is enabled")
	}
	return nil
}
