// Package config loads the gateway configuration from file, environment and
// dotenv files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// AppFs is the filesystem configuration and dotenv files are read from.
var AppFs = afero.NewOsFs()

const (
	// FileName is the config file searched for without extension.
	FileName = ".querygate"
	// EnvPrefix prefixes environment overrides, e.g. QUERYGATE_SERVER_PORT.
	EnvPrefix = "QUERYGATE"
)

// Providers lists the supported database providers.
var Providers = []string{"sqlite", "postgres", "mysql", "duckdb"}

// Config represents application configuration.
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Log       LogConfig
	Catalog   CatalogConfig
	Query     QueryConfig
	Telemetry TelemetryConfig

	// File is the config file that was read, empty when none was found.
	File string
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	Provider            string
	URL                 string
	MaxConnections      int
	MaxIdleConns        int
	MaxIdleTime         time.Duration
	ConnMaxLifetime     time.Duration
	ConnectTimeout      time.Duration
	HealthCheckInterval time.Duration
	ReadOnly            bool
}

// ServerConfig represents HTTP gateway configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// CatalogConfig represents schema catalog configuration.
type CatalogConfig struct {
	Watch            bool
	WatchDebounce    time.Duration
	ReservedPrefixes []string
}

// QueryConfig represents query compilation configuration.
type QueryConfig struct {
	PlanCacheSize int
}

// TelemetryConfig represents telemetry configuration.
type TelemetryConfig struct {
	Type    string
	Buckets []float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.provider", "sqlite")
	v.SetDefault("database.url", "./db/chinook.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_idle_time", "5m")
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.health_check_interval", "0s")
	v.SetDefault("database.read_only", true)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", int64(1<<20))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("catalog.watch", false)
	v.SetDefault("catalog.watch_debounce", "500ms")
	v.SetDefault("catalog.reserved_prefixes", []string{})

	v.SetDefault("query.plan_cache_size", 256)

	v.SetDefault("telemetry.type", "memory")
	v.SetDefault("telemetry.buckets", []float64{})
}

// Load loads configuration from various sources. An explicit path must
// exist; otherwise .querygate.yaml is searched in the working directory,
// the home directory and ~/.config/querygate, and a missing file is not an
// error. Environment variables override the file, and DATABASE_URL
// overrides database.url.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetFs(AppFs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := loadDotenv(); err != nil {
		return nil, err
	}

	if path != "" {
		if _, err := AppFs.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
			v.AddConfigPath(filepath.Join(home, ".config", "querygate"))
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	buckets, err := floats(v.Get("telemetry.buckets"))
	if err != nil {
		return nil, fmt.Errorf("invalid telemetry.buckets: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Provider:            NormalizeProvider(v.GetString("database.provider")),
			URL:                 v.GetString("database.url"),
			MaxConnections:      v.GetInt("database.max_connections"),
			MaxIdleConns:        v.GetInt("database.max_idle_conns"),
			MaxIdleTime:         v.GetDuration("database.max_idle_time"),
			ConnMaxLifetime:     v.GetDuration("database.conn_max_lifetime"),
			ConnectTimeout:      v.GetDuration("database.connect_timeout"),
			HealthCheckInterval: v.GetDuration("database.health_check_interval"),
			ReadOnly:            v.GetBool("database.read_only"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			MaxBodyBytes:    v.GetInt64("server.max_body_bytes"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Catalog: CatalogConfig{
			Watch:            v.GetBool("catalog.watch"),
			WatchDebounce:    v.GetDuration("catalog.watch_debounce"),
			ReservedPrefixes: v.GetStringSlice("catalog.reserved_prefixes"),
		},
		Query: QueryConfig{
			PlanCacheSize: v.GetInt("query.plan_cache_size"),
		},
		Telemetry: TelemetryConfig{
			Type:    v.GetString("telemetry.type"),
			Buckets: buckets,
		},
		File: v.ConfigFileUsed(),
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}

	return cfg, nil
}

// NormalizeProvider lowercases a provider name and maps aliases such as
// postgresql and sqlite3 to their canonical names.
func NormalizeProvider(name string) string {
	switch p := strings.ToLower(strings.TrimSpace(name)); p {
	case "postgresql", "pg":
		return "postgres"
	case "sqlite3":
		return "sqlite"
	default:
		return p
	}
}

// loadDotenv applies .env without overriding the environment, then
// .env.local with override.
func loadDotenv() error {
	for _, f := range []struct {
		name     string
		override bool
	}{{".env", false}, {".env.local", true}} {
		data, err := afero.ReadFile(AppFs, f.name)
		if err != nil {
			continue
		}
		vars, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", f.name, err)
		}
		for k, val := range vars {
			if _, set := os.LookupEnv(k); set && !f.override {
				continue
			}
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// floats reads a bucket list from a config file sequence or from an
// environment string separated by commas or spaces.
func floats(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		raw = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	return cast.ToFloat64SliceE(raw)
}

// Validate checks the configuration for values the gateway cannot run with.
func (c *Config) Validate() error {
	known := false
	for _, p := range Providers {
		if c.Database.Provider == p {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unsupported database provider %q (expected one of %s)",
			c.Database.Provider, strings.Join(Providers, ", "))
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.MaxConnections < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must not be negative")
	}
	if c.Query.PlanCacheSize < 0 {
		return fmt.Errorf("query.plan_cache_size must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	return nil
}

// WriteDefault writes a config file holding the defaults to path.
func WriteDefault(path string) error {
	if _, err := AppFs.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := AppFs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	v := viper.New()
	v.SetFs(AppFs)
	setDefaults(v)
	v.SetConfigType("yaml")
	return v.WriteConfigAs(path)
}
