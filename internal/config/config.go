package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// StoreDriverPostgres keeps products in PostgreSQL
	StoreDriverPostgres = "postgres"

	// StoreDriverMemory keeps products in process memory
	StoreDriverMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Cache    CacheConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
}

// StoreConfig selects the product store backend
type StoreConfig struct {
	Driver string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled bool
	URL     string
}

// CacheConfig holds caching TTL configuration
type CacheConfig struct {
	ProductTTL     time.Duration
	ProductListTTL time.Duration
}

// Load reads configuration from environment variables and returns a Config struct
func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("SERVER_REQUEST_TIMEOUT", "30s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "product_catalog")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("DB_AUTO_MIGRATE", true)

	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("NATS_ENABLED", true)
	viper.SetDefault("NATS_URL", "nats://localhost:4222")

	viper.SetDefault("CACHE_TTL_PRODUCT", "300s")
	viper.SetDefault("CACHE_TTL_PRODUCT_LIST", "60s")

	durations := map[string]*time.Duration{}
	var readTimeout, writeTimeout, shutdownTimeout, requestTimeout, connMaxLifetime, productTTL, productListTTL time.Duration
	durations["SERVER_READ_TIMEOUT"] = &readTimeout
	durations["SERVER_WRITE_TIMEOUT"] = &writeTimeout
	durations["SERVER_SHUTDOWN_TIMEOUT"] = &shutdownTimeout
	durations["SERVER_REQUEST_TIMEOUT"] = &requestTimeout
	durations["DB_CONN_MAX_LIFETIME"] = &connMaxLifetime
	durations["CACHE_TTL_PRODUCT"] = &productTTL
	durations["CACHE_TTL_PRODUCT_LIST"] = &productListTTL

	for key, target := range durations {
		d, err := time.ParseDuration(viper.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = d
	}

	driver := strings.ToLower(strings.TrimSpace(viper.GetString("STORE_DRIVER")))
	if driver != StoreDriverPostgres && driver != StoreDriverMemory {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: must be %q or %q", driver, StoreDriverPostgres, StoreDriverMemory)
	}

	allowedOrigins := strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	config := &Config{
		Env:      viper.GetString("ENV"),
		LogLevel: viper.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			RequestTimeout:  requestTimeout,
			AllowedOrigins:  allowedOrigins,
		},
		Store: StoreConfig{
			Driver: driver,
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
			AutoMigrate:     viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			Enabled: viper.GetBool("NATS_ENABLED"),
			URL:     viper.GetString("NATS_URL"),
		},
		Cache: CacheConfig{
			ProductTTL:     productTTL,
			ProductListTTL: productListTTL,
		},
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
