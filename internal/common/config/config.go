package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Model    ModelConfig    `mapstructure:"model"`
	Triage   TriageConfig   `mapstructure:"triage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ModelConfig holds settings for the external LLM collaborator.
type ModelConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	// Timeout in milliseconds for a single model call. Zero means no timeout:
	// a hung call stalls only its own run worker.
	Timeout int `mapstructure:"timeout"`
}

// TriageConfig holds settings for the run pipeline and the event stream.
type TriageConfig struct {
	// EventBuffer is the per-run event channel capacity.
	EventBuffer int `mapstructure:"event_buffer"`
	// HeartbeatInterval is the idle wait in seconds before the streaming
	// consumer emits a synthetic heartbeat.
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	// ProductCacheTTL is the active-product cache TTL in seconds.
	ProductCacheTTL int `mapstructure:"product_cache_ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
