// Package config defines all configuration structures for KeyIP-Docket.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds the worker's operational HTTP endpoint (health, metrics).
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxConns         int           `mapstructure:"max_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	MigrationPath    string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	Acks            string        `mapstructure:"acks"`              // "none" | "one" | "all"
	ProducerRetries int           `mapstructure:"producer_retries"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	// EnsureTopics makes the worker create the docket topics on startup.
	EnsureTopics    bool          `mapstructure:"ensure_topics"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Topics          []string      `mapstructure:"topics"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
	HandlerTimeout  time.Duration `mapstructure:"handler_timeout"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// MetricsConfig holds Prometheus collector parameters.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	Subsystem            string `mapstructure:"subsystem"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
}

// DocketConfig holds the business parameters of the rule engine, the
// renewal schedule and the fee calculation.
type DocketConfig struct {
	// DefaultFee is the administrative part of a task fee that is not scaled
	// by the grace factor.
	DefaultFee float64 `mapstructure:"default_fee"`
	// DefaultGraceFactor multiplies DefaultFee while a renewal is in grace.
	DefaultGraceFactor float64 `mapstructure:"default_grace_factor"`
	VATRate            float64 `mapstructure:"vat_rate"`
	QuoteValidityDays  int     `mapstructure:"quote_validity_days"`
	NoticeDays         int     `mapstructure:"notice_days"`

	RenewalHorizonYears         int      `mapstructure:"renewal_horizon_years"`
	DefaultLookBackMonths       int      `mapstructure:"default_look_back_months"`
	InternationalLookBackMonths int      `mapstructure:"international_look_back_months"`
	DefaultGraceMonths          int      `mapstructure:"default_grace_months"`
	InternationalGraceMonths    int      `mapstructure:"international_grace_months"`
	InternationalOrigins        []string `mapstructure:"international_origins"`

	RenewalTaskCode   string   `mapstructure:"renewal_task_code"`
	PriorityEventCode string   `mapstructure:"priority_event_code"`
	FilingEventCode   string   `mapstructure:"filing_event_code"`
	Languages         []string `mapstructure:"languages"`

	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Docket   DocketConfig   `mapstructure:"docket"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	// Worker
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("config: worker.max_retries must be >= 0, got %d", c.Worker.MaxRetries)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return c.Docket.Validate()
}

// Validate checks the business parameters.
func (d *DocketConfig) Validate() error {
	if d.DefaultFee < 0 {
		return fmt.Errorf("config: docket.default_fee must be >= 0, got %v", d.DefaultFee)
	}
	if d.DefaultGraceFactor <= 0 {
		return fmt.Errorf("config: docket.default_grace_factor must be > 0, got %v", d.DefaultGraceFactor)
	}
	if d.VATRate < 0 || d.VATRate >= 1 {
		return fmt.Errorf("config: docket.vat_rate must be in [0, 1), got %v", d.VATRate)
	}
	if d.RenewalHorizonYears < 1 || d.RenewalHorizonYears > 50 {
		return fmt.Errorf("config: docket.renewal_horizon_years must be in [1, 50], got %d", d.RenewalHorizonYears)
	}
	if d.DefaultLookBackMonths < 0 || d.InternationalLookBackMonths < 0 {
		return fmt.Errorf("config: docket look-back windows must be >= 0")
	}
	if d.DefaultGraceMonths < 0 || d.InternationalGraceMonths < 0 {
		return fmt.Errorf("config: docket grace windows must be >= 0")
	}
	if d.RenewalTaskCode == "" {
		return fmt.Errorf("config: docket.renewal_task_code is required")
	}
	if len(d.Languages) == 0 {
		return fmt.Errorf("config: docket.languages must contain at least one language")
	}
	return nil
}

//Personal.AI order the ending
