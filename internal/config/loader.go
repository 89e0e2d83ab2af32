// Package config provides configuration loading, defaults, and validation for
// KeyIP-Docket.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "KEYIP"

// newViper builds a pre-configured Viper instance: YAML file type, KEYIP_ env
// prefix, automatic env binding and a "." → "_" key replacer so that nested
// keys like "database.host" resolve to "KEYIP_DATABASE_HOST".
//
// Every key is registered with SetDefault because viper only consults the
// environment for keys it already knows about during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerDefaults(v, NewDefaultConfig())
	return v
}

func registerDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", d.Database.DBName)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)
	v.SetDefault("database.statement_timeout", d.Database.StatementTimeout)
	v.SetDefault("database.migration_path", d.Database.MigrationPath)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.group_id", d.Kafka.GroupID)
	v.SetDefault("kafka.auto_offset_reset", d.Kafka.AutoOffsetReset)
	v.SetDefault("kafka.acks", d.Kafka.Acks)
	v.SetDefault("kafka.ensure_topics", d.Kafka.EnsureTopics)

	v.SetDefault("worker.topics", d.Worker.Topics)
	v.SetDefault("worker.max_retries", d.Worker.MaxRetries)
	v.SetDefault("worker.retry_backoff", d.Worker.RetryBackoff)
	v.SetDefault("worker.max_retry_backoff", d.Worker.MaxRetryBackoff)
	v.SetDefault("worker.handler_timeout", d.Worker.HandlerTimeout)
	v.SetDefault("worker.dead_letter_topic", d.Worker.DeadLetterTopic)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.subsystem", d.Metrics.Subsystem)

	v.SetDefault("docket.default_fee", d.Docket.DefaultFee)
	v.SetDefault("docket.default_grace_factor", d.Docket.DefaultGraceFactor)
	v.SetDefault("docket.vat_rate", d.Docket.VATRate)
	v.SetDefault("docket.quote_validity_days", d.Docket.QuoteValidityDays)
	v.SetDefault("docket.notice_days", d.Docket.NoticeDays)
	v.SetDefault("docket.renewal_horizon_years", d.Docket.RenewalHorizonYears)
	v.SetDefault("docket.default_look_back_months", d.Docket.DefaultLookBackMonths)
	v.SetDefault("docket.international_look_back_months", d.Docket.InternationalLookBackMonths)
	v.SetDefault("docket.default_grace_months", d.Docket.DefaultGraceMonths)
	v.SetDefault("docket.international_grace_months", d.Docket.InternationalGraceMonths)
	v.SetDefault("docket.international_origins", d.Docket.InternationalOrigins)
	v.SetDefault("docket.renewal_task_code", d.Docket.RenewalTaskCode)
	v.SetDefault("docket.priority_event_code", d.Docket.PriorityEventCode)
	v.SetDefault("docket.filing_event_code", d.Docket.FilingEventCode)
	v.SetDefault("docket.languages", d.Docket.Languages)
	v.SetDefault("docket.lock_ttl", d.Docket.LockTTL)
	v.SetDefault("docket.cache_ttl", d.Docket.CacheTTL)
}

// Load reads the YAML file at configPath, merges any KEYIP_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from KEYIP_* environment variables,
// with no config file required.
//
//	KEYIP_<SECTION>_<FIELD>   e.g.  KEYIP_DATABASE_HOST, KEYIP_DOCKET_VAT_RATE
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrDefault loads configPath when it is non-empty and falls back to the
// environment otherwise.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file is modified.  The worker uses it to swap fee defaults
// (default_fee, default_grace_factor, vat_rate) without a restart.
//
// Watch is non-blocking.  A change that fails to parse or validate is
// reported through onError, if given, and onChange is not called.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is a convenience wrapper around Load that panics on any error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
