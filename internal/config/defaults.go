package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8081
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBUser     = "keyip"
	DefaultDBName     = "keyip_docket"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "keyip:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "keyip-docket-worker"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "keyip"
	DefaultMetricsSubsystem = "docket"

	DefaultGraceFactor                 = 1.5
	DefaultVATRate                     = 0.2
	DefaultQuoteValidityDays           = 30
	DefaultNoticeDays                  = 90
	DefaultRenewalHorizonYears         = 20
	DefaultLookBackMonths              = 6
	DefaultInternationalLookBackMonths = 19
	DefaultGraceMonths                 = 6
	DefaultInternationalGraceMonths    = 19
	DefaultRenewalTaskCode             = "REN"
	DefaultPriorityEventCode           = "PRI"
	DefaultFilingEventCode             = "FIL"
)

// ApplyDefaults fills every zero-value field in cfg with the default.
// Fields that have already been set are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "file://migrations"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	// DB 0 is both a valid explicit value and the default.

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.Acks == "" {
		cfg.Kafka.Acks = "all"
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = time.Second
	}
	if cfg.Worker.MaxRetryBackoff == 0 {
		cfg.Worker.MaxRetryBackoff = 30 * time.Second
	}
	if cfg.Worker.HandlerTimeout == 0 {
		cfg.Worker.HandlerTimeout = 5 * time.Minute
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}

	applyDocketDefaults(&cfg.Docket)
}

func applyDocketDefaults(d *DocketConfig) {
	if d.DefaultGraceFactor == 0 {
		d.DefaultGraceFactor = DefaultGraceFactor
	}
	if d.VATRate == 0 {
		d.VATRate = DefaultVATRate
	}
	if d.QuoteValidityDays == 0 {
		d.QuoteValidityDays = DefaultQuoteValidityDays
	}
	if d.NoticeDays == 0 {
		d.NoticeDays = DefaultNoticeDays
	}
	if d.RenewalHorizonYears == 0 {
		d.RenewalHorizonYears = DefaultRenewalHorizonYears
	}
	if d.DefaultLookBackMonths == 0 {
		d.DefaultLookBackMonths = DefaultLookBackMonths
	}
	if d.InternationalLookBackMonths == 0 {
		d.InternationalLookBackMonths = DefaultInternationalLookBackMonths
	}
	if d.DefaultGraceMonths == 0 {
		d.DefaultGraceMonths = DefaultGraceMonths
	}
	if d.InternationalGraceMonths == 0 {
		d.InternationalGraceMonths = DefaultInternationalGraceMonths
	}
	if len(d.InternationalOrigins) == 0 {
		d.InternationalOrigins = []string{"WO"}
	}
	if d.RenewalTaskCode == "" {
		d.RenewalTaskCode = DefaultRenewalTaskCode
	}
	if d.PriorityEventCode == "" {
		d.PriorityEventCode = DefaultPriorityEventCode
	}
	if d.FilingEventCode == "" {
		d.FilingEventCode = DefaultFilingEventCode
	}
	if len(d.Languages) == 0 {
		d.Languages = []string{"en", "fr", "de"}
	}
	if d.LockTTL == 0 {
		d.LockTTL = 30 * time.Second
	}
	if d.CacheTTL == 0 {
		d.CacheTTL = 10 * time.Minute
	}
}

// NewDefaultConfig returns a Config populated only with defaults.  The CLI
// falls back to it when no config file is found.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

//Personal.AI order the ending
