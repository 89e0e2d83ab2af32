package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/KeyIP-Docket/internal/config"
)

// validConfig is the default configuration plus the one field defaults leave
// empty.
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Database.Password = "secret"
	return cfg
}

func TestConfig_Validate_Defaults(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Infrastructure(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"port zero", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *config.Config) { c.Server.Port = 65536 }, "server.port"},
		{"unknown gin mode", func(c *config.Config) { c.Server.Mode = "production" }, "server.mode"},
		{"no database host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"database port", func(c *config.Config) { c.Database.Port = -5 }, "database.port"},
		{"no database user", func(c *config.Config) { c.Database.User = "" }, "database.user"},
		{"no database name", func(c *config.Config) { c.Database.DBName = "" }, "database.db_name"},
		{"empty pool", func(c *config.Config) { c.Database.MaxConns = 0 }, "max_conns"},
		{"no redis", func(c *config.Config) { c.Redis.Addr = "" }, "redis.addr"},
		{"negative redis db", func(c *config.Config) { c.Redis.DB = -1 }, "redis.db"},
		{"no brokers", func(c *config.Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"no consumer group", func(c *config.Config) { c.Kafka.GroupID = "" }, "kafka.group_id"},
		{"negative retries", func(c *config.Config) { c.Worker.MaxRetries = -1 }, "worker.max_retries"},
		{"log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_Validate_Docket(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*config.DocketConfig)
		want   string
	}{
		{"negative default fee", func(d *config.DocketConfig) { d.DefaultFee = -1 }, "default_fee"},
		{"zero grace factor", func(d *config.DocketConfig) { d.DefaultGraceFactor = 0 }, "default_grace_factor"},
		{"vat of one", func(d *config.DocketConfig) { d.VATRate = 1 }, "vat_rate"},
		{"horizon too long", func(d *config.DocketConfig) { d.RenewalHorizonYears = 99 }, "renewal_horizon_years"},
		{"negative look-back", func(d *config.DocketConfig) { d.DefaultLookBackMonths = -1 }, "look-back"},
		{"no renewal code", func(d *config.DocketConfig) { d.RenewalTaskCode = "" }, "renewal_task_code"},
		{"no languages", func(d *config.DocketConfig) { d.Languages = nil }, "languages"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg.Docket)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_ZeroValueFails(t *testing.T) {
	t.Parallel()
	var cfg config.Config
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Error(t, cfg.Validate())
}

//Personal.AI order the ending
