// Package config loads sqlinspect settings from defaults, a YAML file,
// SQLINSPECT_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	sqlinspect "github.com/shakram02/go-sql-inspect"
)

// EnvPrefix prefixes every environment variable, e.g. SQLINSPECT_DATABASE_URL.
const EnvPrefix = "SQLINSPECT"

// Config is the root configuration struct.
type Config struct {
	Env        string           `mapstructure:"env" validate:"omitempty,oneof=dev development prod production"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Query      QueryConfig      `mapstructure:"query"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Log        LogConfig        `mapstructure:"log"`
}

// DatabaseConfig holds the connection URL and pool settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required"`
	ReadOnly        bool          `mapstructure:"read_only"`
	PostgresDriver  string        `mapstructure:"postgres_driver" validate:"oneof=pq pgx"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"min=0"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" validate:"min=0"`
}

// QueryConfig bounds ad-hoc query execution.
type QueryConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`
	MaxRows int           `mapstructure:"max_rows" validate:"min=0"`
}

// PaginationConfig holds page sizes for table browsing and query results.
type PaginationConfig struct {
	RowsPerPage      int `mapstructure:"rows_per_page" validate:"min=1"`
	QueryRowsPerPage int `mapstructure:"query_rows_per_page" validate:"min=1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"database-url":    "database.url",
	"read-only":       "database.read_only",
	"postgres-driver": "database.postgres_driver",
	"query-timeout":   "query.timeout",
	"max-rows":        "query.max_rows",
	"rows-per-page":   "pagination.rows_per_page",
	"log-level":       "log.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("database.read_only", false)
	v.SetDefault("database.postgres_driver", "pq")
	v.SetDefault("database.max_open_conns", sqlinspect.MaxConnectionsOpen)
	v.SetDefault("database.max_idle_conns", sqlinspect.MaxConnectionsIdle)
	v.SetDefault("database.conn_max_lifetime", sqlinspect.ConnMaxLifetime)
	v.SetDefault("database.connect_timeout", sqlinspect.ConnectionTimeout)

	v.SetDefault("query.timeout", 30*time.Second)
	v.SetDefault("query.max_rows", 10000)

	v.SetDefault("pagination.rows_per_page", sqlinspect.DefaultRowsPerPage)
	v.SetDefault("pagination.query_rows_per_page", sqlinspect.DefaultQueryRowsPerPage)

	v.SetDefault("log.level", "info")
}

// bindFlags binds explicitly set flags, translating names through flagToViperKey.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if mapped, ok := flagToViperKey[key]; ok {
			key = mapped
		}
		if f.Changed {
			_ = v.BindPFlag(key, f)
		}
	})
}

// Load reads configuration and returns a validated Config.
// Order of precedence (highest to lowest): flags > env > config file > defaults.
// An empty configFile looks for sqlinspect.yaml in the working directory.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("sqlinspect")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about.
	_ = v.BindEnv("database.url")

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// IsProduction reports whether the environment is prod or production.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Descriptor parses the configured URL. When read_only is set and the URL
// does not already ask for it, mode=ro is appended before parsing so the
// descriptor stays the single source of truth.
func (c *DatabaseConfig) Descriptor() (*sqlinspect.ConnectionDescriptor, error) {
	raw := c.URL
	if c.ReadOnly {
		desc, err := sqlinspect.ParseURL(raw)
		if err != nil {
			return nil, err
		}
		if !desc.ReadOnly() {
			sep := "?"
			if strings.Contains(raw, "?") {
				sep = "&"
			}
			raw += sep + "mode=ro"
		}
	}
	return sqlinspect.ParseURL(raw)
}

// OpenOptions translates pool settings into sqlinspect options.
func (c *DatabaseConfig) OpenOptions(logger *slog.Logger) []sqlinspect.Option {
	driver := sqlinspect.PostgresDriverPQ
	if c.PostgresDriver == "pgx" {
		driver = sqlinspect.PostgresDriverPGX
	}
	opts := []sqlinspect.Option{
		sqlinspect.WithPool(c.MaxOpenConns, c.MaxIdleConns, c.ConnMaxLifetime),
		sqlinspect.WithPostgresDriver(driver),
	}
	if c.ConnectTimeout > 0 {
		opts = append(opts, sqlinspect.WithConnectTimeout(c.ConnectTimeout))
	}
	if logger != nil {
		opts = append(opts, sqlinspect.WithLogger(logger))
	}
	return opts
}
