// Package config loads the service configuration from environment
// variables and validates the policy values consumed by the ledger.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/govalues/decimal"

	"github.com/minimize/economyd/internal/errs"
)

// Config is the root configuration for economyd.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"ADDR" envDefault:":8080"`
	// DataDir holds the snapshot and transaction log files when no
	// database is configured.
	DataDir string `env:"DATA_DIR" envDefault:"./data"`
	// DatabaseURL switches persistence to Postgres when non-empty.
	DatabaseURL string `env:"DATABASE_URL"`
	// FlushInterval is how often the ledger snapshot is written.
	FlushInterval time.Duration `env:"FLUSH_INTERVAL" envDefault:"5m"`

	// FactionPointsEnabled gates all faction point operations.
	FactionPointsEnabled bool `env:"FACTION_POINTS_ENABLED" envDefault:"true"`
	// MaxBalanceEnabled turns the balance cap on.
	MaxBalanceEnabled bool `env:"MAX_BALANCE_ENABLED" envDefault:"false"`
	// MaxBalance is the cap applied to balances on write when enabled.
	MaxBalance string `env:"MAX_BALANCE" envDefault:"999999999.99"`
	// DecimalPlaces controls money formatting in API responses.
	DecimalPlaces int `env:"DECIMAL_PLACES" envDefault:"2"`
	// LogToConsole makes the transaction log also emit a log line per record.
	LogToConsole bool `env:"LOG_TO_CONSOLE" envDefault:"true"`
	// HistoryPageSize is the default page size for history queries.
	HistoryPageSize int `env:"HISTORY_PAGE_SIZE" envDefault:"200"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	maxBalance decimal.Decimal
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	max, err := decimal.Parse(cfg.MaxBalance)
	if err != nil {
		return Config{}, fmt.Errorf("%w: MAX_BALANCE %q: %v", errs.ErrInvalid, cfg.MaxBalance, err)
	}
	if max.IsNeg() {
		return Config{}, fmt.Errorf("%w: MAX_BALANCE must not be negative", errs.ErrInvalid)
	}
	cfg.maxBalance = max
	if cfg.HistoryPageSize < 1 {
		return Config{}, fmt.Errorf("%w: HISTORY_PAGE_SIZE must be >= 1", errs.ErrInvalid)
	}
	if cfg.DecimalPlaces < 0 || cfg.DecimalPlaces > decimal.MaxScale {
		return Config{}, fmt.Errorf("%w: DECIMAL_PLACES out of range", errs.ErrInvalid)
	}
	if cfg.FlushInterval <= 0 {
		return Config{}, fmt.Errorf("%w: FLUSH_INTERVAL must be positive", errs.ErrInvalid)
	}
	return cfg, nil
}

// MaxBalanceLimit returns the parsed balance cap. Only meaningful when
// MaxBalanceEnabled is true.
func (c Config) MaxBalanceLimit() decimal.Decimal {
	return c.maxBalance
}
