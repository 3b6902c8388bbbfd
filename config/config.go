/*
Package config loads the server configuration from a TOML file.

PURPOSE:
  Every tunable of the pipeline lives here: the activity-day multiplier,
  the TC basis, category weights, the hour caps and the month-close
  schedule. Values absent from the file keep their defaults, so an empty
  file (or no file) runs the payroll defaults.

FILE:
  [server]
  port = 8080
  allowed_origins = ["http://localhost:5173"]

  [data]
  db_path = "wage.db"

  [engine]
  activity_days = 30
  workers = 8
  basis = "actual"      # actual | forecast | mtd_average
  places = 0            # bonus display rounding

  [allocation.weights]
  "1.1" = 2.0
  "1.2" = 1.0
  "2" = 0.7

  [hours]
  scheduled_cap = 0.7
  marketplace_cap = 0.3

  [scheduler]
  enabled = true
  interval = "1h"

  [log]
  development = false

LOOKUP:
  Load("") reads the file named by WAGE_ENGINE_CONFIG, or returns the
  defaults when the variable is unset. A named file that does not exist
  is an error.

SEE ALSO:
  - cmd/server/main.go: Flags override file values
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/warp/wage-engine/allocation"
	"github.com/warp/wage-engine/report"
	"github.com/warp/wage-engine/tier"
	"github.com/warp/wage-engine/variance"
	"github.com/warp/wage-engine/wage"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "WAGE_ENGINE_CONFIG"

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Data       DataConfig       `toml:"data"`
	Engine     EngineConfig     `toml:"engine"`
	Allocation AllocationConfig `toml:"allocation"`
	Hours      HoursConfig      `toml:"hours"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Log        LogConfig        `toml:"log"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type DataConfig struct {
	DBPath string `toml:"db_path"`
}

type EngineConfig struct {
	ActivityDays int64  `toml:"activity_days"`
	Workers      int    `toml:"workers"`
	Basis        string `toml:"basis"`
	Places       int32  `toml:"places"`
}

type AllocationConfig struct {
	// Weights maps employee category to coefficient. A file that sets
	// [allocation.weights] replaces the whole default table.
	Weights map[string]float64 `toml:"weights"`
}

type HoursConfig struct {
	ScheduledCap   float64 `toml:"scheduled_cap"`
	MarketplaceCap float64 `toml:"marketplace_cap"`
}

type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
}

type LogConfig struct {
	Development bool `toml:"development"`
}

// Default returns the payroll defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Data: DataConfig{
			DBPath: "wage.db",
		},
		Engine: EngineConfig{
			ActivityDays: tier.DefaultActivityDays,
			Workers:      8,
			Basis:        string(wage.BasisActual),
		},
		Allocation: AllocationConfig{
			Weights: map[string]float64{"1.1": 2.0, "1.2": 1.0, "2": 0.7},
		},
		Hours: HoursConfig{
			ScheduledCap:   0.7,
			MarketplaceCap: 0.3,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: "1h",
		},
	}
}

// Load reads path over the defaults. See the package comment for lookup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes TOML from r over the defaults and validates the result.
func Read(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	// A weights table in the file replaces the defaults rather than
	// merging into them.
	var head struct {
		Allocation struct {
			Weights map[string]any `toml:"weights"`
		} `toml:"allocation"`
	}
	if err := toml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if head.Allocation.Weights != nil {
		cfg.Allocation.Weights = nil
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write encodes cfg as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks ranges and parses the typed values once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Engine.ActivityDays <= 0 {
		errs = append(errs, fmt.Errorf("engine.activity_days must be positive, got %d", c.Engine.ActivityDays))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers))
	}
	if c.Engine.Places < 0 {
		errs = append(errs, fmt.Errorf("engine.places must not be negative, got %d", c.Engine.Places))
	}
	if _, err := wage.ParseBasis(c.Engine.Basis); err != nil {
		errs = append(errs, fmt.Errorf("engine.basis: %w", err))
	}
	if len(c.Allocation.Weights) == 0 {
		errs = append(errs, errors.New("allocation.weights is empty"))
	} else if _, err := allocation.FromFloats(c.Allocation.Weights); err != nil {
		errs = append(errs, fmt.Errorf("allocation.weights: %w", err))
	}
	if c.Hours.ScheduledCap <= 0 || c.Hours.MarketplaceCap <= 0 {
		errs = append(errs, errors.New("hours caps must be positive"))
	}
	if c.Scheduler.Enabled {
		if _, err := c.SchedulerInterval(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Basis returns the configured TC basis.
func (c *Config) Basis() wage.TCBasis {
	b, _ := wage.ParseBasis(c.Engine.Basis)
	return b
}

// SchedulerInterval parses scheduler.interval.
func (c *Config) SchedulerInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scheduler.Interval)
	if err != nil {
		return 0, fmt.Errorf("scheduler.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("scheduler.interval must be positive, got %s", d)
	}
	return d, nil
}

// ReportOptions converts the engine sections into report service options.
func (c *Config) ReportOptions() (report.Options, error) {
	weights, err := allocation.FromFloats(c.Allocation.Weights)
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{
		ActivityDays: c.Engine.ActivityDays,
		Workers:      c.Engine.Workers,
		Weights:      weights,
		Caps: variance.Caps{
			Scheduled:   decimal.NewFromFloat(c.Hours.ScheduledCap),
			Marketplace: decimal.NewFromFloat(c.Hours.MarketplaceCap),
		},
		Places: c.Engine.Places,
		Basis:  c.Basis(),
	}, nil
}
