// Package config loads the scheduler's tunables from the environment,
// overridable by CLI flags at the call site.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full set of run-time tunables for one invocation of
// edrota schedule.
type Config struct {
	Horizon  HorizonConfig
	Solver   SolverConfig
	Weights  WeightConfig
	History  HistoryConfig
	Notify   NotifyConfig
	LogLevel string `env:"EDROTA_LOG_LEVEL" envDefault:"info"`
}

// HorizonConfig describes the scheduling window. These are normally
// supplied as CLI flags; the env vars exist so a CI job or cron invocation
// can run without flags at all.
type HorizonConfig struct {
	StartDate string `env:"EDROTA_HORIZON_START"`
	Days      int    `env:"EDROTA_HORIZON_DAYS" envDefault:"28"`
}

// SolverConfig tunes Phase A and Phase B.
type SolverConfig struct {
	Seed               int64         `env:"EDROTA_SEED" envDefault:"0"`
	BacktrackBudget    int           `env:"EDROTA_BACKTRACK_BUDGET" envDefault:"200"`
	MaxIterations      int           `env:"EDROTA_MAX_ITERATIONS" envDefault:"20000"`
	MaxTime            time.Duration `env:"EDROTA_MAX_TIME" envDefault:"30s"`
	InitialTemperature float64       `env:"EDROTA_INITIAL_TEMP" envDefault:"50.0"`
	CoolingRate        float64       `env:"EDROTA_COOLING_RATE" envDefault:"0.995"`
	PlateauThreshold   int           `env:"EDROTA_PLATEAU_THRESHOLD" envDefault:"2000"`
	Races              int           `env:"EDROTA_RACES" envDefault:"1"`
}

// WeightConfig holds the objective's penalty weights (§4.5). HourDeviation
// is squared while every other term is linear in violation count, so at
// these defaults a 10-hour miss (100) outweighs any single low-priority
// violation (at most 20). The linear terms are not capped: enough of them
// together can still add up past a 10-hour miss.
type WeightConfig struct {
	HourDeviation      float64 `env:"EDROTA_WEIGHT_HOUR_DEVIATION" envDefault:"1.0"`
	UnfilledOptional   float64 `env:"EDROTA_WEIGHT_UNFILLED_OPTIONAL" envDefault:"8.0"`
	PreferenceMismatch float64 `env:"EDROTA_WEIGHT_PREFERENCE" envDefault:"5.0"`
	RequestViolation   float64 `env:"EDROTA_WEIGHT_REQUEST" envDefault:"20.0"`
	Circadian          float64 `env:"EDROTA_WEIGHT_CIRCADIAN" envDefault:"3.0"`
	FlipFlop           float64 `env:"EDROTA_WEIGHT_FLIPFLOP" envDefault:"10.0"`
	NightAdjacency     float64 `env:"EDROTA_WEIGHT_NIGHT_ADJACENCY" envDefault:"-4.0"`
}

// HistoryConfig controls optional run-history persistence to Postgres.
type HistoryConfig struct {
	DSN string `env:"EDROTA_HISTORY_DSN"`
}

// Enabled reports whether run-history persistence is configured.
func (h HistoryConfig) Enabled() bool {
	return h.DSN != ""
}

// NotifyConfig controls the optional chief-resident email notification and
// schedule-published AMQP event.
type NotifyConfig struct {
	SMTPHost     string `env:"EDROTA_SMTP_HOST"`
	SMTPPort     int    `env:"EDROTA_SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"EDROTA_SMTP_USER"`
	SMTPPassword string `env:"EDROTA_SMTP_PASSWORD"`
	FromAddress  string `env:"EDROTA_SMTP_FROM"`
	AMQPURL      string `env:"EDROTA_AMQP_URL"`
}

// MailEnabled reports whether chief-resident email notification is
// configured.
func (n NotifyConfig) MailEnabled() bool {
	return n.SMTPHost != "" && n.FromAddress != ""
}

// EventEnabled reports whether the schedule-published AMQP event is
// configured.
func (n NotifyConfig) EventEnabled() bool {
	return n.AMQPURL != ""
}

// Load reads Config from the environment, applying defaults for anything
// unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}
	return cfg, nil
}
