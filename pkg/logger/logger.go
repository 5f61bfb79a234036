// Package logger provides the module's logging setup.
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level is a logging severity.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config controls where and how logs are written.
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global logger. Safe to call more than once;
// only the first call takes effect.
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel parses a level string, defaulting to info.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// WithContext returns a logger annotated with the run ID carried on ctx,
// if any.
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()
	
	if runID, ok := ctx.Value("run_id").(string); ok {
		l = l.With().Str("run_id", runID).Logger()
	}
	
	return &l
}

// Debug logs at debug level.
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info logs at info level.
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn logs at warn level.
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error logs at error level.
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal logs at fatal level and exits.
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError attaches err to an error-level event.
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField returns a logger with one extra field attached.
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// WithFields returns a logger with several extra fields attached.
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := Get().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &l
}

// SchedulerLogger is the scheduling engine's dedicated logger, scoped with
// component=scheduler so its events are easy to filter out of the rest of
// an invocation's log stream.
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger creates a scheduler-scoped logger.
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// StartSolve logs the beginning of a solve run.
func (l *SchedulerLogger) StartSolve(runID string, residents, days int, seed int64) {
	l.base.Info().
		Str("run_id", runID).
		Int("residents", residents).
		Int("days", days).
		Int64("seed", seed).
		Msg("starting solve")
}

// NightRunCommitted logs a night-run commitment made during Phase A.
func (l *SchedulerLogger) NightRunCommitted(resident, startDate string, length int) {
	l.base.Debug().
		Str("resident", resident).
		Str("start_date", startDate).
		Int("length", length).
		Msg("night-run committed")
}

// Backtrack logs Phase A abandoning a partial day assignment and retrying.
func (l *SchedulerLogger) Backtrack(date string, attempt int) {
	l.base.Warn().
		Str("date", date).
		Int("attempt", attempt).
		Msg("backtracking")
}

// ConstraintDenied logs a candidate rejected by the legality predicate.
func (l *SchedulerLogger) ConstraintDenied(resident, shiftCode, reason string) {
	l.base.Debug().
		Str("resident", resident).
		Str("shift", shiftCode).
		Str("reason", reason).
		Msg("candidate denied")
}

// Infeasible logs an unrecoverable Phase A failure.
func (l *SchedulerLogger) Infeasible(shiftCode, date string) {
	l.base.Error().
		Str("shift", shiftCode).
		Str("date", date).
		Msg("no legal completion")
}

// SolveComplete logs the end of a solve run.
func (l *SchedulerLogger) SolveComplete(runID string, duration time.Duration, score float64) {
	l.base.Info().
		Str("run_id", runID).
		Dur("duration", duration).
		Float64("score", score).
		Msg("solve complete")
}

