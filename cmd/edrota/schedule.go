package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/edrota/internal/config"
	"github.com/paiban/edrota/internal/emit"
	"github.com/paiban/edrota/internal/history"
	"github.com/paiban/edrota/internal/notify"
	"github.com/paiban/edrota/internal/roster"
	apperrors "github.com/paiban/edrota/pkg/errors"
	"github.com/paiban/edrota/pkg/logger"
	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
	"github.com/paiban/edrota/pkg/scheduler/objective"
	"github.com/paiban/edrota/pkg/scheduler/optimizer"
	"github.com/paiban/edrota/pkg/scheduler/solver"
	"github.com/paiban/edrota/pkg/scheduler/template"
	"github.com/paiban/edrota/pkg/stats"
	"github.com/paiban/edrota/pkg/validator"
)

// scheduleFlags holds every CLI-settable override of the environment
// config, filled in by cobra before runSchedule executes.
type scheduleFlags struct {
	start          string
	days           int
	residentsPath  string
	templatesPath  string
	templatesYAML  string
	seed           int64
	maxIterations  int
	races          int
	printStats     bool
	historyDSN     string
	amqpURL        string
	chiefAddresses string
}

// scheduleCmd builds the "edrota schedule" command: it reads the resident
// and shift-template tables, solves and improves one assignment (or races
// several independent seeds), writes the result as CSV to stdout, and
// optionally records history, emails chiefs, and publishes an event.
func scheduleCmd(cfg *config.Config) *cobra.Command {
	flags := &scheduleFlags{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Build and emit one resident call schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cfg, flags)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.start, "start", cfg.Horizon.StartDate, "horizon start date (YYYY-MM-DD)")
	fs.IntVar(&flags.days, "days", cfg.Horizon.Days, "horizon length in days")
	fs.StringVar(&flags.residentsPath, "residents", "", "path to the resident table CSV (required)")
	fs.StringVar(&flags.templatesPath, "templates", "", "path to the weekly shift-template CSV")
	fs.StringVar(&flags.templatesYAML, "templates-yaml", "", "path to a YAML shift-template override, instead of --templates")
	fs.Int64Var(&flags.seed, "seed", cfg.Solver.Seed, "random seed")
	fs.IntVar(&flags.maxIterations, "max-iterations", cfg.Solver.MaxIterations, "Phase B local-search iteration budget")
	fs.IntVar(&flags.races, "races", cfg.Solver.Races, "number of independent seeded solves to race; the minimum-scored feasible one wins")
	fs.BoolVar(&flags.printStats, "stats", false, "print a fairness/coverage report to stderr after a feasible solve")
	fs.StringVar(&flags.historyDSN, "history-dsn", cfg.History.DSN, "Postgres DSN for optional run-history persistence")
	fs.StringVar(&flags.amqpURL, "amqp-url", cfg.Notify.AMQPURL, "RabbitMQ URL for the optional schedule-published event")
	fs.StringVar(&flags.chiefAddresses, "chief-addresses", "", "comma-separated handle=email pairs for the optional chief-resident notification email")

	cmd.MarkFlagRequired("residents")
	return cmd
}

func runSchedule(cfg *config.Config, flags *scheduleFlags) error {
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Output = "stderr"
	logger.Init(logCfg)

	if flags.templatesPath == "" && flags.templatesYAML == "" {
		return apperrors.InputWrap(fmt.Errorf("neither --templates nor --templates-yaml was given"), "resolving shift template source")
	}
	if flags.start == "" {
		return apperrors.InputWrap(fmt.Errorf("--start is required (or EDROTA_HORIZON_START)"), "resolving horizon start")
	}

	horizonStart, err := time.Parse("2006-01-02", flags.start)
	if err != nil {
		return apperrors.InputWrap(err, "parsing --start")
	}
	if flags.days < 1 {
		return apperrors.InputWrap(fmt.Errorf("--days must be >= 1, got %d", flags.days), "resolving horizon length")
	}
	horizonEnd := horizonStart.AddDate(0, 0, flags.days-1)

	residents, residentWarnings, err := roster.LoadResidents(flags.residentsPath)
	if err != nil {
		return err
	}
	for _, w := range residentWarnings {
		logger.Warn().Msg(w)
	}

	var templates []model.ShiftTemplate
	var templateWarnings []string
	if flags.templatesYAML != "" {
		templates, templateWarnings, err = roster.LoadShiftTemplatesYAML(flags.templatesYAML)
	} else {
		templates, templateWarnings, err = roster.LoadShiftTemplates(flags.templatesPath)
	}
	if err != nil {
		return err
	}
	for _, w := range templateWarnings {
		logger.Warn().Msg(w)
	}

	instances, err := template.ExpandAll(templates, horizonStart, horizonEnd)
	if err != nil {
		return err
	}

	scorer := objective.NewScorer(cfg.Weights)

	solverCfg := solver.DefaultConfig()
	solverCfg.Seed = flags.seed
	solverCfg.BacktrackBudget = cfg.Solver.BacktrackBudget

	optCfg := optimizer.DefaultConfig()
	optCfg.Seed = flags.seed
	optCfg.MaxIterations = flags.maxIterations
	optCfg.MaxTime = cfg.Solver.MaxTime
	optCfg.InitialTemperature = cfg.Solver.InitialTemperature
	optCfg.CoolingRate = cfg.Solver.CoolingRate
	optCfg.PlateauThreshold = cfg.Solver.PlateauThreshold

	start := time.Now()
	var solved *constraint.Context
	var score objective.Breakdown

	if flags.races > 1 {
		raceCfg := optimizer.RaceConfig{
			Races:     flags.races,
			BaseSeed:  flags.seed,
			Solver:    solverCfg,
			Optimizer: optCfg,
		}
		results := optimizer.Race(raceCfg, residents, instances, horizonStart, horizonEnd, scorer)
		winner, infeasible := optimizer.WinnerOf(results)
		for _, r := range infeasible {
			logger.Warn().Int64("seed", r.Seed).Err(r.Err).Msg("race entrant was infeasible")
		}
		if winner == nil {
			if len(infeasible) > 0 {
				return infeasible[0].Err
			}
			return apperrors.Invariant("no race entrant returned a result")
		}
		solved = winner.Context
		score = winner.Score
	} else {
		ctx := constraint.NewContext(horizonStart, horizonEnd, residents, instances)
		phaseA := solver.New(solverCfg)
		if _, err := phaseA.Solve(ctx); err != nil {
			return err
		}
		ls := optimizer.New(optCfg, scorer)
		ls.Optimize(ctx)
		solved = ctx
		score = scorer.Score(solved)
	}
	duration := time.Since(start)

	if err := validator.CheckAll(solved); err != nil {
		return err
	}

	var csvBuf strings.Builder
	if err := emit.WriteCSV(&csvBuf, solved); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	if _, err := os.Stdout.WriteString(csvBuf.String()); err != nil {
		return fmt.Errorf("writing CSV to stdout: %w", err)
	}

	if flags.printStats {
		report := stats.Analyze(solved)
		if err := report.WriteText(os.Stderr); err != nil {
			logger.Error().Err(err).Msg("writing stats report")
		}
	}

	ctx := context.Background()

	if flags.historyDSN != "" {
		if err := recordHistory(ctx, flags.historyDSN, horizonStart, horizonEnd, flags.seed, score.Total, true, duration, csvBuf.String()); err != nil {
			logger.Error().Err(err).Msg("recording run history")
		}
	}

	if cfg.Notify.MailEnabled() && flags.chiefAddresses != "" {
		if err := notifyChiefs(ctx, cfg, solved, horizonStart, horizonEnd, flags.chiefAddresses); err != nil {
			logger.Error().Err(err).Msg("notifying chief residents")
		}
	}

	if flags.amqpURL != "" {
		if err := publishEvent(ctx, flags.amqpURL, horizonStart, horizonEnd, flags.seed, score.Total); err != nil {
			logger.Error().Err(err).Msg("publishing schedule-published event")
		}
	}

	return nil
}

func recordHistory(ctx context.Context, dsn string, horizonStart, horizonEnd time.Time, seed int64, score float64, feasible bool, duration time.Duration, csv string) error {
	store, err := history.Open(dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	_, err = store.Record(ctx, history.Run{
		RunAt:        time.Now(),
		HorizonStart: horizonStart,
		HorizonEnd:   horizonEnd,
		Seed:         seed,
		Score:        score,
		Feasible:     feasible,
		Duration:     duration,
		CSV:          []byte(csv),
	})
	return err
}

func notifyChiefs(ctx context.Context, cfg *config.Config, solved *constraint.Context, horizonStart, horizonEnd time.Time, raw string) error {
	mailer, err := notify.NewMailer(cfg.Notify)
	if err != nil {
		return err
	}
	defer mailer.Close()

	return mailer.NotifyChiefs(ctx, solved, horizonStart, horizonEnd, parseAddresses(raw))
}

func parseAddresses(raw string) map[string]string {
	addresses := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		addresses[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return addresses
}

func publishEvent(ctx context.Context, url string, horizonStart, horizonEnd time.Time, seed int64, score float64) error {
	publisher, err := notify.NewEventPublisher(url)
	if err != nil {
		return err
	}
	defer publisher.Close()

	return publisher.Publish(ctx, notify.PublishedEvent{
		HorizonStart: horizonStart.Format("2006-01-02"),
		HorizonEnd:   horizonEnd.Format("2006-01-02"),
		Seed:         seed,
		Score:        score,
	})
}

// exitCodeFor maps an error's AppError kind to the process exit code
// described in the CLI's external contract: 0 only on success, distinct
// nonzero codes for each fatal error kind so calling scripts can branch on
// failure mode.
func exitCodeFor(err error) int {
	switch {
	case apperrors.Is(err, apperrors.KindInput):
		return 2
	case apperrors.Is(err, apperrors.KindInfeasible):
		return 3
	case apperrors.Is(err, apperrors.KindInvariant):
		return 4
	default:
		return 1
	}
}
