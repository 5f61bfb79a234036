// Package solver builds an initial, feasible resident schedule (Phase A)
// that the optimizer package then locally improves (Phase B).
package solver

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	apperrors "github.com/paiban/edrota/pkg/errors"
	"github.com/paiban/edrota/pkg/logger"
	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
)

// Config tunes Phase A's constructive search.
type Config struct {
	Seed            int64
	BacktrackBudget int
}

// DefaultConfig returns Phase A's default tuning.
func DefaultConfig() Config {
	return Config{Seed: 1, BacktrackBudget: 200}
}

// Result is Phase A's output: a fully constructed Context (schedule plus
// running resident state) and the statistics gathered while building it.
type Result struct {
	Context    *constraint.Context
	Statistics Statistics
	Duration   time.Duration
}

// Statistics summarizes one constructive run.
type Statistics struct {
	DaysPlanned     int
	NightRunsPlanned int
	RequiredFilled  int
	RequiredTotal   int
	Backtracks      int
}

// ConstructiveSolver implements Phase A: night-run planning followed by
// randomized, hours-deficit-weighted day-shift filling, with bounded
// backtracking on infeasible days.
type ConstructiveSolver struct {
	cfg    Config
	rng    *rand.Rand
	logger *logger.SchedulerLogger
}

// New creates a Phase A solver seeded by cfg.Seed.
func New(cfg Config) *ConstructiveSolver {
	return &ConstructiveSolver{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger.NewSchedulerLogger(),
	}
}

// Solve runs Phase A over the given context, which must already carry the
// resident roster and the full expanded instance set with an empty
// schedule.
func (s *ConstructiveSolver) Solve(c *constraint.Context) (*Result, error) {
	start := time.Now()
	runID := fmt.Sprintf("run-%d", s.cfg.Seed)
	s.logger.StartSolve(runID, len(c.Residents), daySpan(c.HorizonStart, c.HorizonEnd), s.cfg.Seed)

	stats := Statistics{}
	dates := dateRange(c.HorizonStart, c.HorizonEnd)

	for _, date := range dates {
		if err := s.planDay(c, date, &stats); err != nil {
			return nil, err
		}
		stats.DaysPlanned++
	}

	for _, key := range sortedKeys(c.Instances) {
		inst, _ := c.Instance(key)
		if inst.Required {
			stats.RequiredTotal++
			if c.Schedule.Filled(key) {
				stats.RequiredFilled++
			}
		}
	}

	result := &Result{Context: c, Statistics: stats, Duration: time.Since(start)}
	s.logger.SolveComplete(runID, result.Duration, 0)
	return result, nil
}

// planDay handles one calendar day's worth of Phase A work: night-run
// planning first, then required day shifts team-by-team in randomized
// order. Optional shifts are untouched here; Phase B's fill-optional move
// handles them. A day whose required shifts cannot all be filled under one
// random fill order is retried, from a clean slate for that day, with a
// freshly shuffled order, up to the backtracking budget.
func (s *ConstructiveSolver) planDay(c *constraint.Context, date time.Time, stats *Statistics) error {
	dateStr := date.Format("2006-01-02")
	keys := c.InstancesOnDate(dateStr)
	nightKeys, dayKeys := partitionByNight(c, keys)

	for _, key := range nightKeys {
		inst, _ := c.Instance(key)
		if c.Schedule.Filled(key) {
			continue
		}
		if err := s.planNightRun(c, inst, stats); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.BacktrackBudget; attempt++ {
		placed, err := s.fillDayShifts(c, dayKeys)
		if err == nil {
			return nil
		}
		lastErr = err
		for _, key := range placed {
			resident := c.Schedule[key]
			if r := c.Resident(resident); r != nil {
				c.Unassign(key, r.PGY)
			}
		}
		stats.Backtracks++
		s.logger.Backtrack(dateStr, attempt+1)
	}
	return lastErr
}

// fillDayShifts attempts to fill every required day-shift key once, in a
// freshly randomized order, returning the keys it placed so the caller can
// roll them back on failure.
func (s *ConstructiveSolver) fillDayShifts(c *constraint.Context, dayKeys []model.Key) ([]model.Key, error) {
	order := make([]model.Key, len(dayKeys))
	copy(order, dayKeys)
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var placed []model.Key
	for _, key := range order {
		inst, _ := c.Instance(key)
		if !inst.Required {
			continue
		}
		if err := s.fillShift(c, inst); err != nil {
			return placed, err
		}
		placed = append(placed, key)
	}
	return placed, nil
}

// planNightRun commits a fresh 3- or 4-night run to an eligible resident
// for the team owning inst, unless that team already has a resident
// mid-run. The chosen length shortens under repeated failure rather than
// abandoning the commitment outright.
//
// A run already mid-placement that cannot legally extend onto inst (its
// required alternating hospital does not match what the template offers
// that night) is closed out at whatever length it reached, provided that
// is already 3 or 4, rather than aborting the day: Length was only ever
// the solver's target for a fresh run, not a guarantee the template can
// deliver, and a run that reached a valid length early is not a
// violation. A run that cannot extend before reaching 3 nights is still
// genuinely infeasible and reported as such.
func (s *ConstructiveSolver) planNightRun(c *constraint.Context, inst model.ShiftInstance, stats *Statistics) error {
	for _, run := range c.NightRuns() {
		if run.Complete() || teamOfRun(c, run) != inst.Template.Team {
			continue
		}
		r := c.Resident(run.Resident)
		ok, reason := constraint.Legal(c, r, inst)
		if ok {
			c.Assign(inst.Key, r.Handle, r.PGY)
			return nil
		}
		if len(run.ShiftKeys) < 3 {
			return apperrors.Infeasible(inst.Template.Code, inst.Key.Date, []apperrors.CandidateDenial{{Resident: r.Handle, Reason: reason}})
		}
		c.CloseNightRun(run)
		break
	}

	for length := 4; length >= 3; length-- {
		candidates := s.weightedNightCandidates(c, inst)
		for _, r := range candidates {
			run := &model.NightRun{Resident: r.Handle, StartDate: inst.Key.Date, Length: length}
			if s.tryPlaceNightRun(c, run, inst) {
				s.logger.NightRunCommitted(r.Handle, run.StartDate, length)
				stats.NightRunsPlanned++
				s.placeFirstNight(c, run, inst)
				return nil
			}
		}
	}
	return apperrors.Infeasible(inst.Template.Code, inst.Key.Date, nil)
}

// tryPlaceNightRun checks the run's opening night is legal for r and, if
// so, leaves run committed. planDay's retry loop unassigns only the day
// shifts it placed, so a committed run stays in place even if the day as a
// whole is retried or fails. The night-run rule itself only passes
// Legal once a commitment is active, so the run is committed tentatively
// before the check and uncommitted immediately if it fails.
func (s *ConstructiveSolver) tryPlaceNightRun(c *constraint.Context, run *model.NightRun, first model.ShiftInstance) bool {
	r := c.Resident(run.Resident)
	if r == nil {
		return false
	}
	c.CommitNightRun(run)
	ok, _ := constraint.Legal(c, r, first)
	if !ok {
		c.UncommitNightRun(run)
	}
	return ok
}

// placeFirstNight assigns the night-run's opening shift once committed.
func (s *ConstructiveSolver) placeFirstNight(c *constraint.Context, run *model.NightRun, inst model.ShiftInstance) {
	r := c.Resident(run.Resident)
	c.Assign(inst.Key, r.Handle, r.PGY)
}

// weightedNightCandidates returns eligible residents for inst's team,
// ordered by descending hours-deficit weight with randomized tie-breaking
// (approximated here by shuffling before a stable sort on weight).
func (s *ConstructiveSolver) weightedNightCandidates(c *constraint.Context, inst model.ShiftInstance) []*model.Resident {
	var pool []*model.Resident
	for _, r := range c.Residents {
		if inst.Template.Eligible(r.PGY) {
			pool = append(pool, r)
		}
	}
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	sort.SliceStable(pool, func(i, j int) bool {
		return s.deficit(c, pool[i]) > s.deficit(c, pool[j])
	})
	return pool
}

func (s *ConstructiveSolver) deficit(c *constraint.Context, r *model.Resident) float64 {
	target := float64(c.HoursTarget(r))
	actual := float64(c.State(r.Handle).AssignedMinutes) / 60.0
	d := target - actual
	if d < 0 {
		return 0
	}
	return d
}

// fillShift samples, without replacement, from the legal candidate pool
// for inst, weighted by hours deficit, and assigns the winner. An empty
// pool is reported to the caller, which retries the day under a fresh
// random order rather than treating it as immediately fatal.
func (s *ConstructiveSolver) fillShift(c *constraint.Context, inst model.ShiftInstance) error {
	candidates, denials := s.legalCandidates(c, inst)
	if len(candidates) == 0 {
		return apperrors.Infeasible(inst.Template.Code, inst.Key.Date, denials)
	}

	weights := make([]float64, len(candidates))
	var total float64
	for i, r := range candidates {
		w := s.deficit(c, r) + 0.01
		if !inst.Template.Preferred(r) {
			w *= 0.5
		}
		if r.Requested(inst.Date) {
			w *= 0.1
		}
		weights[i] = w
		total += w
	}

	pick := s.rng.Float64() * total
	var cum float64
	chosen := candidates[len(candidates)-1]
	for i, w := range weights {
		cum += w
		if pick <= cum {
			chosen = candidates[i]
			break
		}
	}

	c.Assign(inst.Key, chosen.Handle, chosen.PGY)
	return nil
}

func (s *ConstructiveSolver) legalCandidates(c *constraint.Context, inst model.ShiftInstance) ([]*model.Resident, []apperrors.CandidateDenial) {
	var legal []*model.Resident
	var denials []apperrors.CandidateDenial
	for _, r := range c.Residents {
		if !inst.Template.Eligible(r.PGY) {
			continue
		}
		ok, reason := constraint.Legal(c, r, inst)
		if ok {
			legal = append(legal, r)
		} else {
			denials = append(denials, apperrors.CandidateDenial{Resident: r.Handle, Reason: reason})
			s.logger.ConstraintDenied(r.Handle, inst.Template.Code, reason)
		}
	}
	return legal, denials
}

func partitionByNight(c *constraint.Context, keys []model.Key) (nights, days []model.Key) {
	for _, k := range keys {
		inst, ok := c.Instance(k)
		if !ok {
			continue
		}
		if inst.Template.Start.IsNight() {
			nights = append(nights, k)
		} else {
			days = append(days, k)
		}
	}
	return nights, days
}

func teamOfRun(c *constraint.Context, run *model.NightRun) model.Team {
	if len(run.ShiftKeys) == 0 {
		return ""
	}
	inst, _ := c.Instance(run.ShiftKeys[0])
	return inst.Template.Team
}

func dateRange(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func daySpan(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

func sortedKeys(instances []model.ShiftInstance) []model.Key {
	keys := make([]model.Key, len(instances))
	for i, inst := range instances {
		keys[i] = inst.Key
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].Code < keys[j].Code
	})
	return keys
}
