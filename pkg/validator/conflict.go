// Package validator performs a post-solve bug check over a context the
// solver and optimizer both claim is fully legal, verifying every
// quantified invariant actually holds. A violation here means an illegal
// assignment slipped past the legality predicate; it is reported as an
// internal invariant error (never a soft violation) and must never occur in
// a correct build.
package validator

import (
	"fmt"
	"sort"
	"time"

	apperrors "github.com/paiban/edrota/pkg/errors"
	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
)

// CheckAll verifies every resident's duty-hour invariants, every required
// shift's fill status, and every night-run's shape, returning the first
// violation found as an *apperrors.AppError, or nil if none.
func CheckAll(c *constraint.Context) error {
	for _, r := range c.Residents {
		if err := checkResident(c, r); err != nil {
			return err
		}
	}
	if err := checkRequiredFilled(c); err != nil {
		return err
	}
	if err := checkNightRuns(c); err != nil {
		return err
	}
	return checkPedsPreference(c)
}

// checkResident verifies the 60h/7-day cap, the 24h free-day requirement,
// equal-rest between consecutive assignments, at most one shift per
// calendar day, and the off-service/vacation exclusion, for one resident.
func checkResident(c *constraint.Context, r *model.Resident) error {
	state := c.State(r.Handle)

	if !r.Service.Schedulable() && len(state.StartInstants) > 0 {
		return apperrors.Invariant(fmt.Sprintf("%s has service %s but was assigned a shift", r.Handle, r.Service))
	}

	starts, ends := sortedByStart(state.StartInstants, state.EndInstants)

	dayCounts := make(map[string]int)
	for _, s := range starts {
		dayCounts[s.Format("2006-01-02")]++
	}
	for date, n := range dayCounts {
		if n > 1 {
			return apperrors.Invariant(fmt.Sprintf("%s has %d shifts on %s, want at most 1", r.Handle, n, date))
		}
	}

	for i, start := range starts {
		windowEnd := start.Add(7 * 24 * time.Hour)
		if hours := state.HoursInWindow(start, windowEnd); hours > 60 {
			return apperrors.Invariant(fmt.Sprintf("%s exceeds 60h in the 7-day window starting %s (%.1fh)", r.Handle, start.Format("2006-01-02"), hours))
		}
		if !hasFreeDay(starts, ends, start, windowEnd) {
			return apperrors.Invariant(fmt.Sprintf("%s has no 24h free interval in the 7-day window starting %s", r.Handle, start.Format("2006-01-02")))
		}
		if i > 0 {
			priorDuration := ends[i-1].Sub(starts[i-1])
			rest := start.Sub(ends[i-1])
			if rest < priorDuration {
				return apperrors.Invariant(fmt.Sprintf("%s has only %.1fh rest before the shift starting %s, want at least %.1fh", r.Handle, rest.Hours(), start.Format("2006-01-02 15:04"), priorDuration.Hours()))
			}
		}
	}
	return nil
}

// hasFreeDay reports whether some 24-hour sub-interval of [windowStart,
// windowEnd) carries none of the resident's assignments.
func hasFreeDay(starts, ends []time.Time, windowStart, windowEnd time.Time) bool {
	const freeDay = 24 * time.Hour

	cursor := windowStart
	for i, s := range starts {
		if s.Before(windowStart) || !s.Before(windowEnd) {
			continue
		}
		if s.Sub(cursor) >= freeDay {
			return true
		}
		if ends[i].After(cursor) {
			cursor = ends[i]
		}
	}
	return windowEnd.Sub(cursor) >= freeDay
}

func sortedByStart(starts, ends []time.Time) ([]time.Time, []time.Time) {
	n := len(starts)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return starts[idx[a]].Before(starts[idx[b]]) })

	sortedStarts := make([]time.Time, n)
	sortedEnds := make([]time.Time, n)
	for i, j := range idx {
		sortedStarts[i] = starts[j]
		sortedEnds[i] = ends[j]
	}
	return sortedStarts, sortedEnds
}

func checkRequiredFilled(c *constraint.Context) error {
	for _, inst := range c.Instances {
		if inst.Required && !c.Schedule.Filled(inst.Key) {
			return apperrors.Invariant(fmt.Sprintf("required shift %s on %s left unfilled", inst.Template.Code, inst.Key.Date))
		}
	}
	return nil
}

// checkNightRuns verifies each committed night-run placed 3 or 4 nights and
// strictly alternates hospital letters. It checks the nights actually
// assigned (len(run.Hospitals)), not run.Length: Length records the
// solver's original target and stays fixed even if a run's continuation
// later falls short of it, so checking Length alone would let a run that
// realized only 1 or 2 nights pass as if it had completed.
func checkNightRuns(c *constraint.Context) error {
	for _, run := range c.NightRuns() {
		if n := len(run.Hospitals); n != 3 && n != 4 {
			return apperrors.Invariant(fmt.Sprintf("night-run for %s placed %d nights, want 3 or 4", run.Resident, n))
		}
		for i := 1; i < len(run.Hospitals); i++ {
			if run.Hospitals[i] == run.Hospitals[i-1] {
				return apperrors.Invariant(fmt.Sprintf("night-run for %s repeats hospital %s at position %d", run.Resident, run.Hospitals[i], i))
			}
		}
	}
	return nil
}

// checkPedsPreference verifies every P-team shift filled by a fallback
// resident (anyone outside the Peds-block PGY-1/2 pool) had no legal
// Peds-block resident available to take it instead.
func checkPedsPreference(c *constraint.Context) error {
	for _, inst := range c.Instances {
		if inst.Template.Team != model.TeamPeds {
			continue
		}
		handle := c.Schedule[inst.Key]
		if handle == "" {
			continue
		}
		filler := c.Resident(handle)
		if filler == nil || inst.Template.Preferred(filler) {
			continue
		}
		for _, r := range c.Residents {
			if r.Handle == handle || r.Service != model.ServicePeds {
				continue
			}
			if !inst.Template.Eligible(r.PGY) {
				continue
			}
			if ok, _ := constraint.Legal(c, r, inst); ok {
				return apperrors.Invariant(fmt.Sprintf("P shift %s on %s filled by fallback %s while Peds-block resident %s was available", inst.Template.Code, inst.Key.Date, handle, r.Handle))
			}
		}
	}
	return nil
}
