package constraint

import (
	"fmt"
	"time"

	"github.com/paiban/edrota/pkg/model"
)

// Denial explains why a candidate failed Legal, for diagnostics on an
// infeasible instance.
type Denial struct {
	Resident string
	Reason   string
}

// Legal evaluates the six ordered legality checks for assigning r to the
// shift instance inst against the context's current (partial) schedule.
// It never mutates c; the caller applies the assignment only after Legal
// returns true.
func Legal(c *Context, r *model.Resident, inst model.ShiftInstance) (bool, string) {
	if ok, reason := serviceEligible(r, inst); !ok {
		return false, reason
	}
	if ok, reason := sameDayFree(c, r, inst); !ok {
		return false, reason
	}
	if ok, reason := equalRest(c, r, inst); !ok {
		return false, reason
	}
	if ok, reason := weeklyHoursOK(c, r, inst); !ok {
		return false, reason
	}
	if ok, reason := freeWindowOK(c, r, inst); !ok {
		return false, reason
	}
	if ok, reason := nightRunOK(c, r, inst); !ok {
		return false, reason
	}
	return true, ""
}

// serviceEligible is check 1: the resident's service must be ED, or Peds
// with the shift on the P team, and the shift's team must allow the
// resident's PGY at all (primary or fallback pool).
func serviceEligible(r *model.Resident, inst model.ShiftInstance) (bool, string) {
	switch r.Service {
	case model.ServiceED:
		// ok
	case model.ServicePeds:
		if inst.Template.Team != model.TeamPeds {
			return false, "Peds-service resident may only fill P-team shifts"
		}
	default:
		return false, fmt.Sprintf("service %q is not schedulable", r.Service)
	}
	if !inst.Template.Eligible(r.PGY) {
		return false, fmt.Sprintf("PGY %s not eligible for team %s", r.PGY, inst.Template.Team)
	}
	return true, ""
}

// sameDayFree is check 2: a resident may hold at most one shift per
// calendar day.
func sameDayFree(c *Context, r *model.Resident, inst model.ShiftInstance) (bool, string) {
	if _, taken := c.State(r.Handle).ByDate[inst.Key.Date]; taken {
		return false, "already assigned a shift that day"
	}
	return true, ""
}

// equalRest is check 3: the gap to the resident's nearest neighboring
// assignment, before or after, must be at least as long as the earlier
// shift's own duration: the previous assignment's when it precedes the
// candidate, the candidate's own when the next assignment follows it.
func equalRest(c *Context, r *model.Resident, inst model.ShiftInstance) (bool, string) {
	s := c.State(r.Handle)
	rng := inst.Range(r.PGY)

	if prevEnd, ok := s.LastBefore(rng.Start); ok {
		// Equal-rest compares the gap to the earlier shift's own duration;
		// here the candidate is the later shift, so the previous
		// assignment's duration is what governs.
		prevDuration := 0.0
		if idx := indexOfEnd(s, prevEnd); idx >= 0 {
			prevDuration = s.EndInstants[idx].Sub(s.StartInstants[idx]).Hours()
		}
		gap := rng.Start.Sub(prevEnd).Hours()
		if gap < prevDuration {
			return false, "insufficient rest after previous shift"
		}
	}
	if nextStart, ok := s.FirstAfter(rng.End); ok {
		gap := nextStart.Sub(rng.End).Hours()
		required := rng.End.Sub(rng.Start).Hours()
		if gap < required {
			return false, "insufficient rest before next shift"
		}
	}
	return true, ""
}

func indexOfEnd(s *model.State, end time.Time) int {
	for i, e := range s.EndInstants {
		if e.Equal(end) {
			return i
		}
	}
	return -1
}

// weeklyHoursOK is check 4: the candidate's duration plus the resident's
// hours already committed in the candidate's Monday-Sunday week must not
// exceed 60.
func weeklyHoursOK(c *Context, r *model.Resident, inst model.ShiftInstance) (bool, string) {
	weekStart := inst.WeekStart()
	weekEnd := weekStart.AddDate(0, 0, 7)
	existing := c.State(r.Handle).HoursInWindow(weekStart, weekEnd)
	duration := float64(inst.Template.Duration(r.PGY))
	if existing+duration > 60 {
		return false, "weekly hour cap exceeded"
	}
	return true, ""
}

// freeWindowOK is check 5: after tentatively adding the candidate, the
// resident must still have a continuous 24h free interval inside every
// 7-day window that contains the candidate's date.
func freeWindowOK(c *Context, r *model.Resident, inst model.ShiftInstance) (bool, string) {
	s := c.State(r.Handle)
	rng := inst.Range(r.PGY)

	starts := append(append([]time.Time{}, s.StartInstants...), rng.Start)
	ends := append(append([]time.Time{}, s.EndInstants...), rng.End)

	date := inst.Date
	for offset := -6; offset <= 0; offset++ {
		windowStart := date.AddDate(0, 0, offset)
		windowEnd := windowStart.AddDate(0, 0, 7)
		if !windowStart.Before(c.HorizonStart.AddDate(0, 0, -7)) && !hasFree24h(starts, ends, windowStart, windowEnd) {
			return false, "no 24h free period in surrounding 7-day window"
		}
	}
	return true, ""
}

// hasFree24h reports whether a continuous 24-hour gap exists somewhere
// inside [windowStart, windowEnd) given the resident's assignment instants,
// restricted to those overlapping the window.
func hasFree24h(starts, ends []time.Time, windowStart, windowEnd time.Time) bool {
	type interval struct{ start, end time.Time }
	var busy []interval
	for i := range starts {
		s, e := starts[i], ends[i]
		if e.After(windowStart) && s.Before(windowEnd) {
			if s.Before(windowStart) {
				s = windowStart
			}
			if e.After(windowEnd) {
				e = windowEnd
			}
			busy = append(busy, interval{s, e})
		}
	}
	for i := 0; i < len(busy); i++ {
		for j := i + 1; j < len(busy); j++ {
			if busy[j].start.Before(busy[i].start) {
				busy[i], busy[j] = busy[j], busy[i]
			}
		}
	}

	cursor := windowStart
	for _, b := range busy {
		if b.start.Sub(cursor).Hours() >= 24 {
			return true
		}
		if b.end.After(cursor) {
			cursor = b.end
		}
	}
	return windowEnd.Sub(cursor).Hours() >= 24
}

// nightRunOK is check 6: a night shift may only be assigned as part of the
// resident's own active, in-progress night-run commitment. A resident with
// no active run is never legal for a night shift; the solver must commit
// the run first (see the solver package's night-run planning step).
func nightRunOK(c *Context, r *model.Resident, inst model.ShiftInstance) (bool, string) {
	if !inst.Template.Start.IsNight() {
		return true, ""
	}
	run := c.ActiveNightRun(r.Handle)
	if run == nil {
		return false, "night shift requires an active night-run commitment"
	}
	if run.Complete() {
		return false, "night-run already complete"
	}
	if len(run.Hospitals) > 0 && run.NextHospital() != inst.Template.Hospital {
		return false, "night-run hospital alternation violated"
	}
	return true, ""
}
