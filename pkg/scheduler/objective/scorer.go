// Package objective computes the total penalty of a schedule: the single
// number Phase B's local search minimizes move by move.
package objective

import (
	"sort"
	"time"

	"github.com/paiban/edrota/internal/config"
	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
)

// Breakdown is the full score with each term itemized, for diagnostics and
// the statistics report.
type Breakdown struct {
	HourDeviation      float64
	UnfilledOptional   float64
	PreferenceMismatch float64
	RequestViolation   float64
	Circadian          float64
	FlipFlop           float64
	NightAdjacency     float64
	Total              float64
}

// Scorer computes a Context's total penalty under a fixed weight set.
type Scorer struct {
	weights config.WeightConfig
}

// NewScorer builds a Scorer from the run's configured weights.
func NewScorer(weights config.WeightConfig) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the full breakdown for the context's current schedule.
func (sc *Scorer) Score(c *constraint.Context) Breakdown {
	var b Breakdown
	b.HourDeviation = sc.hourDeviation(c)
	b.UnfilledOptional = sc.unfilledOptional(c)
	b.PreferenceMismatch = sc.preferenceMismatch(c)
	b.RequestViolation = sc.requestViolation(c)
	b.Circadian, b.FlipFlop = sc.circadian(c)
	b.NightAdjacency = sc.nightAdjacency(c)

	w := sc.weights
	b.Total = w.HourDeviation*b.HourDeviation +
		w.UnfilledOptional*b.UnfilledOptional +
		w.PreferenceMismatch*b.PreferenceMismatch +
		w.RequestViolation*b.RequestViolation +
		w.Circadian*b.Circadian +
		w.FlipFlop*b.FlipFlop +
		w.NightAdjacency*b.NightAdjacency
	return b
}

// hourDeviation sums, over every resident, the squared difference between
// their effective target and their actual assigned hours.
func (sc *Scorer) hourDeviation(c *constraint.Context) float64 {
	var total float64
	for _, r := range c.Residents {
		target := float64(c.HoursTarget(r))
		actual := float64(c.State(r.Handle).AssignedMinutes) / 60.0
		diff := target - actual
		total += diff * diff
	}
	return total
}

// unfilledOptional counts optional shift instances with no resident
// assigned.
func (sc *Scorer) unfilledOptional(c *constraint.Context) float64 {
	var count float64
	for _, inst := range c.Instances {
		if !inst.Required && !c.Schedule.Filled(inst.Key) {
			count++
		}
	}
	return count
}

// preferenceMismatch counts assignments where the filling resident is only
// in the shift's fallback pool, not its preferred pool — for Peds this
// means any non-Peds-block PGY-1/2, not just a PGY-3, since the P team's
// primary pool is Peds-block residents specifically.
func (sc *Scorer) preferenceMismatch(c *constraint.Context) float64 {
	var count float64
	for _, inst := range c.Instances {
		handle := c.Schedule[inst.Key]
		if handle == "" {
			continue
		}
		r := c.Resident(handle)
		if r == nil {
			continue
		}
		if !inst.Template.Preferred(r) {
			count++
		}
	}
	return count
}

// requestViolation counts assignments landing on a resident's requested-off
// date, distance-attenuated per Resident.ClosestRequestDistance so a
// request just outside the assigned date still softens the penalty.
func (sc *Scorer) requestViolation(c *constraint.Context) float64 {
	var total float64
	for _, inst := range c.Instances {
		handle := c.Schedule[inst.Key]
		if handle == "" {
			continue
		}
		r := c.Resident(handle)
		if r == nil || len(r.Requests) == 0 {
			continue
		}
		dist := r.ClosestRequestDistance(inst.Date)
		if dist < 0 {
			continue
		}
		switch dist {
		case 0:
			total += 1.0
		case 1:
			total += 0.5
		case 2:
			total += 0.25
		}
	}
	return total
}

// circadian walks each resident's assignments in start-instant order and
// penalizes any pair within a 72-hour window per the morning<afternoon<night
// ladder, plus the 7am->pm->7am flip-flop pattern across three consecutive
// assignments.
func (sc *Scorer) circadian(c *constraint.Context) (ladder, flipFlop float64) {
	for _, r := range c.Residents {
		s := c.State(r.Handle)
		order := sortedAssignmentIndices(s)

		for i := 1; i < len(order); i++ {
			prev, cur := order[i-1], order[i]
			gap := s.StartInstants[cur].Sub(s.StartInstants[prev]).Hours()
			if gap > 72 || hasFreeDayBetween(s, s.StartInstants[prev], s.StartInstants[cur]) {
				continue
			}
			ladder += stepPenalty(startHourRank(c, r, s, prev), startHourRank(c, r, s, cur))
		}

		for i := 2; i < len(order); i++ {
			a, b, d := order[i-2], order[i-1], order[i]
			if startHour(c, r, s, a) == 7 && startHour(c, r, s, b) >= 16 && startHour(c, r, s, d) == 7 {
				flipFlop++
			}
		}
	}
	return ladder, flipFlop
}

// stepPenalty scores a transition along the morning<afternoon<night ladder:
// a forward step costs nothing, a backward step costs in proportion to how
// far back it falls.
func stepPenalty(prev, cur int) float64 {
	if cur >= prev {
		return 0
	}
	return float64(prev - cur)
}

func startHourRank(c *constraint.Context, r *model.Resident, s *model.State, idx int) int {
	key := keyForInstant(c, r, s.StartInstants[idx])
	inst, ok := c.Instance(key)
	if !ok {
		return 1
	}
	return inst.Template.Start.CircadianRank()
}

func startHour(c *constraint.Context, r *model.Resident, s *model.State, idx int) int {
	key := keyForInstant(c, r, s.StartInstants[idx])
	inst, ok := c.Instance(key)
	if !ok {
		return -1
	}
	return inst.Template.StartHour()
}

// keyForInstant recovers the shift key backing one of a resident's tracked
// start instants by date lookup, since State only stores instants and the
// date->code mapping, not the full key.
func keyForInstant(c *constraint.Context, r *model.Resident, start time.Time) model.Key {
	date := start.Format("2006-01-02")
	code := c.State(r.Handle).ByDate[date]
	return model.Key{Date: date, Code: code}
}

// hasFreeDayBetween reports whether a full calendar day with no assignment
// falls strictly between prev and cur, which removes the circadian penalty
// for that pair per the "day off between shifts" carve-out.
func hasFreeDayBetween(s *model.State, prev, cur time.Time) bool {
	for d := prev.AddDate(0, 0, 1); d.Before(cur); d = d.AddDate(0, 0, 1) {
		if _, busy := s.ByDate[d.Format("2006-01-02")]; !busy {
			return true
		}
	}
	return false
}

func sortedAssignmentIndices(s *model.State) []int {
	idx := make([]int, len(s.StartInstants))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return s.StartInstants[idx[i]].Before(s.StartInstants[idx[j]])
	})
	return idx
}

// nightAdjacency rewards (negative-weighted, so subtracted via the weight's
// sign) a day immediately before and after a night-run with no assignment.
func (sc *Scorer) nightAdjacency(c *constraint.Context) float64 {
	var count float64
	for _, run := range c.NightRuns() {
		if !run.Complete() {
			continue
		}
		r := c.Resident(run.Resident)
		if r == nil {
			continue
		}
		s := c.State(r.Handle)
		start, err := time.Parse("2006-01-02", run.StartDate)
		if err != nil {
			continue
		}
		before := start.AddDate(0, 0, -1).Format("2006-01-02")
		after := start.AddDate(0, 0, run.Length).Format("2006-01-02")
		if _, busy := s.ByDate[before]; !busy {
			count++
		}
		if _, busy := s.ByDate[after]; !busy {
			count++
		}
	}
	return count
}
