// Package stats computes the post-solve fairness/coverage report that
// edrota schedule --stats prints alongside a published schedule.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
)

// ResidentStat is one resident's contribution to the report.
type ResidentStat struct {
	Handle            string
	HoursTarget       float64
	HoursActual       float64
	Deviation         float64 // actual - target
	RequestViolations int
	NightRuns         int
}

// Report summarizes one solved context's fairness and coverage.
type Report struct {
	Residents []ResidentStat

	MeanDeviation   float64
	StdDevDeviation float64
	DeviationGini   float64

	RequiredTotal  int
	RequiredFilled int
	OptionalTotal  int
	OptionalFilled int

	TotalRequestViolations int
}

// Analyze builds a Report from a solved context, covering every resident
// and every shift instance in it.
func Analyze(c *constraint.Context) *Report {
	r := &Report{}

	nightRunsByResident := make(map[string]int)
	for _, run := range c.NightRuns() {
		nightRunsByResident[run.Resident]++
	}

	deviations := make([]float64, 0, len(c.Residents))
	for _, res := range sortedResidents(c.Residents) {
		state := c.State(res.Handle)
		actual := float64(state.AssignedMinutes) / 60.0
		target := float64(c.HoursTarget(res))
		deviation := actual - target

		violations := 0
		for _, date := range res.Requests {
			dateStr := date.Format("2006-01-02")
			if _, assigned := state.ByDate[dateStr]; assigned {
				violations++
			}
		}

		stat := ResidentStat{
			Handle:            res.Handle,
			HoursTarget:       target,
			HoursActual:       actual,
			Deviation:         deviation,
			RequestViolations: violations,
			NightRuns:         nightRunsByResident[res.Handle],
		}
		r.Residents = append(r.Residents, stat)
		deviations = append(deviations, deviation)
		r.TotalRequestViolations += violations
	}

	r.MeanDeviation = mean(deviations)
	r.StdDevDeviation = math.Sqrt(variance(deviations, r.MeanDeviation))
	r.DeviationGini = gini(absAll(deviations))

	for _, inst := range c.Instances {
		filled := c.Schedule.Filled(inst.Key)
		if inst.Required {
			r.RequiredTotal++
			if filled {
				r.RequiredFilled++
			}
		} else {
			r.OptionalTotal++
			if filled {
				r.OptionalFilled++
			}
		}
	}

	return r
}

// OptionalFillRate returns the fraction of optional shifts that were
// filled, or 1.0 if there were none.
func (r *Report) OptionalFillRate() float64 {
	if r.OptionalTotal == 0 {
		return 1.0
	}
	return float64(r.OptionalFilled) / float64(r.OptionalTotal)
}

// WriteText renders the report in the fixed textual form written to stderr
// by edrota schedule --stats.
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "=== schedule statistics ===\n\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "required shifts filled: %d/%d\n", r.RequiredFilled, r.RequiredTotal); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "optional shifts filled: %d/%d (%.1f%%)\n", r.OptionalFilled, r.OptionalTotal, r.OptionalFillRate()*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "hour deviation: mean %.2f, stddev %.2f, gini %.3f\n", r.MeanDeviation, r.StdDevDeviation, r.DeviationGini); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "request violations: %d total\n\n", r.TotalRequestViolations); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%-12s %8s %8s %10s %10s %10s\n", "resident", "target", "actual", "deviation", "requests", "nightruns"); err != nil {
		return err
	}
	for _, s := range r.Residents {
		if _, err := fmt.Fprintf(w, "%-12s %8.1f %8.1f %10.1f %10d %10d\n",
			s.Handle, s.HoursTarget, s.HoursActual, s.Deviation, s.RequestViolations, s.NightRuns); err != nil {
			return err
		}
	}
	return nil
}

func sortedResidents(residents []*model.Resident) []*model.Resident {
	out := make([]*model.Resident, len(residents))
	copy(out, residents)
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

func absAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Abs(v)
	}
	return out
}

// gini computes the Gini coefficient of a non-negative value set (0 =
// perfectly even, 1 = maximally uneven).
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	var weighted float64
	for i, v := range sorted {
		weighted += (2*float64(i+1) - float64(n) - 1) * v
	}
	g := weighted / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
