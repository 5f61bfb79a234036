package model

import "time"

// Resident is an emergency-department resident physician eligible for the
// scheduling horizon.
type Resident struct {
	Handle     string      `json:"handle"`
	PGY        PGYLevel    `json:"pgy"`
	Service    ServiceType `json:"service"`
	HourTarget int         `json:"hour_target"`
	Chief      bool        `json:"chief"`
	Requests   []time.Time `json:"requests"` // requested-off dates, normalized to midnight
}

// Requested reports whether the resident asked for date off.
func (r *Resident) Requested(date time.Time) bool {
	for _, d := range r.Requests {
		if sameDay(d, date) {
			return true
		}
	}
	return false
}

// ClosestRequestDistance returns the number of days between date and the
// resident's nearest request, or -1 if the resident has no requests. The
// original CP-SAT implementation attenuates the request penalty by distance
// to the nearest requested day rather than requiring an exact match; keeping
// that tolerance lets a request just outside the published horizon still
// soften the penalty on the nearest in-horizon day.
func (r *Resident) ClosestRequestDistance(date time.Time) int {
	best := -1
	for _, d := range r.Requests {
		days := int(date.Sub(d).Hours() / 24)
		if days < 0 {
			days = -days
		}
		if best == -1 || days < best {
			best = days
		}
	}
	return best
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// State is the mutable running state the solver and optimizer maintain for
// a resident while building an assignment. It is derived, not authoritative:
// it can always be rebuilt from a Schedule's assignments.
type State struct {
	AssignedMinutes int                  // total minutes assigned so far
	ByDate          map[string]string    // date (YYYY-MM-DD) -> shift code, for same-day uniqueness
	StartInstants   []time.Time          // ordered list of assigned shift start instants
	EndInstants     []time.Time          // ordered, parallel to StartInstants
	ActiveNightRun  *NightRun            // non-nil while a planned night-run is still being placed
}

// NewState returns an empty running state.
func NewState() *State {
	return &State{ByDate: make(map[string]string)}
}

// HoursInWindow sums the resident's assigned hours whose start instant falls
// in [from, to).
func (s *State) HoursInWindow(from, to time.Time) float64 {
	var total float64
	for i, start := range s.StartInstants {
		if !start.Before(from) && start.Before(to) {
			total += s.EndInstants[i].Sub(start).Hours()
		}
	}
	return total
}

// LastBefore returns the end instant of the latest assignment ending at or
// before t, and whether one exists.
func (s *State) LastBefore(t time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, end := range s.EndInstants {
		if !end.After(t) && (!found || end.After(best)) {
			best = end
			found = true
		}
	}
	return best, found
}

// FirstAfter returns the start instant of the earliest assignment starting
// at or after t, and whether one exists.
func (s *State) FirstAfter(t time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, start := range s.StartInstants {
		if !start.Before(t) && (!found || start.Before(best)) {
			best = start
			found = true
		}
	}
	return best, found
}
