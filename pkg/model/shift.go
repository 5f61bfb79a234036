package model

import (
	"fmt"
	"time"
)

// ShiftTemplate is one row of the weekly recurring pattern: a hospital,
// team, start token, and day of week, from which dated ShiftInstances are
// expanded.
type ShiftTemplate struct {
	Hospital   Hospital
	Team       Team
	Start      StartToken
	DayOfWeek  DayOfWeek
	Code       string // canonical code, e.g. "m-L-R-07-M", "m-L-I-14-W"
	Optional   bool
}

// Duration returns the shift's length in hours for a resident of the given
// PGY level, applying the special cases in order: the two Wednesday-only
// codes, then Peds (always 10h), then the PGY-1 default of 12h vs the
// PGY-2/3 default of 10h. Eval carries no override of its own: a PGY-1 on
// Eval still gets the normal 12h intern length, and PGY-2/3 the normal 10h.
func (t ShiftTemplate) Duration(level PGYLevel) int {
	switch {
	case t.Start == StartDW:
		return 5
	case t.Start == Start11W:
		return 9
	case t.Team == TeamPeds:
		return 10
	case level == PGY1:
		return 12
	default:
		return 10
	}
}

// StartHour returns the shift's start hour on a 24-hour clock.
func (t ShiftTemplate) StartHour() int {
	switch t.Start {
	case Start7:
		return 7
	case Start9:
		return 9
	case Start11:
		return 11
	case Start1:
		return 13
	case Start2, StartDW, Start11W:
		return 14
	case Start4:
		return 16
	case StartN:
		return 19
	default:
		return 7
	}
}

// EligiblePGY returns the primary (preferred) PGY levels for this team and
// the fallback levels (§4.3 of the eligibility table). Both sets pass
// Eligible; Preferred is what tells them apart.
func (t ShiftTemplate) EligiblePGY() (primary, fallback []PGYLevel) {
	switch t.Team {
	case TeamRed:
		return []PGYLevel{PGY3}, nil
	case TeamGreen:
		return []PGYLevel{PGY2}, nil
	case TeamIntern:
		return []PGYLevel{PGY1}, nil
	case TeamEval:
		return []PGYLevel{PGY1}, []PGYLevel{PGY2, PGY3}
	case TeamBlue:
		return []PGYLevel{PGY1}, nil
	case TeamPeds:
		return []PGYLevel{PGY1, PGY2}, []PGYLevel{PGY3}
	default:
		return nil, nil
	}
}

// Preferred reports whether r is in the primary (preferred) pool for this
// team, as opposed to only the fallback pool. PGY alone decides this for
// every team except Peds: its primary pool is Peds-block residents of
// PGY-1 or PGY-2, not any PGY-1/2 resident — an off-service (e.g.
// ED-block) PGY-1/2 filling a P shift is only ever a fallback fill, same
// as a PGY-3.
func (t ShiftTemplate) Preferred(r *Resident) bool {
	primary, _ := t.EligiblePGY()
	inPrimary := false
	for _, p := range primary {
		if p == r.PGY {
			inPrimary = true
			break
		}
	}
	if !inPrimary {
		return false
	}
	if t.Team == TeamPeds {
		return r.Service == ServicePeds
	}
	return true
}

// Eligible reports whether level may legally fill this team at all (primary
// or fallback).
func (t ShiftTemplate) Eligible(level PGYLevel) bool {
	primary, fallback := t.EligiblePGY()
	for _, p := range primary {
		if p == level {
			return true
		}
	}
	for _, p := range fallback {
		if p == level {
			return true
		}
	}
	return false
}

// Key uniquely identifies a ShiftInstance.
type Key struct {
	Date string // YYYY-MM-DD
	Code string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Date, k.Code)
}

// ShiftInstance is a dated occurrence of a ShiftTemplate, with its start and
// end instants fixed but its duration still dependent on whoever fills it
// (the scorer and constraint model always resolve duration against the
// candidate PGY level at legality-check time).
type ShiftInstance struct {
	Key       Key
	Template  ShiftTemplate
	Date      time.Time // midnight local, the calendar day
	Start     time.Time // absolute start instant
	Required  bool
}

// End returns the absolute end instant for a resident of the given PGY
// level filling this instance.
func (s ShiftInstance) End(level PGYLevel) time.Time {
	return s.Start.Add(time.Duration(s.Template.Duration(level)) * time.Hour)
}

// Range returns the TimeRange occupied by this instance for the given PGY
// level.
func (s ShiftInstance) Range(level PGYLevel) TimeRange {
	return TimeRange{Start: s.Start, End: s.End(level)}
}

// WeekStart returns the Monday that begins this instance's duty-hour week.
func (s ShiftInstance) WeekStart() time.Time {
	offset := (int(s.Date.Weekday()) + 6) % 7 // days since Monday
	return s.Date.AddDate(0, 0, -offset)
}
