package template

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/paiban/edrota/pkg/model"
)

// rruleWeekday maps a model.DayOfWeek to the rrule-go weekday constant used
// to seed a weekly recurrence rule.
func rruleWeekday(d model.DayOfWeek) rrule.Weekday {
	switch d {
	case model.Sunday:
		return rrule.SU
	case model.Monday:
		return rrule.MO
	case model.Tuesday:
		return rrule.TU
	case model.Wednesday:
		return rrule.WE
	case model.Thursday:
		return rrule.TH
	case model.Friday:
		return rrule.FR
	default:
		return rrule.SA
	}
}

// weekdayException substitutes team Intern's and team Blue's plain 07:00
// Wednesday row for the two special shifts the weekly table need not spell
// out by hand: LIdw (14:00-19:00, 5h) and LB11w (14:00-23:00, 9h). Applied
// here rather than left to however the source table happens to code its
// cells, so "no 07:00 start on a Wednesday" holds for every table, not
// only one hand-authored to omit the exception.
func weekdayException(tmpl model.ShiftTemplate) model.ShiftTemplate {
	if tmpl.DayOfWeek != model.Wednesday || tmpl.StartHour() != 7 {
		return tmpl
	}
	switch tmpl.Team {
	case model.TeamIntern:
		tmpl.Start = model.StartDW
	case model.TeamBlue:
		tmpl.Start = model.Start11W
	default:
		return tmpl
	}
	tmpl.Code = recodeStartHour(tmpl.Code, tmpl.StartHour())
	return tmpl
}

// recodeStartHour rewrites the start-hour component of a canonical
// "{m|o}-{hospital}-{team}-{hour}-{day}" code, leaving the rest intact.
func recodeStartHour(code string, hour int) string {
	parts := strings.Split(code, "-")
	if len(parts) != 5 {
		return code
	}
	parts[3] = fmt.Sprintf("%02d", hour)
	return strings.Join(parts, "-")
}

// Expand generates every concrete ShiftInstance a ShiftTemplate produces
// within [horizonStart, horizonEnd], inclusive, using a weekly rrule.RRule
// anchored on the template's day of week. Team Intern's and team Blue's
// plain 07:00 Wednesday row is substituted for its special late-start
// shift before expansion, per weekdayException.
func Expand(tmpl model.ShiftTemplate, horizonStart, horizonEnd time.Time) ([]model.ShiftInstance, error) {
	tmpl = weekdayException(tmpl)

	dtstart := time.Date(horizonStart.Year(), horizonStart.Month(), horizonStart.Day(),
		tmpl.StartHour(), 0, 0, 0, horizonStart.Location())

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekday(tmpl.DayOfWeek)},
		Dtstart:   dtstart,
	})
	if err != nil {
		return nil, fmt.Errorf("building weekly rule for %s: %w", tmpl.Code, err)
	}

	occurrences := rule.Between(dtstart, horizonEnd.AddDate(0, 0, 1), true)

	instances := make([]model.ShiftInstance, 0, len(occurrences))
	for _, start := range occurrences {
		date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		key := model.Key{Date: date.Format("2006-01-02"), Code: tmpl.Code}
		instances = append(instances, model.ShiftInstance{
			Key:      key,
			Template: tmpl,
			Date:     date,
			Start:    start,
			Required: !tmpl.Optional,
		})
	}
	return instances, nil
}

// ExpandAll expands every template in tmpls over the horizon and returns the
// combined, unsorted instance list. A malformed template's error is wrapped
// with its code and returned immediately; a partially built schedule is
// never handed back to the caller.
func ExpandAll(tmpls []model.ShiftTemplate, horizonStart, horizonEnd time.Time) ([]model.ShiftInstance, error) {
	var all []model.ShiftInstance
	for _, tmpl := range tmpls {
		instances, err := Expand(tmpl, horizonStart, horizonEnd)
		if err != nil {
			return nil, err
		}
		all = append(all, instances...)
	}
	return all, nil
}
