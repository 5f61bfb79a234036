package model

import (
	"testing"
	"time"
)

func TestShiftTemplateDuration(t *testing.T) {
	cases := []struct {
		name string
		tmpl ShiftTemplate
		pgy  PGYLevel
		want int
	}{
		{"LIdw is always 5h", ShiftTemplate{Team: TeamIntern, Start: StartDW}, PGY1, 5},
		{"LB11w is always 9h", ShiftTemplate{Team: TeamBlue, Start: Start11W}, PGY1, 9},
		{"Peds is 10h for PGY1", ShiftTemplate{Team: TeamPeds, Start: Start7}, PGY1, 10},
		{"Peds is 10h for PGY2", ShiftTemplate{Team: TeamPeds, Start: Start7}, PGY2, 10},
		{"Eval is 12h for PGY1, the normal intern length", ShiftTemplate{Team: TeamEval, Start: Start7}, PGY1, 12},
		{"Eval is 10h for PGY3", ShiftTemplate{Team: TeamEval, Start: Start7}, PGY3, 10},
		{"PGY1 default is 12h", ShiftTemplate{Team: TeamRed, Start: Start7}, PGY1, 12},
		{"PGY2 default is 10h", ShiftTemplate{Team: TeamGreen, Start: Start7}, PGY2, 10},
		{"PGY3 default is 10h", ShiftTemplate{Team: TeamRed, Start: Start7}, PGY3, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.tmpl.Duration(tc.pgy)
			if got != tc.want {
				t.Errorf("Duration(%v) = %d, want %d", tc.pgy, got, tc.want)
			}
		})
	}
}

func TestShiftTemplateEligibility(t *testing.T) {
	red := ShiftTemplate{Team: TeamRed}
	if !red.Eligible(PGY3) || red.Eligible(PGY1) || red.Eligible(PGY2) {
		t.Errorf("R team eligibility wrong: PGY3=%v PGY1=%v PGY2=%v",
			red.Eligible(PGY3), red.Eligible(PGY1), red.Eligible(PGY2))
	}

	eval := ShiftTemplate{Team: TeamEval}
	evalPGY1 := &Resident{PGY: PGY1, Service: ServiceED}
	evalPGY2 := &Resident{PGY: PGY2, Service: ServiceED}
	if !eval.Preferred(evalPGY1) {
		t.Error("E team should prefer PGY1")
	}
	if eval.Preferred(evalPGY2) {
		t.Error("E team should not prefer PGY2")
	}
	if !eval.Eligible(PGY2) {
		t.Error("E team should still allow PGY2 as fallback")
	}

	peds := ShiftTemplate{Team: TeamPeds}
	pedsBlockPGY1 := &Resident{PGY: PGY1, Service: ServicePeds}
	pedsBlockPGY2 := &Resident{PGY: PGY2, Service: ServicePeds}
	edPGY1 := &Resident{PGY: PGY1, Service: ServiceED}
	if !peds.Preferred(pedsBlockPGY1) || !peds.Preferred(pedsBlockPGY2) {
		t.Error("P team should prefer both Peds-block PGY1 and PGY2")
	}
	if peds.Preferred(edPGY1) {
		t.Error("P team should not prefer an ED-service PGY1, even though PGY1 is eligible")
	}
	if !peds.Eligible(PGY3) {
		t.Error("P team should allow PGY3 as fallback")
	}
}

func TestShiftInstanceWeekStart(t *testing.T) {
	// Wednesday July 1, 2026 -> week starts Monday June 29.
	date, err := time.Parse("2006-01-02", "2026-07-01")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	inst := ShiftInstance{Date: date}
	ws := inst.WeekStart()
	if got := ws.Format("2006-01-02"); got != "2026-06-29" {
		t.Errorf("WeekStart() = %s, want 2026-06-29", got)
	}
}
