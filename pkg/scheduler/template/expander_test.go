package template

import (
	"testing"
	"time"

	"github.com/paiban/edrota/pkg/model"
)

func TestExpandWeeklyRecurrence(t *testing.T) {
	tmpl := model.ShiftTemplate{
		Hospital:  model.HospitalL,
		Team:      model.TeamRed,
		Start:     model.Start7,
		DayOfWeek: model.Monday,
		Code:      "m-L-R-07-M",
	}
	start, _ := time.Parse("2006-01-02", "2026-07-01") // Wednesday
	end, _ := time.Parse("2006-01-02", "2026-07-28")

	instances, err := Expand(tmpl, start, end)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(instances) != 4 {
		t.Fatalf("got %d instances, want 4 Mondays in range", len(instances))
	}
	for _, inst := range instances {
		if inst.Date.Weekday() != time.Monday {
			t.Errorf("instance on %s is not a Monday", inst.Date.Format("2006-01-02"))
		}
		if inst.Start.Hour() != 7 {
			t.Errorf("instance start hour = %d, want 7", inst.Start.Hour())
		}
		if !inst.Required {
			t.Error("mandatory template produced non-required instance")
		}
	}
}

func TestExpandOptionalTemplate(t *testing.T) {
	tmpl := model.ShiftTemplate{
		Hospital:  model.HospitalW,
		Team:      model.TeamEval,
		Start:     model.StartN,
		DayOfWeek: model.Friday,
		Code:      "o-W-E-19-F",
		Optional:  true,
	}
	start, _ := time.Parse("2006-01-02", "2026-07-01")
	end, _ := time.Parse("2006-01-02", "2026-07-14")

	instances, err := Expand(tmpl, start, end)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for _, inst := range instances {
		if inst.Required {
			t.Error("optional template produced required instance")
		}
	}
}

func TestExpandSubstitutesInternWednesdayException(t *testing.T) {
	// A plain 07:00 intern row landing on Wednesday must expand to the
	// 14:00-19:00 special, not a 07:00 Wednesday shift, regardless of how
	// the source table happened to code the cell.
	tmpl := model.ShiftTemplate{
		Hospital:  model.HospitalL,
		Team:      model.TeamIntern,
		Start:     model.Start7,
		DayOfWeek: model.Wednesday,
		Code:      "m-L-I-07-W",
	}
	start, _ := time.Parse("2006-01-02", "2026-07-01")
	end, _ := time.Parse("2006-01-02", "2026-07-08")

	instances, err := Expand(tmpl, start, end)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("got %d instances, want 2 Wednesdays in range (07-01 and 07-08)", len(instances))
	}
	inst := instances[0]
	if inst.Start.Hour() != 14 {
		t.Errorf("instance start hour = %d, want 14", inst.Start.Hour())
	}
	if inst.Template.Duration(model.PGY1) != 5 {
		t.Errorf("duration = %dh, want 5h for LIdw", inst.Template.Duration(model.PGY1))
	}
	if inst.Key.Code != "m-L-I-14-W" {
		t.Errorf("code = %q, want m-L-I-14-W", inst.Key.Code)
	}
}

func TestExpandSubstitutesBlueWednesdayException(t *testing.T) {
	tmpl := model.ShiftTemplate{
		Hospital:  model.HospitalL,
		Team:      model.TeamBlue,
		Start:     model.Start7,
		DayOfWeek: model.Wednesday,
		Code:      "m-L-B-07-W",
	}
	start, _ := time.Parse("2006-01-02", "2026-07-01")
	end, _ := time.Parse("2006-01-02", "2026-07-08")

	instances, err := Expand(tmpl, start, end)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("got %d instances, want 2 Wednesdays in range (07-01 and 07-08)", len(instances))
	}
	inst := instances[0]
	if inst.Start.Hour() != 14 {
		t.Errorf("instance start hour = %d, want 14", inst.Start.Hour())
	}
	if inst.Template.Duration(model.PGY1) != 9 {
		t.Errorf("duration = %dh, want 9h for LB11w", inst.Template.Duration(model.PGY1))
	}
	if inst.Key.Code != "m-L-B-14-W" {
		t.Errorf("code = %q, want m-L-B-14-W", inst.Key.Code)
	}
}

func TestExpandLeavesOtherTeamsWednesday0700Alone(t *testing.T) {
	tmpl := model.ShiftTemplate{
		Hospital:  model.HospitalL,
		Team:      model.TeamRed,
		Start:     model.Start7,
		DayOfWeek: model.Wednesday,
		Code:      "m-L-R-07-W",
	}
	start, _ := time.Parse("2006-01-02", "2026-07-01")
	end, _ := time.Parse("2006-01-02", "2026-07-08")

	instances, err := Expand(tmpl, start, end)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(instances) != 2 || instances[0].Start.Hour() != 7 {
		t.Errorf("Red team's Wednesday 07:00 shift should be unaffected, got %+v", instances)
	}
}

func TestExpandAllExpandsEachTemplate(t *testing.T) {
	good := model.ShiftTemplate{Team: model.TeamRed, Start: model.Start7, DayOfWeek: model.Monday, Code: "m-L-R-07-M"}
	start, _ := time.Parse("2006-01-02", "2026-07-01")
	end, _ := time.Parse("2006-01-02", "2026-07-07")

	instances, err := ExpandAll([]model.ShiftTemplate{good}, start, end)
	if err != nil {
		t.Fatalf("ExpandAll: %v", err)
	}
	if len(instances) != 1 {
		t.Errorf("got %d instances, want 1", len(instances))
	}
}
