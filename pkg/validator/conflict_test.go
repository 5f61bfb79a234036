package validator

import (
	"testing"
	"time"

	apperrors "github.com/paiban/edrota/pkg/errors"
	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
)

func instanceAt(date string, hour int, required bool) model.ShiftInstance {
	d, _ := time.Parse("2006-01-02", date)
	tmpl := model.ShiftTemplate{Hospital: model.HospitalL, Team: model.TeamRed, Start: model.Start7, Code: "m-L-R-07-X" + date}
	return model.ShiftInstance{
		Key:      model.Key{Date: date, Code: tmpl.Code},
		Template: tmpl,
		Date:     d,
		Start:    time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC),
		Required: required,
	}
}

func TestCheckAllPassesOnLegalSchedule(t *testing.T) {
	r := &model.Resident{Handle: "r3a", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 200}
	inst := instanceAt("2026-07-06", 7, true)
	start, _ := time.Parse("2006-01-02", "2026-07-06")

	c := constraint.NewContext(start, start, []*model.Resident{r}, []model.ShiftInstance{inst})
	c.Assign(inst.Key, r.Handle, r.PGY)

	if err := CheckAll(c); err != nil {
		t.Errorf("CheckAll on a legal single-shift schedule = %v, want nil", err)
	}
}

func TestCheckAllCatchesUnfilledRequiredShift(t *testing.T) {
	r := &model.Resident{Handle: "r3a", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 200}
	inst := instanceAt("2026-07-06", 7, true)
	start, _ := time.Parse("2006-01-02", "2026-07-06")

	c := constraint.NewContext(start, start, []*model.Resident{r}, []model.ShiftInstance{inst})

	err := CheckAll(c)
	if err == nil {
		t.Fatal("expected an invariant violation for the unfilled required shift")
	}
	if !apperrors.Is(err, apperrors.KindInvariant) {
		t.Errorf("error kind = %v, want KindInvariant", err)
	}
}

func TestCheckAllCatchesOffServiceAssignment(t *testing.T) {
	r := &model.Resident{Handle: "off1", PGY: model.PGY3, Service: model.ServiceOffService, HourTarget: 0}
	inst := instanceAt("2026-07-06", 7, true)
	start, _ := time.Parse("2006-01-02", "2026-07-06")

	c := constraint.NewContext(start, start, []*model.Resident{r}, []model.ShiftInstance{inst})
	c.Assign(inst.Key, r.Handle, r.PGY)

	err := CheckAll(c)
	if err == nil {
		t.Fatal("expected an invariant violation for an off-service assignment")
	}
}

func TestCheckAllCatchesSameDayDoubleBooking(t *testing.T) {
	r := &model.Resident{Handle: "r3a", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 200}
	inst1 := instanceAt("2026-07-06", 7, true)
	inst2 := instanceAt("2026-07-06", 16, true)
	inst2.Key.Code = "m-L-R-16-X2026-07-06"
	inst2.Template.Code = inst2.Key.Code
	start, _ := time.Parse("2006-01-02", "2026-07-06")

	c := constraint.NewContext(start, start, []*model.Resident{r}, []model.ShiftInstance{inst1, inst2})
	c.Assign(inst1.Key, r.Handle, r.PGY)
	c.Assign(inst2.Key, r.Handle, r.PGY)

	err := CheckAll(c)
	if err == nil {
		t.Fatal("expected an invariant violation for two shifts on the same calendar day")
	}
}

func TestCheckAllCatchesAvoidablePedsFallback(t *testing.T) {
	edPGY1 := &model.Resident{Handle: "ed1", PGY: model.PGY1, Service: model.ServiceED, HourTarget: 200}
	pedsPGY1 := &model.Resident{Handle: "peds1", PGY: model.PGY1, Service: model.ServicePeds, HourTarget: 200}

	d, _ := time.Parse("2006-01-02", "2026-07-06")
	tmpl := model.ShiftTemplate{Hospital: model.HospitalL, Team: model.TeamPeds, Start: model.Start7, Code: "m-L-P-07-M"}
	inst := model.ShiftInstance{
		Key:      model.Key{Date: "2026-07-06", Code: tmpl.Code},
		Template: tmpl,
		Date:     d,
		Start:    time.Date(2026, 7, 6, 7, 0, 0, 0, time.UTC),
		Required: true,
	}

	c := constraint.NewContext(d, d, []*model.Resident{edPGY1, pedsPGY1}, []model.ShiftInstance{inst})
	c.Assign(inst.Key, edPGY1.Handle, edPGY1.PGY)

	err := CheckAll(c)
	if err == nil {
		t.Fatal("expected an invariant violation: an ED PGY-1 filled P while a Peds-block PGY-1 was available")
	}
	if !apperrors.Is(err, apperrors.KindInvariant) {
		t.Errorf("error kind = %v, want KindInvariant", err)
	}
}

func TestCheckAllAllowsPedsFallbackWhenNoPedsBlockResidentAvailable(t *testing.T) {
	edPGY1 := &model.Resident{Handle: "ed1", PGY: model.PGY1, Service: model.ServiceED, HourTarget: 200}

	d, _ := time.Parse("2006-01-02", "2026-07-06")
	tmpl := model.ShiftTemplate{Hospital: model.HospitalL, Team: model.TeamPeds, Start: model.Start7, Code: "m-L-P-07-M"}
	inst := model.ShiftInstance{
		Key:      model.Key{Date: "2026-07-06", Code: tmpl.Code},
		Template: tmpl,
		Date:     d,
		Start:    time.Date(2026, 7, 6, 7, 0, 0, 0, time.UTC),
		Required: true,
	}

	c := constraint.NewContext(d, d, []*model.Resident{edPGY1}, []model.ShiftInstance{inst})
	c.Assign(inst.Key, edPGY1.Handle, edPGY1.PGY)

	if err := CheckAll(c); err != nil {
		t.Errorf("CheckAll with no Peds-block resident in the roster = %v, want nil", err)
	}
}

func TestCheckAllCatchesBrokenNightRunAlternation(t *testing.T) {
	r := &model.Resident{Handle: "i1", PGY: model.PGY1, Service: model.ServiceED, HourTarget: 200}
	start, _ := time.Parse("2006-01-02", "2026-07-06")
	c := constraint.NewContext(start, start, []*model.Resident{r}, nil)

	run := &model.NightRun{Resident: "i1", StartDate: "2026-07-06", Length: 3, Hospitals: []model.Hospital{model.HospitalL, model.HospitalL, model.HospitalW}}
	c.CommitNightRun(run)

	err := CheckAll(c)
	if err == nil {
		t.Fatal("expected an invariant violation for a repeated hospital letter")
	}
}
