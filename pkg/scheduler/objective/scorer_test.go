package objective

import (
	"testing"
	"time"

	"github.com/paiban/edrota/internal/config"
	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
)

func redInst(date string, hour int) model.ShiftInstance {
	d, _ := time.Parse("2006-01-02", date)
	var start model.StartToken
	switch hour {
	case 7:
		start = model.Start7
	case 16:
		start = model.Start4
	case 19:
		start = model.StartN
	}
	tmpl := model.ShiftTemplate{Hospital: model.HospitalL, Team: model.TeamRed, Start: start, Code: "m-L-R-x-X"}
	return model.ShiftInstance{
		Key:      model.Key{Date: date, Code: tmpl.Code + date},
		Template: tmpl,
		Date:     d,
		Start:    time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC),
		Required: true,
	}
}

func baseWeights() config.WeightConfig {
	return config.WeightConfig{
		HourDeviation:      1,
		UnfilledOptional:   8,
		PreferenceMismatch: 5,
		RequestViolation:   20,
		Circadian:          3,
		FlipFlop:           10,
		NightAdjacency:     -4,
	}
}

func TestScorerHourDeviation(t *testing.T) {
	r := &model.Resident{Handle: "r3", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 10}
	inst := redInst("2026-07-06", 7)
	horizonStart, _ := time.Parse("2006-01-02", "2026-07-06")
	c := constraint.NewContext(horizonStart, horizonStart, []*model.Resident{r}, []model.ShiftInstance{inst})
	c.Assign(inst.Key, r.Handle, r.PGY) // 10h for PGY3

	sc := NewScorer(baseWeights())
	b := sc.Score(c)
	if b.HourDeviation != 0 {
		t.Errorf("HourDeviation = %v, want 0 (target met exactly)", b.HourDeviation)
	}
}

func TestScorerUnfilledOptionalPenalty(t *testing.T) {
	r := &model.Resident{Handle: "r3", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 0}
	inst := redInst("2026-07-06", 7)
	inst.Required = false
	horizonStart, _ := time.Parse("2006-01-02", "2026-07-06")
	c := constraint.NewContext(horizonStart, horizonStart, []*model.Resident{r}, []model.ShiftInstance{inst})

	sc := NewScorer(baseWeights())
	b := sc.Score(c)
	if b.UnfilledOptional != 1 {
		t.Errorf("UnfilledOptional = %v, want 1", b.UnfilledOptional)
	}
}

func TestScorerCircadianBackwardStepPenalized(t *testing.T) {
	r := &model.Resident{Handle: "r3", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 0}
	night := redInst("2026-07-06", 19)
	morning := redInst("2026-07-07", 7)
	morning.Key.Code += "m"

	horizonStart, _ := time.Parse("2006-01-02", "2026-07-06")
	horizonEnd, _ := time.Parse("2006-01-02", "2026-07-07")
	c := constraint.NewContext(horizonStart, horizonEnd, []*model.Resident{r}, []model.ShiftInstance{night, morning})
	c.Assign(night.Key, r.Handle, r.PGY)
	c.Assign(morning.Key, r.Handle, r.PGY)

	sc := NewScorer(baseWeights())
	b := sc.Score(c)
	if b.Circadian <= 0 {
		t.Errorf("Circadian = %v, want > 0 for night->morning backward step", b.Circadian)
	}
}

func TestScorerCircadianFreeDayRemovesPenalty(t *testing.T) {
	r := &model.Resident{Handle: "r3", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 0}
	night := redInst("2026-07-06", 19)
	morning := redInst("2026-07-08", 7) // one full free day between
	morning.Key.Code += "m"

	horizonStart, _ := time.Parse("2006-01-02", "2026-07-06")
	horizonEnd, _ := time.Parse("2006-01-02", "2026-07-08")
	c := constraint.NewContext(horizonStart, horizonEnd, []*model.Resident{r}, []model.ShiftInstance{night, morning})
	c.Assign(night.Key, r.Handle, r.PGY)
	c.Assign(morning.Key, r.Handle, r.PGY)

	sc := NewScorer(baseWeights())
	b := sc.Score(c)
	if b.Circadian != 0 {
		t.Errorf("Circadian = %v, want 0 when a free day separates the shifts", b.Circadian)
	}
}
