package emit

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
)

func TestWriteCSVOrdersByDateThenCode(t *testing.T) {
	d1, _ := time.Parse("2006-01-02", "2026-07-06")
	d2, _ := time.Parse("2006-01-02", "2026-07-07")

	tmplR := model.ShiftTemplate{Hospital: model.HospitalL, Team: model.TeamRed, Start: model.Start7, DayOfWeek: model.Monday, Code: "m-L-R-07-M"}
	tmplG := model.ShiftTemplate{Hospital: model.HospitalL, Team: model.TeamGreen, Start: model.Start7, DayOfWeek: model.Monday, Code: "m-L-G-07-M"}
	tmplOpt := model.ShiftTemplate{Hospital: model.HospitalL, Team: model.TeamEval, Start: model.Start9, DayOfWeek: model.Tuesday, Code: "o-L-E-09-T", Optional: true}

	instances := []model.ShiftInstance{
		{Key: model.Key{Date: "2026-07-06", Code: "m-L-G-07-M"}, Template: tmplG, Date: d1, Start: d1, Required: true},
		{Key: model.Key{Date: "2026-07-06", Code: "m-L-R-07-M"}, Template: tmplR, Date: d1, Start: d1, Required: true},
		{Key: model.Key{Date: "2026-07-07", Code: "o-L-E-09-T"}, Template: tmplOpt, Date: d2, Start: d2, Required: false},
	}
	residents := []*model.Resident{
		{Handle: "r3a", PGY: model.PGY3, Service: model.ServiceED, HourTarget: 200},
		{Handle: "r2a", PGY: model.PGY2, Service: model.ServiceED, HourTarget: 200},
	}
	c := constraint.NewContext(d1, d2, residents, instances)
	c.Assign(instances[0].Key, "r2a", model.PGY2)
	c.Assign(instances[1].Key, "r3a", model.PGY3)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, c); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4 (header + 3 rows): %q", len(lines), buf.String())
	}
	if lines[1] != "2026-07-06,LG7,r2a" {
		t.Errorf("row 1 = %q, want LG7 before LR7 on 2026-07-06", lines[1])
	}
	if lines[2] != "2026-07-06,LR7,r3a" {
		t.Errorf("row 2 = %q", lines[2])
	}
	if lines[3] != "2026-07-07,(LE9),\"\"" && lines[3] != "2026-07-07,(LE9)," {
		t.Errorf("row 3 = %q, want unfilled optional shift with empty resident column", lines[3])
	}
}
