package roster

import (
	"testing"

	"github.com/paiban/edrota/pkg/model"
)

func TestLoadShiftTemplates(t *testing.T) {
	csv := "Sunday,Monday,Tuesday,Wednesday,Thursday,Friday,Saturday\n" +
		",LR7,,LIdw,,,\n" +
		",,,LB11w,,,(LE7)\n"
	path := writeTempCSV(t, "shifts.csv", csv)

	templates, warnings, err := LoadShiftTemplates(path)
	if err != nil {
		t.Fatalf("LoadShiftTemplates: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(templates) != 4 {
		t.Fatalf("got %d templates, want 4", len(templates))
	}

	var sawDW, sawBlueW, sawOptionalEval bool
	for _, tmpl := range templates {
		switch {
		case tmpl.Team == model.TeamIntern && tmpl.Start == model.StartDW:
			sawDW = true
		case tmpl.Team == model.TeamBlue && tmpl.Start == model.Start11W:
			sawBlueW = true
		case tmpl.Team == model.TeamEval && tmpl.Optional:
			sawOptionalEval = true
		}
	}
	if !sawDW {
		t.Error("expected LIdw template")
	}
	if !sawBlueW {
		t.Error("expected LB11w template")
	}
	if !sawOptionalEval {
		t.Error("expected optional Eval template")
	}
}

func TestWithDaySuffix(t *testing.T) {
	got, err := withDaySuffix("LR7", model.Monday)
	if err != nil {
		t.Fatalf("withDaySuffix: %v", err)
	}
	if got != "LR7m" {
		t.Errorf("withDaySuffix(LR7, Monday) = %q, want LR7m", got)
	}

	got, err = withDaySuffix("LIdw", model.Wednesday)
	if err != nil {
		t.Fatalf("withDaySuffix: %v", err)
	}
	if got != "LIdw" {
		t.Errorf("withDaySuffix(LIdw, Wednesday) = %q, want LIdw unchanged", got)
	}

	got, err = withDaySuffix("(LE7)", model.Friday)
	if err != nil {
		t.Fatalf("withDaySuffix: %v", err)
	}
	if got != "(LE7f)" {
		t.Errorf("withDaySuffix((LE7), Friday) = %q, want (LE7f)", got)
	}
}
