package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/paiban/edrota/pkg/errors"
	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/template"
)

var dayColumns = map[string]model.DayOfWeek{
	"Sunday":    model.Sunday,
	"Monday":    model.Monday,
	"Tuesday":   model.Tuesday,
	"Wednesday": model.Wednesday,
	"Thursday":  model.Thursday,
	"Friday":    model.Friday,
	"Saturday":  model.Saturday,
}

var dayLetters = "UMTWRFS"

// LoadShiftTemplates reads the weekly shift table CSV at path, one column
// per day of week, and returns the parsed ShiftTemplate set. A cell's code
// may omit its trailing day letter (e.g. "LR7" under the Monday column
// rather than "LR7m"); the column supplies it when absent.
func LoadShiftTemplates(path string) ([]model.ShiftTemplate, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, apperrors.InputWrap(err, fmt.Sprintf("opening shift table %s", path))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, apperrors.InputWrap(err, "reading shift table header")
	}
	dayOf := make(map[int]model.DayOfWeek, len(header))
	for i, col := range header {
		day, ok := dayColumns[strings.TrimSpace(col)]
		if !ok {
			return nil, nil, apperrors.InputWrap(fmt.Errorf("unrecognized column %q", col), "shift table header mismatch")
		}
		dayOf[i] = day
	}

	var templates []model.ShiftTemplate
	var warnings []string
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, apperrors.InputWrap(err, fmt.Sprintf("reading shift table row %d", row))
		}
		row++

		for col, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			day := dayOf[col]
			oldCode, err := withDaySuffix(cell, day)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("row %d, col %d: %v", row, col, err))
				continue
			}

			normalized, optional, err := template.NormalizeCode(oldCode)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("row %d, col %d: could not normalize %q: %v", row, col, oldCode, err))
				continue
			}
			tmpl, err := template.ParseTemplateCode(normalized)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("row %d, col %d: could not parse %q: %v", row, col, normalized, err))
				continue
			}
			tmpl.Optional = optional
			templates = append(templates, tmpl)
		}
	}

	return templates, warnings, nil
}

// withDaySuffix appends the column's day letter to code if it doesn't
// already carry a recognized trailing day letter of its own (parentheses
// around an optional code are preserved).
func withDaySuffix(code string, day model.DayOfWeek) (string, error) {
	optional := strings.HasPrefix(code, "(") && strings.HasSuffix(code, ")")
	inner := code
	if optional {
		inner = code[1 : len(code)-1]
	}
	if inner == "" {
		return "", fmt.Errorf("empty shift code")
	}
	last := strings.ToUpper(string(inner[len(inner)-1]))
	if strings.ContainsRune(dayLetters, rune(last[0])) {
		return code, nil
	}
	letter := strings.ToLower(day.Letter())
	if optional {
		return "(" + inner + letter + ")", nil
	}
	return inner + letter, nil
}
