package roster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/edrota/pkg/errors"
	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/template"
)

// shiftTableDoc is the YAML shape of a shift-template override file: one
// list of legacy codes per day of week, the same shape as a column of the
// CSV table.
type shiftTableDoc struct {
	Days map[string][]string `yaml:"days"`
}

// LoadShiftTemplatesYAML reads a shift-template override document at path
// and returns the parsed ShiftTemplate set. It accepts the same legacy code
// vocabulary as the CSV table's cells; a code may omit its trailing day
// letter since the surrounding day key supplies it.
func LoadShiftTemplatesYAML(path string) ([]model.ShiftTemplate, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, apperrors.InputWrap(err, fmt.Sprintf("opening shift template override %s", path))
	}

	var doc shiftTableDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, apperrors.InputWrap(err, "parsing shift template override YAML")
	}

	var templates []model.ShiftTemplate
	var warnings []string
	for dayName, codes := range doc.Days {
		day, ok := dayColumns[strings.TrimSpace(dayName)]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unrecognized day %q in shift template override", dayName))
			continue
		}
		for _, code := range codes {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			oldCode, err := withDaySuffix(code, day)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("day %s: %v", dayName, err))
				continue
			}
			normalized, optional, err := template.NormalizeCode(oldCode)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("day %s: could not normalize %q: %v", dayName, oldCode, err))
				continue
			}
			tmpl, err := template.ParseTemplateCode(normalized)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("day %s: could not parse %q: %v", dayName, normalized, err))
				continue
			}
			tmpl.Optional = optional
			templates = append(templates, tmpl)
		}
	}

	return templates, warnings, nil
}
