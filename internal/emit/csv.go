// Package emit writes a solved schedule back out in the operator's
// spreadsheet-ready CSV shape, the mirror image of the roster package's
// table readers.
package emit

import (
	"encoding/csv"
	"io"
	"sort"

	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
	"github.com/paiban/edrota/pkg/scheduler/template"
)

var header = []string{"date", "shift", "resident"}

// WriteCSV writes one row per shift instance in c, in chronological order
// grouped by date, to w. An unfilled optional shift's resident column is
// left empty; a required shift is always filled by the time this is called
// on a feasible context.
func WriteCSV(w io.Writer, c *constraint.Context) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return err
	}

	for _, key := range sortedInstanceKeys(c.Instances) {
		inst, ok := c.Instance(key)
		if !ok {
			continue
		}
		row := []string{key.Date, template.AbbreviatedCode(inst.Template), c.Schedule[key]}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}

func sortedInstanceKeys(instances []model.ShiftInstance) []model.Key {
	keys := make([]model.Key, len(instances))
	for i, inst := range instances {
		keys[i] = inst.Key
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].Code < keys[j].Code
	})
	return keys
}
