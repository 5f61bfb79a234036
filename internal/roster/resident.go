// Package roster loads the resident table and weekly shift-template table
// from CSV files, validating and normalizing each row before it reaches the
// scheduler.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/paiban/edrota/pkg/errors"
	"github.com/paiban/edrota/pkg/model"
)

var validate = validator.New()

// residentRow is the validated shape of one resident-table row before its
// fields are converted into model types.
type residentRow struct {
	Name      string `validate:"required"`
	PGY       int    `validate:"required,min=1,max=3"`
	Service   string `validate:"required"`
	HoursGoal int    `validate:"required,min=0"`
	Requests  string
}

var residentColumns = []string{"Resident", "PGY", "Service", "Hours/Block Goal", "Requests"}

// chiefColumn is the resident table's optional chief-flag column name; a
// table with no such column leaves every resident's Chief field false.
const chiefColumn = "Chief"

// LoadResidents reads the resident table CSV at path and returns the parsed
// Resident records. "Requests" is a comma-separated list of M/D/YYYY dates;
// a date that fails to parse is skipped with its resident flagged in the
// returned warnings rather than aborting the whole load.
func LoadResidents(path string) ([]*model.Resident, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, apperrors.InputWrap(err, fmt.Sprintf("opening resident table %s", path))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, apperrors.InputWrap(err, "reading resident table header")
	}
	index, err := columnIndex(header, residentColumns)
	if err != nil {
		return nil, nil, apperrors.InputWrap(err, "resident table header mismatch")
	}
	chiefIdx, hasChief := index[chiefColumn]

	var residents []*model.Resident
	var warnings []string
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, apperrors.InputWrap(err, fmt.Sprintf("reading resident table row %d", row))
		}
		row++

		pgy, err := strconv.Atoi(strings.TrimSpace(record[index["PGY"]]))
		if err != nil {
			return nil, nil, apperrors.Input(row, "PGY", "not an integer")
		}
		hoursGoal, err := strconv.Atoi(strings.TrimSpace(record[index["Hours/Block Goal"]]))
		if err != nil {
			return nil, nil, apperrors.Input(row, "Hours/Block Goal", "not an integer")
		}

		rr := residentRow{
			Name:      strings.TrimSpace(record[index["Resident"]]),
			PGY:       pgy,
			Service:   strings.TrimSpace(record[index["Service"]]),
			HoursGoal: hoursGoal,
			Requests:  strings.TrimSpace(record[index["Requests"]]),
		}
		if err := validate.Struct(rr); err != nil {
			return nil, nil, apperrors.Input(row, "resident", err.Error())
		}

		service, ok := serviceFromString(rr.Service)
		if !ok {
			return nil, nil, apperrors.Input(row, "Service", fmt.Sprintf("unknown service %q", rr.Service))
		}

		requests, reqWarnings := parseRequests(rr.Requests, rr.Name, row)
		warnings = append(warnings, reqWarnings...)

		var chief bool
		if hasChief {
			chief = parseChiefFlag(record[chiefIdx])
		}

		residents = append(residents, &model.Resident{
			Handle:     rr.Name,
			PGY:        model.PGYLevel(rr.PGY),
			Service:    service,
			HourTarget: rr.HoursGoal,
			Chief:      chief,
			Requests:   requests,
		})
	}

	return residents, warnings, nil
}

// parseChiefFlag accepts the spreadsheet's usual boolean spellings for the
// optional Chief column; anything else is treated as false rather than
// rejected, since the column is informational, not validated input.
func parseChiefFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1", "x":
		return true
	default:
		return false
	}
}

func serviceFromString(s string) (model.ServiceType, bool) {
	switch model.ServiceType(s) {
	case model.ServiceED, model.ServicePeds, model.ServiceOffService, model.ServiceVacation:
		return model.ServiceType(s), true
	default:
		return "", false
	}
}

func parseRequests(raw, name string, row int) ([]time.Time, []string) {
	if raw == "" {
		return nil, nil
	}
	var dates []time.Time
	var warnings []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		d, err := time.Parse("1/2/2006", tok)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: could not parse request date %q for %s: %v", row, tok, name, err))
			continue
		}
		dates = append(dates, d)
	}
	return dates, warnings
}

func columnIndex(header []string, want []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}
	for _, w := range want {
		if _, ok := index[w]; !ok {
			return nil, fmt.Errorf("missing column %q, got %v", w, header)
		}
	}
	return index, nil
}
