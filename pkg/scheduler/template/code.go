// Package template expands a set of weekly recurring shift templates into
// concrete shift instances over a scheduling horizon.
package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paiban/edrota/pkg/model"
)

// specialCases maps a legacy shift code directly to its normalized form,
// for the two codes whose start hour does not follow the regular
// digit-to-24h-clock rule.
var specialCases = map[string]string{
	"LIdw":  "L-I-14-W",
	"LB11w": "L-B-14-W",
}

// NormalizeCode converts a legacy shift code such as "LR7m" or "(LB11w)"
// into the canonical "{optional}-{hospital}-{team}-{start}-{day}" form.
// The optional-marking parentheses, if present, set the optional flag and
// are stripped before parsing.
func NormalizeCode(old string) (normalized string, optional bool, err error) {
	optional = strings.HasPrefix(old, "(") && strings.HasSuffix(old, ")")
	if optional {
		old = old[1 : len(old)-1]
	}
	prefix := "m"
	if optional {
		prefix = "o"
	}

	if body, ok := specialCases[old]; ok {
		return prefix + "-" + body, optional, nil
	}

	if len(old) < 4 {
		return "", false, fmt.Errorf("shift code %q too short", old)
	}

	hospital := string(old[0])
	team := string(old[1])
	timeSpec := old[2 : len(old)-1]
	day := strings.ToUpper(string(old[len(old)-1]))

	var startHour string
	switch timeSpec {
	case "d":
		startHour = "07"
	case "n":
		startHour = "19"
	default:
		hour, perr := strconv.Atoi(timeSpec)
		if perr != nil {
			return "", false, fmt.Errorf("shift code %q has invalid start spec %q: %w", old, timeSpec, perr)
		}
		switch hour {
		case 7, 9, 11:
			startHour = fmt.Sprintf("%02d", hour)
		default:
			startHour = fmt.Sprintf("%02d", (hour%12)+12)
		}
	}

	return fmt.Sprintf("%s-%s-%s-%s-%s", prefix, hospital, team, startHour, day), optional, nil
}

// ParseTemplateCode splits a canonical code into its components and builds
// the corresponding ShiftTemplate, with Code set to the canonical code
// itself and Optional taken from its leading "m"/"o" component.
func ParseTemplateCode(code string) (model.ShiftTemplate, error) {
	parts := strings.Split(code, "-")
	if len(parts) != 5 {
		return model.ShiftTemplate{}, fmt.Errorf("code %q has %d components, want 5", code, len(parts))
	}
	optionalTok, hospitalTok, teamTok, startTok, dayTok := parts[0], parts[1], parts[2], parts[3], parts[4]

	hospital, err := hospitalFromLetter(hospitalTok)
	if err != nil {
		return model.ShiftTemplate{}, fmt.Errorf("code %q: %w", code, err)
	}
	team, err := teamFromLetter(teamTok)
	if err != nil {
		return model.ShiftTemplate{}, fmt.Errorf("code %q: %w", code, err)
	}
	start, err := startFromHour(startTok, dayTok, team)
	if err != nil {
		return model.ShiftTemplate{}, fmt.Errorf("code %q: %w", code, err)
	}
	dow, err := model.DayOfWeekFromLetter(dayTok)
	if err != nil {
		return model.ShiftTemplate{}, fmt.Errorf("code %q: %w", code, err)
	}

	return model.ShiftTemplate{
		Hospital:  hospital,
		Team:      team,
		Start:     start,
		DayOfWeek: dow,
		Code:      code,
		Optional:  optionalTok == "o",
	}, nil
}

// AbbreviatedCode reverses NormalizeCode/ParseTemplateCode, rendering tmpl
// back into the legacy abbreviated vocabulary the output CSV must match
// exactly (e.g. "LR7", "LIdw", "LE11"). The day of week is not appended:
// it is already carried by the output row's date column, and only the two
// Wednesday specials end in a letter at all, which belongs to their
// start-token itself ("dw", "11w"), not to a day suffix.
func AbbreviatedCode(tmpl model.ShiftTemplate) string {
	body := string(tmpl.Hospital) + string(tmpl.Team) + string(tmpl.Start)
	if tmpl.Optional {
		return "(" + body + ")"
	}
	return body
}

func hospitalFromLetter(s string) (model.Hospital, error) {
	switch s {
	case "L":
		return model.HospitalL, nil
	case "W":
		return model.HospitalW, nil
	default:
		return "", fmt.Errorf("unknown hospital letter %q", s)
	}
}

func teamFromLetter(s string) (model.Team, error) {
	switch s {
	case "R":
		return model.TeamRed, nil
	case "G":
		return model.TeamGreen, nil
	case "I":
		return model.TeamIntern, nil
	case "E":
		return model.TeamEval, nil
	case "B":
		return model.TeamBlue, nil
	case "P":
		return model.TeamPeds, nil
	default:
		return "", fmt.Errorf("unknown team letter %q", s)
	}
}

// startFromHour maps a two-digit 24h start hour to the matching StartToken.
// Hour 14 on a Wednesday is ambiguous between a plain 2pm shift and the two
// Wednesday specials, which share that hour: team I always means LIdw and
// team B always means LB11w, since those are the only shifts those teams
// run at that hour; every other team's 14h Wednesday shift is a plain
// Start2.
func startFromHour(hourTok, dayTok string, team model.Team) (model.StartToken, error) {
	hour, err := strconv.Atoi(hourTok)
	if err != nil {
		return "", fmt.Errorf("invalid start hour %q: %w", hourTok, err)
	}
	if hour == 14 && dayTok == "W" {
		switch team {
		case model.TeamIntern:
			return model.StartDW, nil
		case model.TeamBlue:
			return model.Start11W, nil
		}
	}
	switch hour {
	case 7:
		return model.Start7, nil
	case 9:
		return model.Start9, nil
	case 11:
		return model.Start11, nil
	case 13:
		return model.Start1, nil
	case 14:
		return model.Start2, nil
	case 16:
		return model.Start4, nil
	case 19:
		return model.StartN, nil
	default:
		return "", fmt.Errorf("unrecognized start hour %d", hour)
	}
}
