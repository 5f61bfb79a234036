package template

import "testing"

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		old          string
		wantCode     string
		wantOptional bool
	}{
		{"LR7m", "m-L-R-07-M", false},
		{"LR4t", "m-L-R-16-T", false},
		{"LIdw", "m-L-I-14-W", false},
		{"LB11w", "m-L-B-14-W", false},
		{"(LR7m)", "o-L-R-07-M", true},
	}
	for _, tc := range cases {
		t.Run(tc.old, func(t *testing.T) {
			got, optional, err := NormalizeCode(tc.old)
			if err != nil {
				t.Fatalf("NormalizeCode(%q) error: %v", tc.old, err)
			}
			if got != tc.wantCode {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tc.old, got, tc.wantCode)
			}
			if optional != tc.wantOptional {
				t.Errorf("NormalizeCode(%q) optional = %v, want %v", tc.old, optional, tc.wantOptional)
			}
		})
	}
}

func TestParseTemplateCodeWednesdaySpecials(t *testing.T) {
	dw, err := ParseTemplateCode("m-L-I-14-W")
	if err != nil {
		t.Fatalf("parse LIdw: %v", err)
	}
	if dw.Start != "dw" {
		t.Errorf("LIdw start = %q, want dw", dw.Start)
	}

	w11, err := ParseTemplateCode("m-L-B-14-W")
	if err != nil {
		t.Fatalf("parse LB11w: %v", err)
	}
	if w11.Start != "11w" {
		t.Errorf("LB11w start = %q, want 11w", w11.Start)
	}

	plain, err := ParseTemplateCode("m-L-G-14-W")
	if err != nil {
		t.Fatalf("parse plain 2pm Wednesday: %v", err)
	}
	if plain.Start != "2" {
		t.Errorf("plain Wednesday 2pm start = %q, want 2", plain.Start)
	}
}

func TestAbbreviatedCodeDropsDaySuffix(t *testing.T) {
	// AbbreviatedCode is not a strict round trip of the legacy per-cell code:
	// the day letter that disambiguates a cell's column is dropped, since
	// the output row's date column already carries it. Only the two
	// Wednesday specials keep a trailing letter, because it is part of
	// their start-token ("dw", "11w"), not a day suffix.
	cases := []struct {
		old  string
		want string
	}{
		{"LR7m", "LR7"},
		{"LR4t", "LR4"},
		{"LIdw", "LIdw"},
		{"LB11w", "LB11w"},
		{"(LR7m)", "(LR7)"},
	}
	for _, tc := range cases {
		t.Run(tc.old, func(t *testing.T) {
			normalized, optional, err := NormalizeCode(tc.old)
			if err != nil {
				t.Fatalf("NormalizeCode(%q): %v", tc.old, err)
			}
			tmpl, err := ParseTemplateCode(normalized)
			if err != nil {
				t.Fatalf("ParseTemplateCode(%q): %v", normalized, err)
			}
			tmpl.Optional = optional
			if got := AbbreviatedCode(tmpl); got != tc.want {
				t.Errorf("AbbreviatedCode(%q) = %q, want %q", tc.old, got, tc.want)
			}
		})
	}
}

func TestParseTemplateCodeRoundTrip(t *testing.T) {
	normalized, _, err := NormalizeCode("LR7m")
	if err != nil {
		t.Fatalf("NormalizeCode: %v", err)
	}
	tmpl, err := ParseTemplateCode(normalized)
	if err != nil {
		t.Fatalf("ParseTemplateCode(%q): %v", normalized, err)
	}
	if tmpl.StartHour() != 7 {
		t.Errorf("StartHour() = %d, want 7", tmpl.StartHour())
	}
	if tmpl.Optional {
		t.Error("expected mandatory shift")
	}
}
