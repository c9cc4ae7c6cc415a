package badge

import (
	"encoding/json"
	"strings"
	"testing"

	"vigil/internal/model"
)

func repWith(counts map[string]int) *model.ScanReport {
	return &model.ScanReport{CountsBySeverity: counts}
}

func TestGrade(t *testing.T) {
	cases := []struct {
		name   string
		counts map[string]int
		grade  string
		color  string
	}{
		{"clean", map[string]int{}, "A+", "brightgreen"},
		{"only low and medium", map[string]int{"low": 2, "medium": 1}, "A", "green"},
		{"few high", map[string]int{"high": 3}, "B", "yellowgreen"},
		{"many high", map[string]int{"high": 9}, "C", "yellow"},
		{"some critical", map[string]int{"critical": 2, "high": 4}, "D", "orange"},
		{"critical heavy", map[string]int{"critical": 7}, "F", "red"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			grade, color := Grade(repWith(tc.counts))
			if grade != tc.grade || color != tc.color {
				t.Errorf("Grade() = (%s, %s), want (%s, %s)", grade, color, tc.grade, tc.color)
			}
		})
	}
}

func TestShieldsJSON(t *testing.T) {
	s := ShieldsJSON("vigil", "A", "green")
	var payload map[string]any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["schemaVersion"] != float64(1) || payload["message"] != "A" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestRenderSVG(t *testing.T) {
	svg := RenderSVG("vigil", "B", "yellowgreen", StyleFlat)
	if !strings.HasPrefix(svg, "<svg") || !strings.Contains(svg, ">B<") {
		t.Errorf("unexpected svg output:\n%s", svg)
	}
	if !strings.Contains(svg, "#a4a61d") {
		t.Error("yellowgreen hex missing")
	}

	square := RenderSVG("vigil", "B", "nope", StyleFlatSquare)
	if !strings.Contains(square, `rx="0"`) {
		t.Error("flat-square should have rx=0")
	}
	if !strings.Contains(square, "#9f9f9f") {
		t.Error("unknown color should fall back to grey")
	}
}

func TestParseStyle(t *testing.T) {
	if ParseStyle("flat-square") != StyleFlatSquare {
		t.Error("flat-square not parsed")
	}
	if ParseStyle("anything") != StyleFlat {
		t.Error("default should be flat")
	}
}
