package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFindingJSONOmitemptyAndOptionalFields(t *testing.T) {
	base := Finding{
		ID:                "f-1",
		VulnerabilityType: "sql_injection",
		Subtype:           "basic_injection",
		Severity:          SeverityCritical,
		Confidence:        0.95,
		Line:              12,
		Code:              `$wpdb->query("SELECT * FROM t WHERE id = " . $id)`,
		File:              "includes/db.php",
		Description:       "Direct SQL query with string concatenation",
		Recommendation:    "Use $wpdb->prepare with placeholders",
	}

	payload, err := json.Marshal(base)
	if err != nil {
		t.Fatalf("marshal finding: %v", err)
	}

	jsonStr := string(payload)
	for _, want := range []string{
		`"id":"f-1"`,
		`"vulnerability_type":"sql_injection"`,
		`"subtype":"basic_injection"`,
		`"severity":"critical"`,
		`"line":12`,
	} {
		if !strings.Contains(jsonStr, want) {
			t.Fatalf("expected JSON to include %s, got %s", want, jsonStr)
		}
	}
	for _, omitted := range []string{
		`"cwe":`,
		`"suppressed":`,
		`"suppression_reason":`,
		`"suppression_source":`,
	} {
		if strings.Contains(jsonStr, omitted) {
			t.Fatalf("expected JSON to omit %s, got %s", omitted, jsonStr)
		}
	}

	optional := base
	optional.CWE = "CWE-89"
	optional.Suppressed = true
	optional.SuppressionReason = "vetted"
	optional.SuppressionSource = "file"

	payload, err = json.Marshal(optional)
	if err != nil {
		t.Fatalf("marshal finding with optional fields: %v", err)
	}
	jsonStr = string(payload)
	for _, want := range []string{
		`"cwe":"CWE-89"`,
		`"suppressed":true`,
		`"suppression_reason":"vetted"`,
		`"suppression_source":"file"`,
	} {
		if !strings.Contains(jsonStr, want) {
			t.Fatalf("expected JSON to include %s, got %s", want, jsonStr)
		}
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
	for i := 1; i < len(order); i++ {
		if SeverityRank(order[i-1]) <= SeverityRank(order[i]) {
			t.Fatalf("expected %s to outrank %s", order[i-1], order[i])
		}
	}
	if SeverityRank("bogus") != 0 {
		t.Fatalf("expected unknown severity to rank 0, got %d", SeverityRank("bogus"))
	}
	if ValidSeverity("bogus") {
		t.Fatal("expected bogus severity to be invalid")
	}
	if !ValidSeverity(SeverityMedium) {
		t.Fatal("expected medium severity to be valid")
	}
}
