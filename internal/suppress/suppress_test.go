package suppress

import (
	"os"
	"path/filepath"
	"testing"

	"vigil/internal/model"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	rules, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules != nil {
		t.Fatalf("expected nil rules, got %v", rules)
	}
}

func TestLoad_ReasonRequired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	content := "suppressions:\n  - category: xss\n    files: \"*.php\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for rule without reason")
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".vigil", "suppressions.yaml")
	in := []Rule{
		{Category: "sql_injection", Files: "*/legacy/*.php", Reason: "scheduled rewrite"},
		{Subtype: "weak_hash", Reason: "non-security checksum", Author: "ops"},
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(out))
	}
	if out[0].ID == "" || out[1].ID == "" {
		t.Error("loaded rules should carry generated IDs")
	}
	if out[0].Reason != "scheduled rewrite" {
		t.Errorf("reason lost in round trip: %q", out[0].Reason)
	}
}

func TestEnsureRuleIDs_Unique(t *testing.T) {
	rules := EnsureRuleIDs([]Rule{
		{Category: "xss", Reason: "a"},
		{Category: "xss", Reason: "b"},
	})
	if rules[0].ID == rules[1].ID {
		t.Fatalf("duplicate IDs: %q", rules[0].ID)
	}
}

func TestApply_FileRules(t *testing.T) {
	findings := []model.Finding{
		{ID: "f-1", VulnerabilityType: "xss", Subtype: "direct_output", File: "wp-content/plugins/x/admin.php", Line: 3, Severity: model.SeverityHigh},
		{ID: "f-2", VulnerabilityType: "sql_injection", Subtype: "basic_injection", File: "wp-content/plugins/x/db.php", Line: 9, Severity: model.SeverityCritical},
	}
	rules := []Rule{
		{Category: "xss", Files: "*admin.php", Reason: "output is nonce-gated admin HTML"},
	}

	active, suppressed := Apply(findings, rules, nil)
	if len(active) != 1 || len(suppressed) != 1 {
		t.Fatalf("expected 1/1 split, got %d/%d", len(active), len(suppressed))
	}
	if active[0].ID != "f-2" {
		t.Errorf("wrong finding kept active: %s", active[0].ID)
	}
	s := suppressed[0]
	if !s.Suppressed || s.SuppressionSource != "file" {
		t.Errorf("suppression metadata not stamped: %+v", s)
	}
	if s.SuppressionReason != "output is nonce-gated admin HTML" {
		t.Errorf("reason not carried: %q", s.SuppressionReason)
	}
}

func TestApply_ExpiredRuleIgnored(t *testing.T) {
	findings := []model.Finding{
		{ID: "f-1", VulnerabilityType: "xss", File: "a.php", Line: 1},
	}
	rules := []Rule{
		{Category: "xss", Reason: "temporary", Expires: "2020-01-01"},
	}
	active, suppressed := Apply(findings, rules, nil)
	if len(active) != 1 || len(suppressed) != 0 {
		t.Fatalf("expired rule must not suppress, got %d/%d", len(active), len(suppressed))
	}
}

func TestApply_EmptyRuleMatchesNothing(t *testing.T) {
	findings := []model.Finding{{ID: "f-1", VulnerabilityType: "xss", File: "a.php"}}
	active, suppressed := Apply(findings, []Rule{{Reason: "too broad"}}, nil)
	if len(active) != 1 || len(suppressed) != 0 {
		t.Fatalf("empty rule suppressed a finding: %d/%d", len(active), len(suppressed))
	}
}

func TestApply_WildcardSubtypeRejected(t *testing.T) {
	findings := []model.Finding{{ID: "f-1", VulnerabilityType: "xss", Subtype: "direct_output", File: "a.php"}}
	active, _ := Apply(findings, []Rule{{Subtype: "*", Reason: "blanket"}}, nil)
	if len(active) != 1 {
		t.Fatal("bare wildcard subtype must not suppress")
	}
}

func TestApply_InlineSameAndNextLine(t *testing.T) {
	findings := []model.Finding{
		{ID: "f-1", VulnerabilityType: "xss", File: "a.php", Line: 4},
		{ID: "f-2", VulnerabilityType: "xss", File: "a.php", Line: 5},
		{ID: "f-3", VulnerabilityType: "xss", File: "a.php", Line: 7},
		{ID: "f-4", VulnerabilityType: "sql_injection", File: "a.php", Line: 4},
	}
	annotations := map[string][]Annotation{
		"a.php": {{Category: "xss", Reason: "escaped upstream", File: "a.php", Line: 4}},
	}

	active, suppressed := Apply(findings, nil, annotations)
	if len(suppressed) != 2 {
		t.Fatalf("annotation should cover lines 4 and 5 only, suppressed %d", len(suppressed))
	}
	for _, s := range suppressed {
		if s.SuppressionSource != "inline" || s.SuppressionReason != "escaped upstream" {
			t.Errorf("inline metadata wrong: %+v", s)
		}
	}
	for _, a := range active {
		if a.ID == "f-1" || a.ID == "f-2" {
			t.Errorf("finding %s should be suppressed", a.ID)
		}
	}
}

func TestApply_InlineAllCategory(t *testing.T) {
	findings := []model.Finding{
		{ID: "f-1", VulnerabilityType: "sql_injection", File: "a.php", Line: 2},
	}
	annotations := map[string][]Annotation{
		"a.php": {{Category: "all", File: "a.php", Line: 1}},
	}
	_, suppressed := Apply(findings, nil, annotations)
	if len(suppressed) != 1 {
		t.Fatal("category all should suppress every category on the covered lines")
	}
	if suppressed[0].SuppressionReason != "inline suppression" {
		t.Errorf("default reason expected, got %q", suppressed[0].SuppressionReason)
	}
}
