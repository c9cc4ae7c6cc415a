// Package detector implements the per-category vulnerability detectors. A
// detector is a pure function of (content, file path): it holds no mutable
// state after construction and is safe for concurrent use.
package detector

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"vigil/internal/model"
	"vigil/internal/rules"
)

// Detector is implemented by each vulnerability-class detector.
type Detector interface {
	Name() string
	Detect(content, filePath string) []model.Finding
	Analyze(snippet, filePath string) model.Analysis
	IsFalsePositive(f model.Finding, content string) bool
	CheckSafePractices(content string) []model.SafePractice
}

// Boosts are the additive confidence increments applied when a match carries
// extra risk indicators. They are ad hoc tuning constants, so they are
// configurable rather than hard-coded.
type Boosts struct {
	UserInput float64
	Keyword   float64
}

// DefaultBoosts returns the stock increments.
func DefaultBoosts() Boosts {
	return Boosts{UserInput: 0.10, Keyword: 0.05}
}

// userInputMarkers are the request-controlled sources that raise confidence
// when present in matched text.
var userInputMarkers = []string{
	"$_GET", "$_POST", "$_REQUEST", "$_COOKIE", "$_SERVER", "$_FILES", "php://input",
}

// matchCategory runs every rule of a category over content in declaration
// order. The first rule to claim a line wins; later rules matching the same
// line are skipped so overlapping signatures yield one finding per site.
func matchCategory(category string, ruleSet []rules.Rule, content, filePath string, b Boosts, keywords []string) []model.Finding {
	if content == "" {
		return nil
	}
	claimed := make(map[int]struct{})
	var out []model.Finding

	for _, rule := range ruleSet {
		re := rule.Regexp()
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(content, -1) {
			line := 1 + strings.Count(content[:loc[0]], "\n")
			if _, taken := claimed[line]; taken {
				continue
			}
			claimed[line] = struct{}{}

			code := strings.TrimSpace(content[loc[0]:loc[1]])
			out = append(out, model.Finding{
				ID:                findingID(filePath, category, rule.ID, line),
				VulnerabilityType: category,
				Subtype:           rule.ID,
				Severity:          severityFor(rule),
				Confidence:        boostConfidence(rule.Confidence, code, b, keywords),
				Line:              line,
				Code:              code,
				File:              filePath,
				Description:       rule.Description,
				CWE:               rule.CWE,
			})
		}
	}
	return out
}

// severityFor applies the default arm for pattern types loaded without an
// authored severity, e.g. from an external rule pack.
func severityFor(rule rules.Rule) model.Severity {
	if model.ValidSeverity(rule.Severity) {
		return rule.Severity
	}
	return model.SeverityMedium
}

// boostConfidence raises the base confidence when the matched text carries a
// user-input marker or a category keyword, capped at 1.0.
func boostConfidence(base float64, code string, b Boosts, keywords []string) float64 {
	conf := base
	if containsAny(code, userInputMarkers) {
		conf += b.UserInput
	}
	if containsAnyFold(code, keywords) {
		conf += b.Keyword
	}
	if conf > 1.0 {
		conf = 1.0
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func containsAnyFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func findingID(filePath, category, subtype string, line int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", filePath, category, subtype, line)))
	return "f-" + hex.EncodeToString(sum[:6])
}

// countOccurrences tallies how often each idiom appears in content, dropping
// idioms that never appear.
func countOccurrences(content string, idioms []string) []model.SafePractice {
	var out []model.SafePractice
	for _, idiom := range idioms {
		if n := strings.Count(content, idiom); n > 0 {
			out = append(out, model.SafePractice{Practice: idiom, Count: n})
		}
	}
	return out
}
