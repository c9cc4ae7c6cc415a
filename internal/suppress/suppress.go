// Package suppress filters accepted findings out of reports. Two sources
// feed it: a reviewed .vigil/suppressions.yaml at the scan root, and inline
// vigil:ignore annotations next to the flagged code. Suppressed findings are
// kept, flagged, and reported separately, never silently dropped.
package suppress

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vigil/internal/model"
)

// DefaultPath returns the conventional suppressions file location under a
// scan root.
func DefaultPath(root string) string {
	return filepath.Join(root, ".vigil", "suppressions.yaml")
}

// Load reads suppression rules from a YAML file. A missing file is not an
// error; it simply means no rules.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var sf suppressionsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, rule := range sf.Suppressions {
		if strings.TrimSpace(rule.Reason) == "" {
			return nil, fmt.Errorf("suppression rule %d: reason is required", i+1)
		}
	}
	return EnsureRuleIDs(sf.Suppressions), nil
}

// Save writes suppression rules to disk in the canonical YAML structure.
func Save(path string, rules []Rule) error {
	sf := suppressionsFile{Suppressions: EnsureRuleIDs(rules)}
	data, err := yaml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("marshal suppressions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create suppressions dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write suppressions: %w", err)
	}
	return nil
}

// EnsureRuleIDs fills missing rule IDs and guarantees uniqueness.
func EnsureRuleIDs(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)

	used := make(map[string]struct{}, len(out))
	for i := range out {
		out[i].ID = strings.ToLower(strings.TrimSpace(out[i].ID))
		if out[i].ID == "" {
			out[i].ID = generateRuleID(out[i])
		}
		base := out[i].ID
		for n := 2; ; n++ {
			if _, exists := used[out[i].ID]; !exists {
				used[out[i].ID] = struct{}{}
				break
			}
			out[i].ID = fmt.Sprintf("%s-%d", base, n)
		}
	}
	return out
}

func generateRuleID(r Rule) string {
	sum := sha256.Sum256([]byte(r.Category + "|" + r.Subtype + "|" + r.Files + "|" + r.Severity))
	return "sup-" + hex.EncodeToString(sum[:])[:8]
}

// Apply partitions findings into active and suppressed. File rules take
// precedence over inline annotations; expired rules are skipped.
func Apply(findings []model.Finding, rules []Rule, annotations map[string][]Annotation) (active, suppressed []model.Finding) {
	now := time.Now().UTC()
	active = make([]model.Finding, 0, len(findings))
	suppressed = make([]model.Finding, 0)

	for _, f := range findings {
		if reason := matchRules(f, rules, now); reason != "" {
			f.Suppressed = true
			f.SuppressionReason = reason
			f.SuppressionSource = "file"
			suppressed = append(suppressed, f)
			continue
		}
		if reason := matchAnnotations(f, annotations); reason != "" {
			f.Suppressed = true
			f.SuppressionReason = reason
			f.SuppressionSource = "inline"
			suppressed = append(suppressed, f)
			continue
		}
		active = append(active, f)
	}
	return
}

func matchRules(f model.Finding, rules []Rule, now time.Time) string {
	for _, r := range rules {
		if r.IsExpired(now) {
			continue
		}
		if ruleMatches(f, r) {
			return r.Reason
		}
	}
	return ""
}

// ruleMatches requires every populated rule field to match. A rule with no
// matching fields at all, or a bare wildcard subtype, matches nothing.
func ruleMatches(f model.Finding, r Rule) bool {
	if r.Subtype == "*" {
		return false
	}
	if r.Category == "" && r.Subtype == "" && r.Files == "" && r.Severity == "" {
		return false
	}
	if r.Category != "" && !strings.EqualFold(r.Category, f.VulnerabilityType) {
		return false
	}
	if r.Subtype != "" && !matchGlob(r.Subtype, f.Subtype) {
		return false
	}
	if r.Severity != "" && !strings.EqualFold(r.Severity, string(f.Severity)) {
		return false
	}
	if r.Files != "" && !matchGlob(r.Files, filepath.ToSlash(f.File)) {
		return false
	}
	return true
}

// matchAnnotations applies vigil:ignore markers: an annotation covers its
// own line and the line directly below, for its named category or "all".
func matchAnnotations(f model.Finding, annotations map[string][]Annotation) string {
	for _, a := range annotations[f.File] {
		if a.Line != f.Line && a.Line+1 != f.Line {
			continue
		}
		if a.Category != "all" && !strings.EqualFold(a.Category, f.VulnerabilityType) {
			continue
		}
		if a.Reason != "" {
			return a.Reason
		}
		return "inline suppression"
	}
	return ""
}

// matchGlob performs case-insensitive matching with filepath.Match
// semantics, falling back to a substring test when the pattern has a glob
// character but does not match the full value.
func matchGlob(pattern, value string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	value = strings.ToLower(strings.TrimSpace(value))
	if pattern == "" {
		return false
	}
	if ok, err := filepath.Match(pattern, value); err == nil && ok {
		return true
	}
	// "**/" style prefixes are common in hand-written file globs; accept a
	// suffix match on the non-glob tail.
	if idx := strings.LastIndexAny(pattern, "*?["); idx >= 0 {
		tail := pattern[idx+1:]
		return tail != "" && strings.HasSuffix(value, tail)
	}
	return pattern == value
}
