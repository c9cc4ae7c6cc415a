package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"vigil/internal/model"
)

// Registry holds the full compiled rule taxonomy, keyed category → rule.
// It is read-only after Load and safe for concurrent use without locking.
type Registry struct {
	order []string
	cats  map[string][]Rule
}

// Load compiles the built-in tables into a registry. A rule whose regex fails
// to compile is logged and excluded; a malformed signature must not disable
// the whole scanner.
func Load(log *zap.SugaredLogger) *Registry {
	reg := &Registry{cats: make(map[string][]Rule)}
	for _, cat := range builtinCategories() {
		reg.addCategory(cat, log)
	}
	return reg
}

// LoadDir merges external rule packs (*.yaml files under dir) into the
// registry before it is handed to detectors. Missing severities default to
// medium, the same default arm the detectors use for unknown subtypes.
func (r *Registry) LoadDir(dir string, log *zap.SugaredLogger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read rules dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read rule pack %s: %w", path, err)
		}
		var pack rulePack
		if err := yaml.Unmarshal(data, &pack); err != nil {
			return fmt.Errorf("parse rule pack %s: %w", path, err)
		}
		for _, cat := range pack.Categories {
			cat.Name = strings.ToLower(strings.TrimSpace(cat.Name))
			if cat.Name == "" {
				continue
			}
			for i := range cat.Rules {
				if !model.ValidSeverity(cat.Rules[i].Severity) {
					cat.Rules[i].Severity = model.SeverityMedium
				}
				if cat.Rules[i].Confidence <= 0 {
					cat.Rules[i].Confidence = 0.5
				}
			}
			r.addCategory(cat, log)
		}
	}
	return nil
}

type rulePack struct {
	Categories []Category `yaml:"categories"`
}

func (r *Registry) addCategory(cat Category, log *zap.SugaredLogger) {
	kept := make([]Rule, 0, len(cat.Rules))
	for _, rule := range cat.Rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			if log != nil {
				log.Warnw("excluding rule with invalid pattern",
					"category", cat.Name, "rule", rule.ID, "error", err)
			}
			continue
		}
		if rule.Confidence < 0 {
			rule.Confidence = 0
		}
		if rule.Confidence > 1 {
			rule.Confidence = 1
		}
		rule.re = re
		kept = append(kept, rule)
	}
	if len(kept) == 0 {
		return
	}
	if _, exists := r.cats[cat.Name]; !exists {
		r.order = append(r.order, cat.Name)
	}
	r.cats[cat.Name] = append(r.cats[cat.Name], kept...)
}

// Categories returns all category names in declaration order.
func (r *Registry) Categories() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// RulesForCategory returns the rules of one category in declaration order.
// This order is load-bearing: it decides which finding is reported when
// multiple patterns match overlapping text.
func (r *Registry) RulesForCategory(name string) []Rule {
	rules := r.cats[strings.ToLower(strings.TrimSpace(name))]
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Rule looks up a single rule by category and id.
func (r *Registry) Rule(category, id string) (Rule, bool) {
	for _, rule := range r.cats[category] {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

// Len returns the total number of loaded rules.
func (r *Registry) Len() int {
	n := 0
	for _, rules := range r.cats {
		n += len(rules)
	}
	return n
}
