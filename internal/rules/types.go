package rules

import (
	"regexp"

	"vigil/internal/model"
)

// Rule is one named detection signature. Severity and confidence are set at
// authoring time and never mutated; a Rule is immutable once loaded.
type Rule struct {
	ID          string         `yaml:"id" json:"id"`
	Pattern     string         `yaml:"pattern" json:"pattern"`
	Severity    model.Severity `yaml:"severity" json:"severity"`
	Confidence  float64        `yaml:"confidence" json:"confidence"`
	Description string         `yaml:"description" json:"description"`
	CWE         string         `yaml:"cwe,omitempty" json:"cwe,omitempty"`
	References  []string       `yaml:"references,omitempty" json:"references,omitempty"`

	re *regexp.Regexp
}

// Regexp returns the compiled pattern. It is nil only before the registry has
// loaded the rule; loaded rules always carry a valid regexp.
func (r Rule) Regexp() *regexp.Regexp {
	return r.re
}

// Category groups rules sharing a vulnerability theme, in declaration order.
type Category struct {
	Name  string `yaml:"category" json:"category"`
	Rules []Rule `yaml:"rules" json:"rules"`
}
