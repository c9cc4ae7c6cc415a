package suppress

import "time"

// Rule is one centralized suppression entry from .vigil/suppressions.yaml.
// All populated fields must match a finding for the rule to apply.
type Rule struct {
	ID       string `yaml:"id,omitempty" json:"id,omitempty"`
	Category string `yaml:"category,omitempty"`
	Subtype  string `yaml:"subtype,omitempty"`
	Files    string `yaml:"files,omitempty"`
	Severity string `yaml:"severity,omitempty"`

	Reason  string `yaml:"reason"`
	Author  string `yaml:"author,omitempty"`
	Expires string `yaml:"expires,omitempty"`
}

// IsExpired reports whether the rule's expiration date has passed. An
// expired rule is skipped so the finding surfaces again.
func (r Rule) IsExpired(now time.Time) bool {
	if r.Expires == "" {
		return false
	}
	t, err := time.Parse("2006-01-02", r.Expires)
	if err != nil {
		return false
	}
	return now.After(t)
}

// HasInvalidExpiry reports whether the expires field is set but unparseable.
func (r Rule) HasInvalidExpiry() bool {
	if r.Expires == "" {
		return false
	}
	_, err := time.Parse("2006-01-02", r.Expires)
	return err != nil
}

// Annotation is one vigil:ignore marker found in a scanned source file. It
// suppresses matching findings on its own line and the line directly below.
type Annotation struct {
	Category string
	Reason   string
	File     string
	Line     int
}

// suppressionsFile is the top-level YAML structure of suppressions.yaml.
type suppressionsFile struct {
	Suppressions []Rule `yaml:"suppressions"`
}
