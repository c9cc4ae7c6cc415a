package model

import "time"

// Severity is the qualitative impact ranking of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityRank maps a severity to a sortable weight. Unknown severities rank
// below low so malformed input never outranks an authored rule.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ValidSeverity reports whether s is one of the four authored severity levels.
func ValidSeverity(s Severity) bool {
	return SeverityRank(s) > 0
}

// Finding is one detected potential vulnerability instance. Values are copied
// from the matched rule at match time; a Finding never holds a live reference
// into the pattern registry.
type Finding struct {
	ID                string   `json:"id"`
	VulnerabilityType string   `json:"vulnerability_type"`
	Subtype           string   `json:"subtype"`
	Severity          Severity `json:"severity"`
	Confidence        float64  `json:"confidence"`
	Line              int      `json:"line"`
	Code              string   `json:"code"`
	File              string   `json:"file"`
	Description       string   `json:"description"`
	Recommendation    string   `json:"recommendation"`
	CWE               string   `json:"cwe,omitempty"`

	Suppressed        bool   `json:"suppressed,omitempty"`
	SuppressionReason string `json:"suppression_reason,omitempty"`
	SuppressionSource string `json:"suppression_source,omitempty"`
}

// FileError records a recoverable per-file failure. One bad file never aborts
// the rest of the scan.
type FileError struct {
	File    string `json:"file"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// SafePractice is a positive signal: a known-good idiom observed in a file.
type SafePractice struct {
	Practice string `json:"practice"`
	Count    int    `json:"count"`
}

// Suggestion is a secure-code rewrite produced by heuristic pattern
// substitution. It is never a verified transform. Advisory marks suggestions
// whose Suggested text is guidance for a human rather than a drop-in
// replacement; the fix engine refuses to apply those.
type Suggestion struct {
	Original  string `json:"original"`
	Suggested string `json:"suggested"`
	Note      string `json:"note,omitempty"`
	Advisory  bool   `json:"advisory,omitempty"`
}

// Analysis is the structured deep-dive a detector produces for one snippet.
type Analysis struct {
	RiskLevel       Severity     `json:"risk_level"`
	Impact          []string     `json:"impact"`
	AttackVectors   []string     `json:"attack_vectors,omitempty"`
	MitigationSteps []string     `json:"mitigation_steps"`
	Suggestions     []Suggestion `json:"suggestions,omitempty"`
}

// ScanReport is the session summary handed to reporting consumers.
type ScanReport struct {
	SessionID        string         `json:"session_id"`
	Status           string         `json:"status"`
	Error            string         `json:"error,omitempty"`
	TargetType       string         `json:"target_type,omitempty"`
	TargetLabel      string         `json:"target_label,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      time.Time      `json:"completed_at"`
	DurationMS       int64          `json:"duration_ms"`
	FilesScanned     int            `json:"files_scanned"`
	FilesTotal       int            `json:"files_total"`
	Findings         []Finding      `json:"findings"`
	Suppressed       []Finding      `json:"suppressed_findings,omitempty"`
	SuppressedCount  int            `json:"suppressed_count,omitempty"`
	Errors           []FileError    `json:"errors,omitempty"`
	CountsBySeverity map[string]int `json:"counts_by_severity"`
	CountsByType     map[string]int `json:"counts_by_type"`
	SafePractices    []SafePractice `json:"safe_practices,omitempty"`
}

// FixChange describes one change the fix pipeline would apply. The actual
// patching is performed by an external collaborator.
type FixChange struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Original  string `json:"original"`
	Suggested string `json:"suggested"`
}

// FixResult is the record returned to the fix-engine collaborator.
type FixResult struct {
	Success      bool        `json:"success"`
	FindingID    string      `json:"finding_id,omitempty"`
	BackupID     string      `json:"backup_id,omitempty"`
	ActionsTaken []string    `json:"actions_taken,omitempty"`
	ChangesMade  []FixChange `json:"changes_made,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}
