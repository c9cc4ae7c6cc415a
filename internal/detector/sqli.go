package detector

import (
	"regexp"
	"strings"

	"vigil/internal/model"
	"vigil/internal/rules"
)

// sqliSanitizationWindow is the ±line radius searched for sanitization calls.
const sqliSanitizationWindow = 3

var sqliKeywords = []string{"WHERE", "SELECT", "INSERT", "UPDATE", "DELETE", "UNION", "FROM"}

var sqliSanitizers = []string{
	"$wpdb->prepare", "absint(", "intval(", "(int)",
	"esc_sql(", "sanitize_text_field(", "sanitize_key(",
}

// prepare_misuse flags interpolation inside a prepare call, so the call
// itself cannot count as the nearby sanitizer for that subtype.
var sqliPrepareMisuseSanitizers = []string{
	"absint(", "intval(", "(int)",
	"esc_sql(", "sanitize_text_field(", "sanitize_key(",
}

// SQLInjection is the specialized SQL-injection detector.
type SQLInjection struct {
	rules  []rules.Rule
	boosts Boosts
}

// NewSQLInjection builds the detector from the registry's SQLi table.
func NewSQLInjection(reg *rules.Registry, boosts Boosts) *SQLInjection {
	return &SQLInjection{
		rules:  reg.RulesForCategory(rules.CategorySQLInjection),
		boosts: boosts,
	}
}

func (d *SQLInjection) Name() string { return rules.CategorySQLInjection }

// Detect returns the raw findings before false-positive filtering.
func (d *SQLInjection) Detect(content, filePath string) []model.Finding {
	findings := matchCategory(rules.CategorySQLInjection, d.rules, content, filePath, d.boosts, sqliKeywords)
	for i := range findings {
		findings[i].Recommendation = sqliRecommendation(findings[i].Subtype)
	}
	return findings
}

func (d *SQLInjection) IsFalsePositive(f model.Finding, content string) bool {
	sanitizers := sqliSanitizers
	if f.Subtype == "prepare_misuse" {
		sanitizers = sqliPrepareMisuseSanitizers
	}
	return isFalsePositive(content, f.Line, f.Code, sqliSanitizationWindow, sanitizers)
}

func (d *SQLInjection) CheckSafePractices(content string) []model.SafePractice {
	return countOccurrences(content, []string{
		"$wpdb->prepare", "absint(", "intval(", "esc_sql(",
	})
}

var (
	sqliSuperglobalConcat = regexp.MustCompile(`["']\s*\.\s*(\$_(?:GET|POST|REQUEST|COOKIE)\[[^\]]*\])`)
	sqliVariableConcat    = regexp.MustCompile(`["']\s*\.\s*(\$\w+)`)
)

// Analyze produces the structured deep-dive for one snippet. Suggestions are
// heuristic pattern substitutions and advisory only.
func (d *SQLInjection) Analyze(snippet, filePath string) model.Analysis {
	upper := strings.ToUpper(snippet)

	risk := model.SeverityMedium
	switch {
	case containsAny(snippet, userInputMarkers):
		risk = model.SeverityCritical
	case sqliVariableConcat.MatchString(snippet):
		risk = model.SeverityHigh
	}

	var vectors []string
	if strings.Contains(upper, "UNION") {
		vectors = append(vectors, "UNION-based injection possible")
	}
	if strings.Contains(upper, "OR 1=1") || strings.Contains(upper, "OR '1'='1'") {
		vectors = append(vectors, "boolean-based injection marker present")
	}
	if strings.Contains(upper, "SLEEP(") || strings.Contains(upper, "BENCHMARK(") {
		vectors = append(vectors, "time-based blind injection possible")
	}
	if strings.Contains(upper, "EXTRACTVALUE(") || strings.Contains(upper, "UPDATEXML(") {
		vectors = append(vectors, "error-based extraction possible")
	}
	if strings.Contains(snippet, ";") && strings.Contains(upper, "SELECT") {
		vectors = append(vectors, "stacked queries possible if the driver allows multi-statements")
	}
	if strings.Contains(snippet, "--") || strings.Contains(snippet, "/*") {
		vectors = append(vectors, "comment sequences can truncate the intended query")
	}

	// Advisory: rewriting a concatenated query needs the whole call wrapped
	// in $wpdb->prepare, which a substring substitution cannot do. Splicing
	// the fragment in place would leave a literal %s inside the SQL.
	var suggestions []model.Suggestion
	if m := sqliSuperglobalConcat.FindStringSubmatch(snippet); m != nil {
		suggestions = append(suggestions, model.Suggestion{
			Original:  m[0],
			Suggested: `%s", ` + m[1],
			Note:      "move the value out of the SQL string and into a $wpdb->prepare placeholder",
			Advisory:  true,
		})
	} else if m := sqliVariableConcat.FindStringSubmatch(snippet); m != nil {
		suggestions = append(suggestions, model.Suggestion{
			Original:  m[0],
			Suggested: `%s", ` + m[1],
			Note:      "pass the variable as a prepare() argument instead of concatenating it",
			Advisory:  true,
		})
	}

	return model.Analysis{
		RiskLevel: risk,
		Impact: []string{
			"database data theft",
			"authentication bypass",
			"data manipulation or destruction",
			"potential remote code execution via stacked queries",
		},
		AttackVectors: vectors,
		MitigationSteps: []string{
			"use $wpdb->prepare with %s/%d placeholders for every value",
			"cast numeric input with absint() or intval() before use",
			"never interpolate identifiers; whitelist table and column names",
			"grant the database user the minimum required privileges",
		},
		Suggestions: suggestions,
	}
}

func sqliRecommendation(subtype string) string {
	switch subtype {
	case "basic_injection", "direct_input":
		return "Rewrite the query with $wpdb->prepare and bind every value through a placeholder."
	case "numeric_injection":
		return "Cast the value with absint() or intval(), or bind it with a %d placeholder."
	case "union_injection":
		return "Parameterize the query; UNION clauses must never contain request data."
	case "like_injection":
		return "Escape wildcard characters with $wpdb->esc_like before binding the value."
	case "order_by_injection":
		return "Whitelist sortable column names; placeholders cannot protect identifiers."
	case "prepare_misuse":
		return "Keep the prepare() format string free of variables; pass values as arguments."
	case "dynamic_table":
		return "Resolve table names from a fixed map, never from user-reachable variables."
	default:
		return "Use parameterized queries via $wpdb->prepare for all dynamic SQL."
	}
}
