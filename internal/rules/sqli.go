package rules

import "vigil/internal/model"

// sqlInjectionCategory is the SQL-injection signature table. Declaration
// order matters: the broad basic_injection shape comes first so it wins over
// the narrower patterns when several match the same line.
func sqlInjectionCategory() Category {
	return Category{
		Name: CategorySQLInjection,
		Rules: []Rule{
			{
				ID:          "basic_injection",
				Pattern:     `\$wpdb->(?:query|get_results|get_row|get_var|get_col)\s*\(\s*["'][^"']*["']\s*\.\s*\$\w+(?:\[[^\]]*\])?`,
				Severity:    model.SeverityCritical,
				Confidence:  0.9,
				Description: "SQL query built by concatenating a variable into a quoted string passed to $wpdb",
				CWE:         "CWE-89",
				References:  []string{"https://owasp.org/www-community/attacks/SQL_Injection"},
			},
			{
				ID:          "direct_input",
				Pattern:     `\$wpdb->(?:query|get_results|get_row|get_var|get_col)\s*\([^)]*\$_(?:GET|POST|REQUEST|COOKIE)\b`,
				Severity:    model.SeverityCritical,
				Confidence:  0.9,
				Description: "Request superglobal flows directly into a $wpdb query call",
				CWE:         "CWE-89",
				References:  []string{"https://owasp.org/www-community/attacks/SQL_Injection"},
			},
			{
				ID:          "numeric_injection",
				Pattern:     `(?i)\b(?:WHERE|AND|OR)\s+\w+\s*=\s*["']\s*\.\s*\$\w+(?:\[[^\]]*\])?`,
				Severity:    model.SeverityHigh,
				Confidence:  0.75,
				Description: "Numeric comparison built by string concatenation instead of a prepared placeholder",
				CWE:         "CWE-89",
			},
			{
				ID:          "union_injection",
				Pattern:     `(?i)\bUNION\s+(?:ALL\s+)?SELECT\b[^;]*\$\w+`,
				Severity:    model.SeverityHigh,
				Confidence:  0.8,
				Description: "UNION SELECT clause containing an interpolated variable",
				CWE:         "CWE-89",
			},
			{
				ID:          "like_injection",
				Pattern:     `(?i)\bLIKE\s*["']%?["']?\s*\.\s*\$\w+`,
				Severity:    model.SeverityMedium,
				Confidence:  0.7,
				Description: "LIKE clause concatenated with a variable; wildcards are not escaped",
				CWE:         "CWE-89",
			},
			{
				ID:          "order_by_injection",
				Pattern:     `(?i)\bORDER\s+BY\s*["']?\s*\.?\s*\$\w+`,
				Severity:    model.SeverityHigh,
				Confidence:  0.7,
				Description: "ORDER BY column taken from a variable; placeholders cannot parameterize identifiers",
				CWE:         "CWE-89",
			},
			{
				ID:          "prepare_misuse",
				Pattern:     `\$wpdb->prepare\s*\(\s*["'][^"']*\{?\$\w+`,
				Severity:    model.SeverityHigh,
				Confidence:  0.8,
				Description: "Variable interpolated inside the prepare() format string, bypassing placeholders",
				CWE:         "CWE-89",
			},
			{
				ID:          "dynamic_table",
				Pattern:     `(?i)\b(?:FROM|INTO|UPDATE)\s+["']?\s*\.\s*\$\w+`,
				Severity:    model.SeverityMedium,
				Confidence:  0.65,
				Description: "Table name assembled from a variable",
				CWE:         "CWE-89",
			},
		},
	}
}
