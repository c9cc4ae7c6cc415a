package rules

import "vigil/internal/model"

// xssCategory is the cross-site-scripting signature table.
func xssCategory() Category {
	return Category{
		Name: CategoryXSS,
		Rules: []Rule{
			{
				ID:          "direct_output",
				Pattern:     `(?:echo|print)\s+\$_(?:GET|POST|REQUEST|COOKIE|SERVER)\[[^\]]*\]`,
				Severity:    model.SeverityHigh,
				Confidence:  0.85,
				Description: "Request superglobal echoed without output escaping",
				CWE:         "CWE-79",
				References:  []string{"https://owasp.org/www-community/attacks/xss/"},
			},
			{
				ID:          "unescaped_template",
				Pattern:     `<\?=\s*\$_(?:GET|POST|REQUEST|COOKIE)\b`,
				Severity:    model.SeverityHigh,
				Confidence:  0.85,
				Description: "Short echo tag emitting a request superglobal",
				CWE:         "CWE-79",
			},
			{
				ID:          "printf_output",
				Pattern:     `\bv?printf\s*\([^)]*\$_(?:GET|POST|REQUEST|COOKIE)\b`,
				Severity:    model.SeverityHigh,
				Confidence:  0.7,
				Description: "printf-family output of a request superglobal",
				CWE:         "CWE-79",
			},
			{
				ID:          "attribute_injection",
				Pattern:     `(?i)(?:href|src|value|action|style)\s*=\s*["']\s*(?:<\?(?:php\s+echo|=)\s*)?\$_(?:GET|POST|REQUEST)\b`,
				Severity:    model.SeverityHigh,
				Confidence:  0.75,
				Description: "Request data placed inside an HTML attribute value",
				CWE:         "CWE-79",
			},
			{
				ID:          "event_handler",
				Pattern:     `(?i)\bon(?:click|load|error|mouseover|focus|blur|change|submit)\s*=\s*["'][^"']*\$`,
				Severity:    model.SeverityHigh,
				Confidence:  0.75,
				Description: "Variable interpolated into an inline event handler",
				CWE:         "CWE-79",
			},
			{
				ID:          "dom_xss",
				Pattern:     `(?:innerHTML|outerHTML|document\.write(?:ln)?)\s*[(=][^;]*(?:location\.|document\.URL|window\.name|\$_GET)`,
				Severity:    model.SeverityHigh,
				Confidence:  0.7,
				Description: "DOM sink fed from a client-controlled source",
				CWE:         "CWE-79",
			},
			{
				ID:          "concat_output",
				Pattern:     `(?:echo|print)\s+["'][^"']*["']\s*\.\s*\$_(?:GET|POST|REQUEST|COOKIE)\b`,
				Severity:    model.SeverityHigh,
				Confidence:  0.8,
				Description: "Markup string concatenated with a request superglobal before output",
				CWE:         "CWE-79",
			},
		},
	}
}
