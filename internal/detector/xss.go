package detector

import (
	"regexp"
	"strings"

	"vigil/internal/model"
	"vigil/internal/rules"
)

// xssSanitizationWindow is the ±line radius searched for escaping calls.
const xssSanitizationWindow = 2

var xssKeywords = []string{"script", "onclick", "onerror", "onload", "javascript:", "<img", "alert("}

var xssSanitizers = []string{
	"esc_html(", "esc_attr(", "esc_url(", "esc_js(", "esc_textarea(",
	"wp_kses", "htmlspecialchars(", "htmlentities(", "sanitize_text_field(",
}

// XSS is the specialized cross-site-scripting detector.
type XSS struct {
	rules  []rules.Rule
	boosts Boosts
}

// NewXSS builds the detector from the registry's XSS table.
func NewXSS(reg *rules.Registry, boosts Boosts) *XSS {
	return &XSS{
		rules:  reg.RulesForCategory(rules.CategoryXSS),
		boosts: boosts,
	}
}

func (d *XSS) Name() string { return rules.CategoryXSS }

func (d *XSS) Detect(content, filePath string) []model.Finding {
	findings := matchCategory(rules.CategoryXSS, d.rules, content, filePath, d.boosts, xssKeywords)
	for i := range findings {
		findings[i].Recommendation = xssRecommendation(findings[i].Subtype)
	}
	return findings
}

func (d *XSS) IsFalsePositive(f model.Finding, content string) bool {
	return isFalsePositive(content, f.Line, f.Code, xssSanitizationWindow, xssSanitizers)
}

func (d *XSS) CheckSafePractices(content string) []model.SafePractice {
	return countOccurrences(content, []string{
		"esc_html(", "esc_attr(", "esc_url(", "wp_kses",
	})
}

var (
	xssSuperglobal  = regexp.MustCompile(`\$_(?:GET|POST|REQUEST|COOKIE|SERVER)\[[^\]]*\]`)
	eventHandlerSet = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	urlAttrSet      = regexp.MustCompile(`(?i)(?:href|src|action)\s*=`)
)

// Analyze produces the deep-dive for one snippet; the rewrite suggestion
// wraps the unsafe source in a context-appropriate escaping call.
func (d *XSS) Analyze(snippet, filePath string) model.Analysis {
	lower := strings.ToLower(snippet)

	risk := model.SeverityMedium
	if xssSuperglobal.MatchString(snippet) {
		risk = model.SeverityHigh
	}
	if strings.Contains(lower, "<script") || strings.Contains(lower, "innerhtml") {
		risk = model.SeverityCritical
	}

	var vectors []string
	if strings.Contains(lower, "<script") {
		vectors = append(vectors, "direct script tag injection possible")
	}
	if eventHandlerSet.MatchString(snippet) {
		vectors = append(vectors, "event handler attribute injection possible")
	}
	if strings.Contains(lower, "javascript:") {
		vectors = append(vectors, "javascript: URI injection possible")
	}
	if strings.Contains(lower, "document.cookie") {
		vectors = append(vectors, "session cookie exfiltration marker present")
	}
	if strings.Contains(lower, "innerhtml") || strings.Contains(lower, "document.write") {
		vectors = append(vectors, "DOM-based injection through a raw HTML sink")
	}

	var suggestions []model.Suggestion
	if m := xssSuperglobal.FindString(snippet); m != "" {
		escape := "esc_html"
		if urlAttrSet.MatchString(snippet) {
			escape = "esc_url"
		} else if strings.Contains(snippet, `="`+m) || strings.Contains(snippet, `='`+m) {
			escape = "esc_attr"
		}
		suggestions = append(suggestions, model.Suggestion{
			Original:  m,
			Suggested: escape + "(" + m + ")",
			Note:      "escape at output time with the context-appropriate esc_* helper",
		})
	}

	return model.Analysis{
		RiskLevel: risk,
		Impact: []string{
			"session hijacking",
			"credential theft via injected forms",
			"site defacement",
			"malware distribution to visitors",
		},
		AttackVectors: vectors,
		MitigationSteps: []string{
			"escape all output with esc_html, esc_attr, or esc_url by context",
			"sanitize input with sanitize_text_field at intake",
			"allow rich markup only through wp_kses with an explicit whitelist",
			"set a restrictive Content-Security-Policy header",
		},
		Suggestions: suggestions,
	}
}

func xssRecommendation(subtype string) string {
	switch subtype {
	case "direct_output", "concat_output", "printf_output":
		return "Escape the value with esc_html() before echoing it."
	case "unescaped_template":
		return "Replace <?= $_... ?> with <?= esc_html($_...) ?>."
	case "attribute_injection":
		return "Escape attribute values with esc_attr(), and URLs with esc_url()."
	case "event_handler":
		return "Never build event handlers from variables; move logic into enqueued scripts."
	case "dom_xss":
		return "Assign via textContent or sanitize before writing to innerHTML."
	default:
		return "Escape all dynamic output with the context-appropriate esc_* helper."
	}
}
