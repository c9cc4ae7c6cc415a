package detector

import (
	"strings"

	"vigil/internal/model"
	"vigil/internal/rules"
)

// generalSanitizationWindow matches the SQLi radius; the general catalogue
// has no tighter calibration of its own.
const generalSanitizationWindow = 3

// generalKeywords are obfuscation markers that raise confidence for the
// catalogue categories.
var generalKeywords = []string{"base64_decode", "gzinflate", "str_rot13", "chr("}

// generalSanitizers suppress findings when seen near a match. current_user_can
// is deliberately absent: the auth_bypass rules match capability checks
// themselves, so treating the call as a sanitizer would suppress every one of
// their findings. It is counted in CheckSafePractices instead.
var generalSanitizers = []string{
	"escapeshellarg(", "escapeshellcmd(", "sanitize_file_name(",
	"wp_verify_nonce(", "check_admin_referer(",
	"sanitize_text_field(", "absint(", "esc_url_raw(", "wp_safe_redirect(",
}

// General runs every category of the general catalogue by default, or an
// explicit subset when active categories are configured.
type General struct {
	categories []string
	rules      map[string][]rules.Rule
	boosts     Boosts
}

// NewGeneral builds the multi-category detector. An empty categories slice
// selects the whole catalogue.
func NewGeneral(reg *rules.Registry, categories []string, boosts Boosts) *General {
	if len(categories) == 0 {
		categories = rules.GeneralCategoryNames()
	}
	byCat := make(map[string][]rules.Rule, len(categories))
	kept := categories[:0:0]
	for _, cat := range categories {
		rs := reg.RulesForCategory(cat)
		if len(rs) == 0 {
			continue
		}
		byCat[cat] = rs
		kept = append(kept, cat)
	}
	return &General{categories: kept, rules: byCat, boosts: boosts}
}

func (d *General) Name() string { return "general" }

// Categories returns the active category names in declaration order.
func (d *General) Categories() []string {
	out := make([]string, len(d.categories))
	copy(out, d.categories)
	return out
}

func (d *General) Detect(content, filePath string) []model.Finding {
	var out []model.Finding
	for _, cat := range d.categories {
		findings := matchCategory(cat, d.rules[cat], content, filePath, d.boosts, generalKeywords)
		for i := range findings {
			findings[i].Recommendation = generalRecommendation(cat)
		}
		out = append(out, findings...)
	}
	return out
}

func (d *General) IsFalsePositive(f model.Finding, content string) bool {
	return isFalsePositive(content, f.Line, f.Code, generalSanitizationWindow, generalSanitizers)
}

func (d *General) CheckSafePractices(content string) []model.SafePractice {
	return countOccurrences(content, []string{
		"wp_verify_nonce(", "current_user_can(", "escapeshellarg(", "sanitize_text_field(",
	})
}

// Analyze classifies the snippet against every active category and reports
// the impact checklist of the highest-risk category that matches.
func (d *General) Analyze(snippet, filePath string) model.Analysis {
	best := ""
	bestRank := 0
	for _, cat := range d.categories {
		for _, rule := range d.rules[cat] {
			re := rule.Regexp()
			if re == nil || !re.MatchString(snippet) {
				continue
			}
			if rank := model.SeverityRank(rule.Severity); rank > bestRank {
				best, bestRank = cat, rank
			}
		}
	}
	if best == "" {
		return model.Analysis{
			RiskLevel:       model.SeverityLow,
			Impact:          []string{"no catalogue pattern matched this snippet"},
			MitigationSteps: []string{"review the snippet manually if it handles untrusted input"},
		}
	}

	risk := model.SeverityMedium
	if containsAny(snippet, userInputMarkers) {
		risk = model.SeverityCritical
	} else if bestRank >= model.SeverityRank(model.SeverityHigh) {
		risk = model.SeverityHigh
	}

	var vectors []string
	if containsAny(snippet, userInputMarkers) {
		vectors = append(vectors, "request-controlled input reaches the sink directly")
	}
	if containsAnyFold(snippet, generalKeywords) {
		vectors = append(vectors, "obfuscation helper present near the sink")
	}
	if strings.Contains(snippet, "$$") {
		vectors = append(vectors, "variable variables obscure the data flow")
	}

	return model.Analysis{
		RiskLevel:       risk,
		Impact:          generalImpact(best),
		AttackVectors:   vectors,
		MitigationSteps: generalMitigations(best),
	}
}

func generalImpact(category string) []string {
	switch category {
	case "code_injection":
		return []string{"remote code execution", "full site takeover", "persistent backdoor installation"}
	case "command_injection":
		return []string{"arbitrary command execution on the host", "lateral movement", "data exfiltration"}
	case "file_inclusion":
		return []string{"remote code execution via included files", "disclosure of server-side source"}
	case "path_traversal":
		return []string{"arbitrary file read", "configuration and credential disclosure", "arbitrary file deletion"}
	case "deserialization":
		return []string{"object injection leading to code execution", "application state corruption"}
	case "ssrf":
		return []string{"internal network probing", "cloud metadata credential theft"}
	case "open_redirect":
		return []string{"phishing via trusted-domain redirects", "OAuth token leakage"}
	case "xxe":
		return []string{"local file disclosure", "server-side request forgery via entities"}
	case "auth_bypass":
		return []string{"unauthorized access to privileged operations"}
	case "file_upload":
		return []string{"web shell upload", "stored malware distribution"}
	case "weak_crypto":
		return []string{"credential cracking", "token prediction and session forgery"}
	default:
		return []string{"security impact depends on the surrounding context"}
	}
}

func generalMitigations(category string) []string {
	switch category {
	case "code_injection":
		return []string{"remove eval/assert on dynamic data", "map user choices to a fixed dispatch table"}
	case "command_injection":
		return []string{"avoid shelling out; use native APIs", "escape unavoidable arguments with escapeshellarg"}
	case "file_inclusion", "path_traversal":
		return []string{"resolve paths against a whitelist", "reject input containing path separators or .."}
	case "deserialization":
		return []string{"exchange data as JSON instead of serialized objects", "pass allowed_classes:false to unserialize"}
	case "ssrf":
		return []string{"validate URLs against an allowlist of hosts", "block private and link-local address ranges"}
	case "open_redirect":
		return []string{"use wp_safe_redirect with an allowed-hosts list"}
	case "xxe":
		return []string{"keep external entity loading disabled", "parse untrusted XML with entities stripped"}
	case "auth_bypass":
		return []string{"gate every state-changing handler with current_user_can and a nonce check"}
	case "file_upload":
		return []string{"validate type and extension server-side", "store uploads outside the web root with generated names"}
	case "weak_crypto":
		return []string{"use password_hash/password_verify for credentials", "generate tokens with random_bytes"}
	default:
		return []string{"apply input validation and output encoding appropriate to the sink"}
	}
}

func generalRecommendation(category string) string {
	switch category {
	case "code_injection":
		return "Never evaluate strings as code; replace dynamic evaluation with a fixed dispatch table."
	case "command_injection":
		return "Avoid shell execution of variable data; escape any unavoidable argument with escapeshellarg()."
	case "file_inclusion":
		return "Include files only from a hardcoded whitelist; never derive include paths from input."
	case "path_traversal":
		return "Canonicalize paths with realpath() and verify they stay inside the intended directory."
	case "deserialization":
		return "Replace unserialize() on untrusted data with json_decode(), or restrict allowed_classes."
	case "ssrf":
		return "Validate outbound request targets against an allowlist before fetching."
	case "open_redirect":
		return "Redirect through wp_safe_redirect() with an explicit allowed-hosts list."
	case "xxe":
		return "Leave external entity loading disabled and sanitize XML input before parsing."
	case "auth_bypass":
		return "Add capability checks and nonce verification to the handler."
	case "file_upload":
		return "Validate uploads server-side and store them with generated names outside the web root."
	case "weak_crypto":
		return "Switch to the password_hash API and cryptographically secure randomness."
	default:
		return "Review the flagged code against the referenced weakness class."
	}
}
