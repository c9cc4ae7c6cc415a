package rules

import "vigil/internal/model"

// generalCategories is the multi-category catalogue run by the general
// detector. Each category is keyed by vulnerability theme; rule IDs are the
// subtypes reported on findings.
func generalCategories() []Category {
	return []Category{
		{
			Name: "code_injection",
			Rules: []Rule{
				{
					ID:          "eval_user_input",
					Pattern:     `\beval\s*\([^)]*\$_(?:GET|POST|REQUEST|COOKIE)\b`,
					Severity:    model.SeverityCritical,
					Confidence:  0.95,
					Description: "eval() of request-controlled input",
					CWE:         "CWE-94",
					References:  []string{"https://owasp.org/www-community/attacks/Code_Injection"},
				},
				{
					ID:          "preg_replace_eval",
					Pattern:     `preg_replace\s*\(\s*["'][^"']*/[a-zA-Z]*e[a-zA-Z]*["']`,
					Severity:    model.SeverityCritical,
					Confidence:  0.85,
					Description: "preg_replace with the deprecated /e modifier executes the replacement as code",
					CWE:         "CWE-94",
				},
				{
					ID:          "assert_call",
					Pattern:     `\bassert\s*\(\s*\$`,
					Severity:    model.SeverityHigh,
					Confidence:  0.8,
					Description: "assert() evaluates its string argument as code",
					CWE:         "CWE-94",
				},
				{
					ID:          "create_function",
					Pattern:     `\bcreate_function\s*\(`,
					Severity:    model.SeverityHigh,
					Confidence:  0.7,
					Description: "create_function builds code from strings at runtime",
					CWE:         "CWE-94",
				},
				{
					ID:          "dynamic_function",
					Pattern:     `\$\w+\s*\(\s*\$_(?:GET|POST|REQUEST)\b`,
					Severity:    model.SeverityHigh,
					Confidence:  0.6,
					Description: "Variable function invoked with request-controlled arguments",
					CWE:         "CWE-94",
				},
			},
		},
		{
			Name: "command_injection",
			Rules: []Rule{
				{
					ID:          "exec_user_input",
					Pattern:     `\b(?:exec|system|passthru|shell_exec|popen|proc_open)\s*\([^)]*\$_(?:GET|POST|REQUEST|COOKIE)\b`,
					Severity:    model.SeverityCritical,
					Confidence:  0.95,
					Description: "Shell execution of request-controlled input",
					CWE:         "CWE-78",
					References:  []string{"https://owasp.org/www-community/attacks/Command_Injection"},
				},
				{
					ID:          "exec_variable",
					Pattern:     `\b(?:exec|system|passthru|shell_exec)\s*\(\s*\$\w+`,
					Severity:    model.SeverityHigh,
					Confidence:  0.6,
					Description: "Shell execution of a variable command line",
					CWE:         "CWE-78",
				},
				{
					ID:          "backtick_execution",
					Pattern:     "`[^`]*\\$[^`]*`",
					Severity:    model.SeverityMedium,
					Confidence:  0.6,
					Description: "Backtick operator with an interpolated variable",
					CWE:         "CWE-78",
				},
			},
		},
		{
			Name: "file_inclusion",
			Rules: []Rule{
				{
					ID:          "include_user_input",
					Pattern:     `\b(?:include|include_once|require|require_once)\s*\(?[^;]*\$_(?:GET|POST|REQUEST|COOKIE)\b`,
					Severity:    model.SeverityCritical,
					Confidence:  0.9,
					Description: "File inclusion path taken from request input",
					CWE:         "CWE-98",
				},
				{
					ID:          "dynamic_include",
					Pattern:     `\b(?:include|include_once|require|require_once)\s*\(?\s*\$\w+`,
					Severity:    model.SeverityMedium,
					Confidence:  0.5,
					Description: "File inclusion path held in a variable",
					CWE:         "CWE-98",
				},
			},
		},
		{
			Name: "path_traversal",
			Rules: []Rule{
				{
					ID:          "file_read_user_input",
					Pattern:     `\b(?:file_get_contents|fopen|readfile|file)\s*\([^)]*\$_(?:GET|POST|REQUEST)\b`,
					Severity:    model.SeverityHigh,
					Confidence:  0.8,
					Description: "Filesystem read with a request-controlled path",
					CWE:         "CWE-22",
				},
				{
					ID:          "file_delete_user_input",
					Pattern:     `\bunlink\s*\([^)]*\$_(?:GET|POST|REQUEST)\b`,
					Severity:    model.SeverityHigh,
					Confidence:  0.85,
					Description: "File deletion with a request-controlled path",
					CWE:         "CWE-22",
				},
				{
					ID:          "traversal_sequence",
					Pattern:     `\$_(?:GET|POST|REQUEST)\[[^\]]*\]\s*\.\s*["'][^"']*\.\./`,
					Severity:    model.SeverityHigh,
					Confidence:  0.75,
					Description: "Request input concatenated with a parent-directory sequence",
					CWE:         "CWE-22",
				},
			},
		},
		{
			Name: "deserialization",
			Rules: []Rule{
				{
					ID:          "unserialize_user_input",
					Pattern:     `\bunserialize\s*\([^)]*\$_(?:GET|POST|REQUEST|COOKIE)\b`,
					Severity:    model.SeverityCritical,
					Confidence:  0.9,
					Description: "unserialize() of request-controlled data enables object injection",
					CWE:         "CWE-502",
					References:  []string{"https://owasp.org/www-community/vulnerabilities/PHP_Object_Injection"},
				},
				{
					ID:          "maybe_unserialize_user_input",
					Pattern:     `\bmaybe_unserialize\s*\([^)]*\$_(?:GET|POST|REQUEST|COOKIE)\b`,
					Severity:    model.SeverityHigh,
					Confidence:  0.8,
					Description: "maybe_unserialize() of request-controlled data",
					CWE:         "CWE-502",
				},
			},
		},
		{
			Name: "ssrf",
			Rules: []Rule{
				{
					ID:          "remote_request_user_input",
					Pattern:     `\b(?:wp_remote_get|wp_remote_post|wp_remote_request|file_get_contents|curl_init)\s*\([^)]*\$_(?:GET|POST|REQUEST)\b`,
					Severity:    model.SeverityHigh,
					Confidence:  0.8,
					Description: "Outbound request target taken from request input",
					CWE:         "CWE-918",
				},
				{
					ID:          "curl_url_variable",
					Pattern:     `curl_setopt\s*\([^,]+,\s*CURLOPT_URL\s*,\s*\$`,
					Severity:    model.SeverityHigh,
					Confidence:  0.7,
					Description: "CURLOPT_URL set from a variable",
					CWE:         "CWE-918",
				},
			},
		},
		{
			Name: "open_redirect",
			Rules: []Rule{
				{
					ID:          "redirect_user_input",
					Pattern:     `\bwp_redirect\s*\([^)]*\$_(?:GET|POST|REQUEST)\b`,
					Severity:    model.SeverityMedium,
					Confidence:  0.75,
					Description: "Redirect target taken from request input",
					CWE:         "CWE-601",
				},
				{
					ID:          "header_location",
					Pattern:     `\bheader\s*\(\s*["']Location:[^)]*\$_(?:GET|POST|REQUEST)\b`,
					Severity:    model.SeverityHigh,
					Confidence:  0.8,
					Description: "Location header built from request input",
					CWE:         "CWE-601",
				},
			},
		},
		{
			Name: "xxe",
			Rules: []Rule{
				{
					ID:          "entity_loader_enabled",
					Pattern:     `libxml_disable_entity_loader\s*\(\s*false`,
					Severity:    model.SeverityHigh,
					Confidence:  0.85,
					Description: "External entity loading explicitly re-enabled",
					CWE:         "CWE-611",
				},
				{
					ID:          "xml_parse_user_input",
					Pattern:     `\b(?:simplexml_load_string|DOMDocument::loadXML|xml_parse)\s*\([^)]*\$_(?:GET|POST|REQUEST)\b`,
					Severity:    model.SeverityHigh,
					Confidence:  0.7,
					Description: "XML parsed directly from request input",
					CWE:         "CWE-611",
				},
			},
		},
		{
			Name: "auth_bypass",
			Rules: []Rule{
				{
					ID:          "nopriv_ajax",
					Pattern:     `add_action\s*\(\s*["']wp_ajax_nopriv_`,
					Severity:    model.SeverityLow,
					Confidence:  0.4,
					Description: "Unauthenticated AJAX handler registered; verify it needs no capability check",
					CWE:         "CWE-862",
				},
				{
					ID:          "capability_constant",
					Pattern:     `current_user_can\s*\(\s*["'](?:read|exist)["']`,
					Severity:    model.SeverityLow,
					Confidence:  0.4,
					Description: "Capability check against a near-universal capability",
					CWE:         "CWE-862",
				},
			},
		},
		{
			Name: "file_upload",
			Rules: []Rule{
				{
					ID:          "move_uploaded_unchecked",
					Pattern:     `move_uploaded_file\s*\([^)]*\$_FILES`,
					Severity:    model.SeverityMedium,
					Confidence:  0.6,
					Description: "Upload moved without an apparent type or extension check",
					CWE:         "CWE-434",
				},
				{
					ID:          "upload_name_direct",
					Pattern:     `\$_FILES\[[^\]]*\]\[["']name["']\]\s*[.)]`,
					Severity:    model.SeverityLow,
					Confidence:  0.45,
					Description: "Client-supplied upload filename used directly",
					CWE:         "CWE-434",
				},
			},
		},
		{
			Name: "weak_crypto",
			Rules: []Rule{
				{
					ID:          "weak_hash",
					Pattern:     `\b(?:md5|sha1)\s*\(\s*\$`,
					Severity:    model.SeverityLow,
					Confidence:  0.5,
					Description: "Weak hash function applied to a variable; unsafe for passwords or signatures",
					CWE:         "CWE-327",
				},
				{
					ID:          "insecure_random_token",
					Pattern:     `\b(?:mt_rand|rand|uniqid)\s*\([^)]*\)\s*.{0,40}(?:token|nonce|key|secret)`,
					Severity:    model.SeverityMedium,
					Confidence:  0.55,
					Description: "Non-cryptographic randomness near token or key material",
					CWE:         "CWE-330",
				},
			},
		},
	}
}
