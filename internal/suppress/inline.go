package suppress

import (
	"bufio"
	"os"
	"strings"
)

// commentPrefixes are the comment markers recognized in scanned sources.
var commentPrefixes = []string{"//", "#", "/*", "<!--", "*"}

const annotationMarker = "vigil:ignore"

// ScanFiles reads each file and collects its vigil:ignore annotations,
// keyed by the same path the scanner stamps into findings. Unreadable files
// are skipped; annotation gathering never fails a scan.
func ScanFiles(paths []string) map[string][]Annotation {
	result := make(map[string][]Annotation)
	for _, path := range paths {
		if anns := scanFile(path); len(anns) > 0 {
			result[path] = anns
		}
	}
	return result
}

func scanFile(path string) []Annotation {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var result []Annotation
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		category, reason, ok := parseAnnotation(sc.Text())
		if !ok {
			continue
		}
		result = append(result, Annotation{
			Category: category,
			Reason:   reason,
			File:     path,
			Line:     lineNum,
		})
	}
	return result
}

// parseAnnotation extracts the category and optional reason from a line
// containing "vigil:ignore <category>" or "vigil:ignore <category> -- reason".
// The marker must sit inside a comment; a bare "*" category is rejected.
func parseAnnotation(line string) (category, reason string, ok bool) {
	idx := strings.Index(strings.ToLower(line), annotationMarker)
	if idx < 0 {
		return "", "", false
	}
	if !inComment(line[:idx]) {
		return "", "", false
	}

	rest := strings.TrimSpace(line[idx+len(annotationMarker):])
	rest = strings.TrimSuffix(rest, "*/")
	rest = strings.TrimSuffix(rest, "-->")
	rest = strings.TrimSuffix(rest, "?>")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", "", false
	}

	if dashIdx := strings.Index(rest, " -- "); dashIdx >= 0 {
		category = strings.TrimSpace(rest[:dashIdx])
		reason = strings.TrimSpace(rest[dashIdx+4:])
	} else {
		category = rest
	}

	if category == "" || category == "*" || strings.ContainsAny(category, " \t") {
		return "", "", false
	}
	return strings.ToLower(category), reason, true
}

// inComment reports whether the text preceding the marker opens a comment.
func inComment(prefix string) bool {
	trimmed := strings.TrimSpace(prefix)
	for _, p := range commentPrefixes {
		if strings.HasSuffix(trimmed, p) || strings.Contains(trimmed, p+" ") {
			return true
		}
	}
	return false
}
