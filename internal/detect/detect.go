// Package detect provides target type auto-detection by inspecting
// well-known files and headers in a scan root.
package detect

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Result holds the detected target type.
// Type is a machine-readable identifier (e.g. "plugin", "theme", "core").
// Label is a human-readable name. Name and Version are read from the
// target's own headers when present. All fields are empty when the target
// type is unknown.
type Result struct {
	Type    string
	Label   string
	Name    string
	Version string
}

// Target inspects the directory at root and returns the detected target
// type. Detection signals are checked in priority order; the first match
// wins.
func Target(root string) Result {
	// 1. WordPress core — wp-includes plus a loader at the root
	if dirExists(root, "wp-includes") && (fileExists(root, "wp-load.php") || fileExists(root, "wp-settings.php")) {
		res := Result{Type: "core", Label: "WordPress core"}
		res.Version = coreVersion(root)
		return res
	}

	// 2. Theme — style.css with a Theme Name header
	if headers := readHeaders(filepath.Join(root, "style.css")); headers["theme name"] != "" {
		return Result{
			Type:    "theme",
			Label:   "WordPress theme",
			Name:    headers["theme name"],
			Version: headers["version"],
		}
	}

	// 3. Plugin — any root-level .php with a Plugin Name header
	if res, ok := pluginHeader(root); ok {
		return res
	}

	// 4. Generic PHP project — composer.json
	if fileExists(root, "composer.json") {
		return Result{Type: "php", Label: "PHP project"}
	}

	// 5. Unknown
	return Result{}
}

func fileExists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}

func dirExists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}

// pluginHeader scans root-level PHP files, smallest path first, for the
// standard plugin header block.
func pluginHeader(root string) (Result, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Result{}, false
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".php") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		headers := readHeaders(filepath.Join(root, name))
		if headers["plugin name"] == "" {
			continue
		}
		return Result{
			Type:    "plugin",
			Label:   "WordPress plugin",
			Name:    headers["plugin name"],
			Version: headers["version"],
		}, true
	}
	return Result{}, false
}

// coreVersion pulls $wp_version out of wp-includes/version.php.
func coreVersion(root string) string {
	lines := readFileLines(filepath.Join(root, "wp-includes", "version.php"), 40)
	for _, line := range lines {
		if !strings.Contains(line, "$wp_version") || !strings.Contains(line, "=") {
			continue
		}
		value := line[strings.Index(line, "=")+1:]
		value = strings.Trim(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), ";")), `'"`)
		if value != "" {
			return value
		}
	}
	return ""
}

// readHeaders parses the "Key: Value" comment header block WordPress uses
// in plugin entry files and theme stylesheets. Keys are lowercased.
func readHeaders(path string) map[string]string {
	headers := make(map[string]string)
	for _, line := range readFileLines(path, 40) {
		line = strings.TrimSpace(strings.TrimLeft(line, "/*# "))
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line[idx+1:]), "*/"))
		if key == "" || value == "" {
			continue
		}
		if _, seen := headers[key]; !seen {
			headers[key] = value
		}
	}
	return headers
}

// readFileLines returns up to maxLines lines of the file, or nil if it
// cannot be read.
func readFileLines(path string, maxLines int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(lines) < maxLines {
		lines = append(lines, sc.Text())
	}
	return lines
}
