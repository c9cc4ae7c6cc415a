// Package report renders a scan session for its consumers: colorized
// terminal output, machine-readable JSON, and SARIF for code-scanning
// ingestion.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vigil/internal/model"
	"vigil/internal/safefile"
)

// Lipgloss styles per severity level.
var (
	styleCritical = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	styleHigh     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleMedium   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	styleLow      = lipgloss.NewStyle().Faint(true)
	styleFile     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleMuted    = lipgloss.NewStyle().Faint(true)
)

func styleSeverity(sev model.Severity) string {
	label := strings.ToUpper(string(sev))
	switch sev {
	case model.SeverityCritical:
		return styleCritical.Render(label)
	case model.SeverityHigh:
		return styleHigh.Render(label)
	case model.SeverityMedium:
		return styleMedium.Render(label)
	case model.SeverityLow:
		return styleLow.Render(label)
	default:
		return label
	}
}

// FormatHuman renders the session as color-coded terminal output, most
// severe findings first. With verbose set, the matched code and the
// recommendation are included per finding.
func FormatHuman(rep *model.ScanReport, verbose bool) string {
	var b strings.Builder

	b.WriteString(formatSummaryLine(rep))
	b.WriteString("\n")
	if len(rep.Findings) == 0 {
		b.WriteString("No findings.\n")
		return appendErrors(&b, rep)
	}

	sorted := make([]model.Finding, len(rep.Findings))
	copy(sorted, rep.Findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return model.SeverityRank(sorted[i].Severity) > model.SeverityRank(sorted[j].Severity)
	})

	for _, f := range sorted {
		b.WriteString(fmt.Sprintf("%s %s (%s)\n", styleSeverity(f.Severity), f.Description, f.Subtype))
		b.WriteString(fmt.Sprintf("  %s\n", styleFile.Render(fmt.Sprintf("%s:%d", f.File, f.Line))))
		if verbose {
			code := strings.ReplaceAll(strings.TrimSpace(f.Code), "\n", " ")
			if len(code) > 120 {
				code = code[:120] + "..."
			}
			b.WriteString(fmt.Sprintf("  code: %s\n", code))
			if f.Recommendation != "" {
				b.WriteString("  " + styleMuted.Render("fix: "+f.Recommendation) + "\n")
			}
			b.WriteString(fmt.Sprintf("  confidence: %.2f", f.Confidence))
			if f.CWE != "" {
				b.WriteString("  " + f.CWE)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("%d finding(s)", len(rep.Findings)))
	if rep.SuppressedCount > 0 {
		b.WriteString(fmt.Sprintf(", %d suppressed", rep.SuppressedCount))
	}
	b.WriteString(".\n")
	return appendErrors(&b, rep)
}

func formatSummaryLine(rep *model.ScanReport) string {
	parts := []string{
		fmt.Sprintf("status=%s", rep.Status),
		fmt.Sprintf("files=%d/%d", rep.FilesScanned, rep.FilesTotal),
	}
	for _, sev := range []model.Severity{model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		if n := rep.CountsBySeverity[string(sev)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", sev, n))
		}
	}
	if rep.DurationMS > 0 {
		parts = append(parts, fmt.Sprintf("duration=%dms", rep.DurationMS))
	}
	return strings.Join(parts, " ") + "\n"
}

func appendErrors(b *strings.Builder, rep *model.ScanReport) string {
	if rep.Error != "" {
		b.WriteString(styleHigh.Render("scan error: "+rep.Error) + "\n")
	}
	for _, e := range rep.Errors {
		b.WriteString(styleMuted.Render(fmt.Sprintf("skipped %s (%s: %s)", e.File, e.Stage, e.Message)) + "\n")
	}
	return b.String()
}

// FormatJSON renders the full session report as indented JSON.
func FormatJSON(rep *model.ScanReport) (string, error) {
	if rep.Findings == nil {
		rep.Findings = []model.Finding{}
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(b), nil
}

// WriteJSON writes the JSON report atomically to path.
func WriteJSON(path string, rep *model.ScanReport) error {
	s, err := FormatJSON(rep)
	if err != nil {
		return err
	}
	return safefile.WriteFileAtomic(path, []byte(s+"\n"), 0o600)
}

// Threshold reports whether any active finding meets or exceeds the given
// severity. CLI exit gating uses this.
func Threshold(rep *model.ScanReport, min model.Severity) bool {
	floor := model.SeverityRank(min)
	if floor == 0 {
		return false
	}
	for _, f := range rep.Findings {
		if model.SeverityRank(f.Severity) >= floor {
			return true
		}
	}
	return false
}
