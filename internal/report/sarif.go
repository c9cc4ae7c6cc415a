package report

import (
	"bytes"
	"fmt"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"vigil/internal/model"
	"vigil/internal/safefile"
	"vigil/internal/version"
)

const toolURI = "https://github.com/vigil-scan/vigil"

// BuildSARIF converts the session to a SARIF 2.1.0 report. Each
// category/subtype pair becomes a reporting rule; suppressed findings are
// excluded.
func BuildSARIF(rep *model.ScanReport) (*sarif.Report, error) {
	out, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("vigil", toolURI)
	run.Tool.Driver.WithVersion(version.Version)

	seen := make(map[string]struct{})
	for _, f := range rep.Findings {
		ruleID := f.VulnerabilityType + "/" + f.Subtype
		if _, ok := seen[ruleID]; !ok {
			seen[ruleID] = struct{}{}
			desc := f.Description
			if f.CWE != "" {
				desc += " (" + f.CWE + ")"
			}
			run.AddRule(ruleID).
				WithDescription(desc).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{
					Level: sarifLevel(f.Severity),
				})
		}

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.File)).
				WithRegion(sarif.NewRegion().WithStartLine(f.Line)),
		)
		run.AddResult(sarif.NewRuleResult(ruleID).
			WithMessage(sarif.NewTextMessage(f.Description)).
			WithLevel(sarifLevel(f.Severity)).
			WithLocations([]*sarif.Location{location}))
	}
	out.AddRun(run)
	return out, nil
}

// WriteSARIF writes the SARIF report atomically to path.
func WriteSARIF(path string, rep *model.ScanReport) error {
	out, err := BuildSARIF(rep)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := out.PrettyWrite(&buf); err != nil {
		return fmt.Errorf("encode SARIF report: %w", err)
	}
	return safefile.WriteFileAtomic(path, buf.Bytes(), 0o600)
}

func sarifLevel(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical, model.SeverityHigh:
		return "error"
	case model.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
