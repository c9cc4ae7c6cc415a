package fix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/model"
)

const xssSource = `<?php
function render_query() {
    echo $_GET['q'];
}
`

func xssFinding(file string) model.Finding {
	return model.Finding{
		ID:                "f-abc123",
		VulnerabilityType: "xss",
		Subtype:           "direct_output",
		Severity:          model.SeverityHigh,
		Confidence:        0.85,
		Line:              3,
		Code:              `echo $_GET['q']`,
		File:              file,
	}
}

func xssAnalysis() model.Analysis {
	return model.Analysis{
		RiskLevel: model.SeverityHigh,
		Suggestions: []model.Suggestion{
			{Original: `$_GET['q']`, Suggested: `esc_html($_GET['q'])`, Note: "escape at output"},
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	eng := New(Options{BackupRoot: filepath.Join(dir, "backups")}, nil)
	target := filepath.Join(dir, "plugin.php")
	require.NoError(t, os.WriteFile(target, []byte(xssSource), 0o644))
	return eng, target
}

func TestEngine_ExecuteAppliesSuggestion(t *testing.T) {
	eng, target := newTestEngine(t)

	res := eng.Execute(xssFinding(target), xssAnalysis())
	require.True(t, res.Success, "error: %s", res.ErrorMessage)
	assert.Equal(t, "f-abc123", res.FindingID)
	assert.NotEmpty(t, res.BackupID)
	require.Len(t, res.ChangesMade, 1)
	assert.Equal(t, 3, res.ChangesMade[0].Line)

	patched, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(patched), `echo esc_html($_GET['q']);`)
	assert.NotContains(t, string(patched), "echo $_GET['q'];")
}

func TestEngine_AdvisorySuggestionRefused(t *testing.T) {
	dir := t.TempDir()
	eng := New(Options{BackupRoot: filepath.Join(dir, "backups")}, nil)

	source := `<?php
$wpdb->query("SELECT * FROM users WHERE id=" . $_GET['id']);
`
	target := filepath.Join(dir, "db.php")
	require.NoError(t, os.WriteFile(target, []byte(source), 0o644))

	f := model.Finding{
		ID:                "f-sqli1",
		VulnerabilityType: "sql_injection",
		Subtype:           "basic_injection",
		Severity:          model.SeverityCritical,
		Confidence:        0.95,
		Line:              2,
		Code:              `$wpdb->query("SELECT * FROM users WHERE id=" . $_GET['id']`,
		File:              target,
	}
	a := model.Analysis{
		RiskLevel: model.SeverityCritical,
		Suggestions: []model.Suggestion{
			{Original: `" . $_GET['id']`, Suggested: `%s", $_GET['id']`, Advisory: true},
		},
	}

	ok, reason := eng.Eligible(f, a)
	assert.False(t, ok)
	assert.Contains(t, reason, "no applicable rewrite suggestion")

	res := eng.Execute(f, a)
	assert.False(t, res.Success)
	assert.Empty(t, res.BackupID)

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, source, string(raw), "an advisory fragment must never be spliced into the query")
	assert.NotContains(t, string(raw), "%s")
}

func TestEngine_RollbackRestoresOriginal(t *testing.T) {
	eng, target := newTestEngine(t)

	res := eng.Execute(xssFinding(target), xssAnalysis())
	require.True(t, res.Success)

	require.NoError(t, eng.Rollback(res.BackupID))
	restored, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, xssSource, string(restored))
}

func TestEngine_RollbackRejectsTamperedBackup(t *testing.T) {
	eng, target := newTestEngine(t)
	res := eng.Execute(xssFinding(target), xssAnalysis())
	require.True(t, res.Success)

	copyPath := filepath.Join(eng.opts.BackupRoot, res.BackupID, "plugin.php")
	require.NoError(t, os.WriteFile(copyPath, []byte("tampered"), 0o600))

	err := eng.Rollback(res.BackupID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
}

func TestEngine_RollbackUnknownBackup(t *testing.T) {
	eng, _ := newTestEngine(t)
	require.Error(t, eng.Rollback("no-such-backup"))
}

func TestEngine_DryRunLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	eng := New(Options{BackupRoot: filepath.Join(dir, "backups"), DryRun: true}, nil)
	target := filepath.Join(dir, "plugin.php")
	require.NoError(t, os.WriteFile(target, []byte(xssSource), 0o644))

	res := eng.Execute(xssFinding(target), xssAnalysis())
	require.True(t, res.Success)
	assert.Empty(t, res.BackupID, "dry run must not create backups")
	require.Len(t, res.ChangesMade, 1)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, xssSource, string(content))
}

func TestEngine_EligibilityRefusals(t *testing.T) {
	eng, target := newTestEngine(t)

	low := xssFinding(target)
	low.Confidence = 0.4
	ok, reason := eng.Eligible(low, xssAnalysis())
	assert.False(t, ok)
	assert.Contains(t, reason, "confidence")

	suppressed := xssFinding(target)
	suppressed.Suppressed = true
	ok, reason = eng.Eligible(suppressed, xssAnalysis())
	assert.False(t, ok)
	assert.Contains(t, reason, "suppressed")

	noLoc := xssFinding(target)
	noLoc.Line = 0
	ok, _ = eng.Eligible(noLoc, xssAnalysis())
	assert.False(t, ok)

	ok, reason = eng.Eligible(xssFinding(target), model.Analysis{})
	assert.False(t, ok)
	assert.Contains(t, reason, "suggestion")
}

func TestEngine_StaleLineRefused(t *testing.T) {
	eng, target := newTestEngine(t)
	// The file changed since the scan; the flagged line no longer matches.
	require.NoError(t, os.WriteFile(target, []byte("<?php\n// moved\n$x = 1;\n"), 0o644))

	res := eng.Execute(xssFinding(target), xssAnalysis())
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "no longer contains")

	entries, err := os.ReadDir(eng.opts.BackupRoot)
	if err == nil {
		assert.Empty(t, entries, "refused fix must not leave a backup behind")
	}
}

func TestEngine_ManifestContents(t *testing.T) {
	eng, target := newTestEngine(t)
	res := eng.Execute(xssFinding(target), xssAnalysis())
	require.True(t, res.Success)

	data, err := os.ReadFile(filepath.Join(eng.opts.BackupRoot, res.BackupID, "manifest.json"))
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, res.BackupID)
	assert.Contains(t, s, "f-abc123")
	assert.Contains(t, s, strings.ReplaceAll(target, `\`, `\\`))
}
