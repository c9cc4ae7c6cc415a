package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/config"
	"vigil/internal/detector"
	"vigil/internal/model"
	"vigil/internal/progress"
	"vigil/internal/rules"
)

const vulnPHP = `<?php
// plugin bootstrap
function lookup_user() {
    global $wpdb;
    $results = $wpdb->query( "SELECT * FROM users WHERE id = " . $user_id );
    return $results;
}
`

const cleanPHP = `<?php
function greet( $name ) {
    return esc_html( $name );
}
`

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testConfig(targets ...string) config.Scan {
	cfg := config.Defaults()
	cfg.TargetPaths = targets
	return cfg
}

func newTestCoordinator() *Coordinator {
	return New(rules.Load(nil), nil, progress.NoopSink{})
}

func TestCoordinator_ScanCompletes(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "vuln.php"), vulnPHP)
	mustWriteFile(t, filepath.Join(dir, "clean.php"), cleanPHP)

	c := newTestCoordinator()
	require.NoError(t, c.Initialize(testConfig(dir)))
	require.NotEmpty(t, c.SessionID())
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, StatusCompleted, c.Status())

	rep := c.Report()
	assert.Equal(t, 2, rep.FilesScanned)
	assert.Empty(t, rep.Errors)
	require.Len(t, rep.Findings, 1)

	f := rep.Findings[0]
	assert.Equal(t, "sql_injection", f.VulnerabilityType)
	assert.Equal(t, "basic_injection", f.Subtype)
	assert.Equal(t, model.SeverityCritical, f.Severity)
	assert.Equal(t, 5, f.Line)
	assert.Equal(t, 1, rep.CountsBySeverity["critical"])
	assert.Equal(t, 1, rep.CountsByType["sql_injection"])
	assert.NotEmpty(t, rep.SafePractices, "clean.php uses esc_html")
}

func TestCoordinator_UnreadableFileIsRecoverable(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.php"), cleanPHP)
	gone := filepath.Join(dir, "b.php")
	mustWriteFile(t, gone, cleanPHP)
	mustWriteFile(t, filepath.Join(dir, "c.php"), vulnPHP)

	c := newTestCoordinator()
	require.NoError(t, c.Initialize(testConfig(dir)))
	// Removed after enumeration, so the read fails during the scan.
	require.NoError(t, os.Remove(gone))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, StatusCompleted, c.Status())
	rep := c.Report()
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, gone, rep.Errors[0].File)
	assert.Equal(t, "read", rep.Errors[0].Stage)
	assert.Len(t, rep.Findings, 1, "remaining files still scanned")
}

func TestCoordinator_DeterministicOrdering(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "zz.php"), vulnPHP)
	mustWriteFile(t, filepath.Join(dir, "aa.php"), vulnPHP+"\n"+`<?php echo $_GET['q']; ?>`)

	c := newTestCoordinator()
	require.NoError(t, c.Initialize(testConfig(dir)))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Wait(context.Background()))

	got := c.Findings()
	require.Len(t, got, 3)
	assert.Equal(t, filepath.Join(dir, "aa.php"), got[0].File)
	assert.Equal(t, filepath.Join(dir, "aa.php"), got[1].File)
	assert.Equal(t, filepath.Join(dir, "zz.php"), got[2].File)
	assert.LessOrEqual(t, got[0].Line, got[1].Line)
}

func TestCoordinator_FindingLimitTripsErrorState(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.php"), vulnPHP)
	mustWriteFile(t, filepath.Join(dir, "b.php"), vulnPHP)
	mustWriteFile(t, filepath.Join(dir, "c.php"), vulnPHP)

	cfg := testConfig(dir)
	cfg.Workers = 1
	cfg.MaxFindings = 1

	c := newTestCoordinator()
	require.NoError(t, c.Initialize(cfg))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Wait(context.Background()))

	assert.Equal(t, StatusError, c.Status())
	rep := c.Report()
	assert.Contains(t, rep.Error, "finding limit")
	assert.NotEmpty(t, rep.Findings, "partial results preserved")
	assert.Less(t, rep.FilesScanned, 3, "dispatch stops once the limit trips")
}

func TestCoordinator_ActiveCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	mixed := vulnPHP + "\n" + `<?php echo $_GET['name']; ?>`
	mustWriteFile(t, filepath.Join(dir, "mixed.php"), mixed)

	cfg := testConfig(dir)
	cfg.ActiveCategories = []string{"xss"}

	c := newTestCoordinator()
	require.NoError(t, c.Initialize(cfg))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Wait(context.Background()))

	got := c.Findings()
	require.Len(t, got, 1)
	assert.Equal(t, "xss", got[0].VulnerabilityType)
}

func TestCoordinator_UnknownCategoryRejected(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.php"), cleanPHP)

	cfg := testConfig(dir)
	cfg.ActiveCategories = []string{"sql_injection", "not_a_category"}

	c := newTestCoordinator()
	err := c.Initialize(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_a_category")
}

func TestCoordinator_LifecycleRejections(t *testing.T) {
	c := newTestCoordinator()

	require.Error(t, c.Start(context.Background()), "start before initialize")
	require.Error(t, c.Pause(), "pause while idle")
	require.Error(t, c.Resume(), "resume while idle")
	require.Error(t, c.Stop(), "stop while idle")

	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.php"), cleanPHP)
	require.NoError(t, c.Initialize(testConfig(dir)))
	require.Error(t, c.Pause(), "pause before start")

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Wait(context.Background()))
	require.Equal(t, StatusCompleted, c.Status())

	require.Error(t, c.Start(context.Background()), "restart without re-initialize")
	require.Error(t, c.Pause(), "pause after completion")
	require.Error(t, c.Stop(), "stop after completion")
}

func TestCoordinator_PauseBlocksDispatchUntilResume(t *testing.T) {
	c := newTestCoordinator()
	c.mu.Lock()
	c.status = StatusRunning
	c.mu.Unlock()

	require.NoError(t, c.Pause())
	assert.Equal(t, StatusPaused, c.Status())
	require.Error(t, c.Pause(), "double pause")

	released := make(chan bool, 1)
	go func() {
		released <- c.gate(context.Background())
	}()

	select {
	case <-released:
		t.Fatal("gate must block while paused")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, c.Resume())
	select {
	case ok := <-released:
		assert.True(t, ok, "gate admits dispatch after resume")
	case <-time.After(time.Second):
		t.Fatal("gate did not release after resume")
	}
}

func TestCoordinator_StopPreservesPartialResults(t *testing.T) {
	c := newTestCoordinator()
	c.mu.Lock()
	c.status = StatusRunning
	c.startedAt = time.Now().UTC()
	c.findings = []model.Finding{{ID: "f-1", File: "a.php", Line: 1}}
	c.mu.Unlock()

	require.NoError(t, c.Stop())
	assert.False(t, c.gate(context.Background()), "gate closes after stop")

	c.finish(context.Background())
	assert.Equal(t, StatusStopped, c.Status())
	require.Len(t, c.Findings(), 1)
}

func TestCoordinator_StopWakesPausedGate(t *testing.T) {
	c := newTestCoordinator()
	c.mu.Lock()
	c.status = StatusRunning
	c.mu.Unlock()
	require.NoError(t, c.Pause())

	released := make(chan bool, 1)
	go func() {
		released <- c.gate(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, c.Stop())
	select {
	case ok := <-released:
		assert.False(t, ok, "stop from paused releases the gate closed")
	case <-time.After(time.Second):
		t.Fatal("gate did not release after stop")
	}
}

// holdGate blocks the first Detect call across a detector set until released,
// so a test can pause the session while a file is guaranteed to be in flight.
type holdGate struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

type holdFirstDetector struct {
	inner detector.Detector
	gate  *holdGate
}

func (d *holdFirstDetector) Name() string { return d.inner.Name() }
func (d *holdFirstDetector) Detect(content, path string) []model.Finding {
	d.gate.once.Do(func() {
		close(d.gate.entered)
		<-d.gate.release
	})
	return d.inner.Detect(content, path)
}
func (d *holdFirstDetector) Analyze(s, p string) model.Analysis { return d.inner.Analyze(s, p) }
func (d *holdFirstDetector) IsFalsePositive(f model.Finding, c string) bool {
	return d.inner.IsFalsePositive(f, c)
}
func (d *holdFirstDetector) CheckSafePractices(c string) []model.SafePractice {
	return d.inner.CheckSafePractices(c)
}

func TestCoordinator_PauseResumeMatchesUninterruptedRun(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 6; i++ {
		mustWriteFile(t, filepath.Join(dir, fmt.Sprintf("vuln%d.php", i)), vulnPHP)
	}
	mustWriteFile(t, filepath.Join(dir, "clean.php"), cleanPHP)
	mustWriteFile(t, filepath.Join(dir, "out.php"), "<?php\necho $_GET['name'];\n")

	baseline := newTestCoordinator()
	require.NoError(t, baseline.Initialize(testConfig(dir)))
	require.NoError(t, baseline.Start(context.Background()))
	require.NoError(t, baseline.Wait(context.Background()))
	require.Equal(t, StatusCompleted, baseline.Status())

	// One worker keeps later files undispatched while the first is held, so
	// the pause is guaranteed to land before the run can finish.
	cfg := testConfig(dir)
	cfg.Workers = 1
	c := newTestCoordinator()
	require.NoError(t, c.Initialize(cfg))

	gate := &holdGate{entered: make(chan struct{}), release: make(chan struct{})}
	c.mu.Lock()
	held := make([]detector.Detector, len(c.detectors))
	for i, d := range c.detectors {
		held[i] = &holdFirstDetector{inner: d, gate: gate}
	}
	c.detectors = held
	c.mu.Unlock()

	require.NoError(t, c.Start(context.Background()))
	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("no file entered detection")
	}
	require.NoError(t, c.Pause())
	assert.Equal(t, StatusPaused, c.Status())
	close(gate.release)

	require.NoError(t, c.Resume())
	require.NoError(t, c.Wait(context.Background()))
	require.Equal(t, StatusCompleted, c.Status())

	base := baseline.Report()
	rep := c.Report()
	assert.Equal(t, base.Findings, rep.Findings, "pausing and resuming must not change the result set")
	assert.Equal(t, base.FilesScanned, rep.FilesScanned)
	assert.Equal(t, base.CountsBySeverity, rep.CountsBySeverity)
}

type slowDetector struct {
	delay time.Duration
}

func (slowDetector) Name() string { return "slow" }
func (d slowDetector) Detect(string, string) []model.Finding {
	time.Sleep(d.delay)
	return nil
}
func (slowDetector) Analyze(string, string) model.Analysis          { return model.Analysis{} }
func (slowDetector) IsFalsePositive(model.Finding, string) bool     { return false }
func (slowDetector) CheckSafePractices(string) []model.SafePractice { return nil }

func TestCoordinator_PerFileTimeout(t *testing.T) {
	c := newTestCoordinator()
	c.mu.Lock()
	c.cfg.PerFileTimeout = 20 * time.Millisecond
	c.detectors = []detector.Detector{slowDetector{delay: 500 * time.Millisecond}}
	c.mu.Unlock()

	_, _, err := c.detect(context.Background(), "<?php ?>", "slow.php")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded")
}

func TestCoordinator_CleanupResetsSession(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "vuln.php"), vulnPHP)

	c := newTestCoordinator()
	require.NoError(t, c.Initialize(testConfig(dir)))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Wait(context.Background()))
	require.NotEmpty(t, c.Findings())

	require.NoError(t, c.Cleanup())
	assert.Equal(t, StatusIdle, c.Status())
	assert.Empty(t, c.SessionID())
	assert.Empty(t, c.Findings())

	require.NoError(t, c.Initialize(testConfig(dir)), "coordinator is reusable after cleanup")
}

func TestCoordinator_EventsEmitted(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "vuln.php"), vulnPHP)

	ch := make(chan progress.Event, 64)
	c := New(rules.Load(nil), nil, progress.NewChannelSink(ch))
	require.NoError(t, c.Initialize(testConfig(dir)))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Wait(context.Background()))
	close(ch)

	var types []progress.EventType
	for e := range ch {
		types = append(types, e.Type)
	}
	require.NotEmpty(t, types)
	assert.Equal(t, progress.EventScanStarted, types[0])
	assert.Equal(t, progress.EventScanFinished, types[len(types)-1])
	assert.Contains(t, types, progress.EventFileScanned)
}
