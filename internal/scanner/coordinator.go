// Package scanner runs the scan lifecycle: it fans target files out to a
// bounded worker pool, applies every active detector to each file, and
// collects findings, per-file errors, and safe-practice counts into one
// session report. Pause, resume, and stop act at file granularity; a file
// already handed to a worker always finishes.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vigil/internal/config"
	"vigil/internal/detector"
	"vigil/internal/intake"
	"vigil/internal/model"
	"vigil/internal/progress"
	"vigil/internal/rules"
)

// Coordinator owns one scan session at a time. All mutable state is guarded
// by mu; workers only touch it through record* and gate.
type Coordinator struct {
	reg  *rules.Registry
	log  *zap.SugaredLogger
	sink progress.Sink

	mu   sync.Mutex
	cond *sync.Cond

	cfg       config.Scan
	detectors []detector.Detector
	files     []intake.TargetFile

	sessionID string
	status    Status
	stopping  bool
	exhausted bool

	processed  int
	findings   []model.Finding
	fileErrors []model.FileError
	practices  map[string]int

	startedAt  time.Time
	finishedAt time.Time
	errMsg     string
	done       chan struct{}
}

// New returns an idle coordinator. A nil logger or sink is replaced with a
// no-op implementation.
func New(reg *rules.Registry, log *zap.SugaredLogger, sink progress.Sink) *Coordinator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if sink == nil {
		sink = progress.NoopSink{}
	}
	c := &Coordinator{
		reg:       reg,
		log:       log,
		sink:      sink,
		status:    StatusIdle,
		practices: make(map[string]int),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Initialize validates the configuration, builds the active detector set, and
// enumerates target files. It may be called again after a session reaches a
// terminal state; it refuses while a scan is in flight.
func (c *Coordinator) Initialize(cfg config.Scan) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scan config: %w", err)
	}
	dets, err := c.buildDetectors(cfg)
	if err != nil {
		return err
	}
	col, err := intake.Collect(cfg.TargetPaths, cfg.MaxFileSize)
	if err != nil {
		return fmt.Errorf("collect targets: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusRunning || c.status == StatusPaused {
		return fmt.Errorf("cannot initialize while scan is %s", c.status)
	}
	c.cfg = cfg
	c.detectors = dets
	c.files = col.Files
	c.sessionID = uuid.NewString()
	c.status = StatusIdle
	c.stopping = false
	c.exhausted = false
	c.processed = 0
	c.findings = nil
	c.fileErrors = nil
	c.practices = make(map[string]int)
	c.startedAt = time.Time{}
	c.finishedAt = time.Time{}
	c.errMsg = ""
	c.done = nil

	c.log.Infow("session initialized",
		"session", c.sessionID,
		"files", len(c.files),
		"skipped_large", col.SkippedLarge,
		"detectors", len(c.detectors),
	)
	return nil
}

func (c *Coordinator) buildDetectors(cfg config.Scan) ([]detector.Detector, error) {
	boosts := detector.Boosts{UserInput: cfg.BoostUserInput, Keyword: cfg.BoostKeyword}
	if len(cfg.ActiveCategories) == 0 {
		return []detector.Detector{
			detector.NewSQLInjection(c.reg, boosts),
			detector.NewXSS(c.reg, boosts),
			detector.NewGeneral(c.reg, nil, boosts),
		}, nil
	}

	known := make(map[string]struct{})
	for _, name := range c.reg.Categories() {
		known[name] = struct{}{}
	}

	var dets []detector.Detector
	var general []string
	seen := make(map[string]struct{})
	for _, raw := range cfg.ActiveCategories {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		switch name {
		case rules.CategorySQLInjection:
			dets = append(dets, detector.NewSQLInjection(c.reg, boosts))
		case rules.CategoryXSS:
			dets = append(dets, detector.NewXSS(c.reg, boosts))
		default:
			general = append(general, name)
		}
	}
	if len(general) > 0 {
		dets = append(dets, detector.NewGeneral(c.reg, general, boosts))
	}
	return dets, nil
}

// Start launches the scan asynchronously. It fails when no session is
// initialized or the session is not idle.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return errors.New("scan not initialized")
	}
	if c.status != StatusIdle {
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("cannot start scan in %s state", status)
	}
	c.status = StatusRunning
	c.startedAt = time.Now().UTC()
	c.done = make(chan struct{})
	sid := c.sessionID
	startedAt := c.startedAt
	total := len(c.files)
	workers := c.cfg.Workers
	done := c.done
	c.mu.Unlock()

	c.sink.Emit(progress.Event{
		Type:      progress.EventScanStarted,
		At:        startedAt,
		SessionID: sid,
		Total:     total,
	})
	c.log.Infow("scan started", "session", sid, "files", total, "workers", workers)

	go c.run(ctx, done)
	return nil
}

func (c *Coordinator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	c.mu.Lock()
	files := c.files
	workers := c.cfg.Workers
	c.mu.Unlock()
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan intake.TargetFile)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tf := range jobs {
				if !c.gate(ctx) {
					continue
				}
				c.scanOne(ctx, tf)
			}
		}()
	}

	for _, tf := range files {
		if !c.gate(ctx) {
			break
		}
		select {
		case jobs <- tf:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	c.finish(ctx)
}

// gate blocks while the session is paused and reports whether the next file
// may be dispatched.
func (c *Coordinator) gate(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.status == StatusPaused && !c.stopping {
		c.cond.Wait()
	}
	return c.status == StatusRunning && !c.stopping && ctx.Err() == nil
}

func (c *Coordinator) scanOne(ctx context.Context, tf intake.TargetFile) {
	raw, err := os.ReadFile(tf.Path)
	if err != nil {
		c.recordError(tf.Path, "read", err.Error())
		return
	}

	findings, practices, err := c.detect(ctx, string(raw), tf.Path)
	if err != nil {
		c.recordError(tf.Path, "detect", err.Error())
		return
	}
	c.recordResult(tf.Path, findings, practices)
}

type detectResult struct {
	findings  []model.Finding
	practices []model.SafePractice
}

// detect runs every active detector over one file's content, bounded by the
// per-file timeout. The detection goroutine is left to finish on its own
// after a timeout; its result is discarded.
func (c *Coordinator) detect(ctx context.Context, content, path string) ([]model.Finding, []model.SafePractice, error) {
	c.mu.Lock()
	dets := c.detectors
	timeout := c.cfg.PerFileTimeout
	c.mu.Unlock()

	ch := make(chan detectResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Warnw("detector panic", "file", path, "panic", r)
				ch <- detectResult{}
			}
		}()
		var res detectResult
		for _, d := range dets {
			for _, f := range d.Detect(content, path) {
				if d.IsFalsePositive(f, content) {
					continue
				}
				res.findings = append(res.findings, f)
			}
			res.practices = append(res.practices, d.CheckSafePractices(content)...)
		}
		ch <- res
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.findings, res.practices, nil
	case <-timer.C:
		return nil, nil, fmt.Errorf("detection exceeded %s", timeout)
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

func (c *Coordinator) recordResult(path string, findings []model.Finding, practices []model.SafePractice) {
	c.mu.Lock()
	c.processed++
	c.findings = append(c.findings, findings...)
	for _, p := range practices {
		c.practices[p.Practice] += p.Count
	}
	if len(c.findings) > c.cfg.MaxFindings && !c.exhausted {
		c.exhausted = true
		c.stopping = true
		c.errMsg = fmt.Sprintf("finding limit of %d exceeded, partial results retained", c.cfg.MaxFindings)
		c.cond.Broadcast()
		c.log.Errorw("finding limit exceeded", "session", c.sessionID, "limit", c.cfg.MaxFindings)
	}
	sid := c.sessionID
	processed := c.processed
	total := len(c.files)
	c.mu.Unlock()

	c.sink.Emit(progress.Event{
		Type:         progress.EventFileScanned,
		SessionID:    sid,
		File:         path,
		FindingCount: len(findings),
		Processed:    processed,
		Total:        total,
	})
}

func (c *Coordinator) recordError(path, stage, msg string) {
	c.mu.Lock()
	c.processed++
	c.fileErrors = append(c.fileErrors, model.FileError{File: path, Stage: stage, Message: msg})
	sid := c.sessionID
	processed := c.processed
	total := len(c.files)
	c.mu.Unlock()

	c.log.Warnw("file skipped", "file", path, "stage", stage, "error", msg)
	c.sink.Emit(progress.Event{
		Type:      progress.EventFileError,
		SessionID: sid,
		File:      path,
		Error:     msg,
		Processed: processed,
		Total:     total,
	})
}

func (c *Coordinator) finish(ctx context.Context) {
	c.mu.Lock()
	sort.Slice(c.findings, func(i, j int) bool {
		a, b := c.findings[i], c.findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.VulnerabilityType != b.VulnerabilityType {
			return a.VulnerabilityType < b.VulnerabilityType
		}
		return a.Subtype < b.Subtype
	})
	c.finishedAt = time.Now().UTC()
	switch {
	case c.exhausted:
		c.status = StatusError
	case c.stopping || ctx.Err() != nil:
		c.status = StatusStopped
	default:
		c.status = StatusCompleted
	}
	sid := c.sessionID
	status := c.status
	count := len(c.findings)
	errMsg := c.errMsg
	durationMS := c.finishedAt.Sub(c.startedAt).Milliseconds()
	at := c.finishedAt
	c.mu.Unlock()

	c.sink.Emit(progress.Event{
		Type:         progress.EventScanFinished,
		At:           at,
		SessionID:    sid,
		Status:       string(status),
		FindingCount: count,
		DurationMS:   durationMS,
		Error:        errMsg,
	})
	c.log.Infow("scan finished",
		"session", sid,
		"status", status,
		"findings", count,
		"duration_ms", durationMS,
	)
}

// Pause suspends dispatch of further files. Files already handed to workers
// run to completion.
func (c *Coordinator) Pause() error {
	c.mu.Lock()
	if c.status != StatusRunning {
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("cannot pause scan in %s state", status)
	}
	c.status = StatusPaused
	sid := c.sessionID
	processed := c.processed
	total := len(c.files)
	c.mu.Unlock()

	c.log.Infow("scan paused", "session", sid, "processed", processed)
	c.sink.Emit(progress.Event{
		Type:      progress.EventScanPaused,
		SessionID: sid,
		Processed: processed,
		Total:     total,
	})
	return nil
}

// Resume continues a paused scan.
func (c *Coordinator) Resume() error {
	c.mu.Lock()
	if c.status != StatusPaused {
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("cannot resume scan in %s state", status)
	}
	c.status = StatusRunning
	c.cond.Broadcast()
	sid := c.sessionID
	c.mu.Unlock()

	c.log.Infow("scan resumed", "session", sid)
	c.sink.Emit(progress.Event{Type: progress.EventScanResumed, SessionID: sid})
	return nil
}

// Stop requests termination. Findings collected so far are preserved; the
// session reaches the stopped state once in-flight files finish.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if c.status != StatusRunning && c.status != StatusPaused {
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("cannot stop scan in %s state", status)
	}
	c.stopping = true
	c.cond.Broadcast()
	sid := c.sessionID
	c.mu.Unlock()

	c.log.Infow("stop requested", "session", sid)
	return nil
}

// Wait blocks until the running session reaches a terminal state or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return errors.New("scan not started")
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current session state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID returns the identifier of the current session, or "" before the
// first Initialize.
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Progress returns a snapshot of the session counters.
func (c *Coordinator) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Progress{
		SessionID:    c.sessionID,
		Status:       c.status,
		Processed:    c.processed,
		Total:        len(c.files),
		FindingCount: len(c.findings),
		ErrorCount:   len(c.fileErrors),
	}
}

// Findings returns a copy of the findings collected so far.
func (c *Coordinator) Findings() []model.Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Finding(nil), c.findings...)
}

// Errors returns a copy of the per-file errors recorded so far.
func (c *Coordinator) Errors() []model.FileError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.FileError(nil), c.fileErrors...)
}

// Report builds the session summary from the current state.
func (c *Coordinator) Report() *model.ScanReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	rep := &model.ScanReport{
		SessionID:        c.sessionID,
		Status:           string(c.status),
		Error:            c.errMsg,
		StartedAt:        c.startedAt,
		CompletedAt:      c.finishedAt,
		FilesScanned:     c.processed,
		FilesTotal:       len(c.files),
		Findings:         append([]model.Finding(nil), c.findings...),
		Errors:           append([]model.FileError(nil), c.fileErrors...),
		CountsBySeverity: make(map[string]int),
		CountsByType:     make(map[string]int),
	}
	if !c.startedAt.IsZero() && !c.finishedAt.IsZero() {
		rep.DurationMS = c.finishedAt.Sub(c.startedAt).Milliseconds()
	}
	for _, f := range c.findings {
		rep.CountsBySeverity[string(f.Severity)]++
		rep.CountsByType[f.VulnerabilityType]++
	}

	if len(c.practices) > 0 {
		names := make([]string, 0, len(c.practices))
		for name := range c.practices {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rep.SafePractices = append(rep.SafePractices, model.SafePractice{
				Practice: name,
				Count:    c.practices[name],
			})
		}
	}
	return rep
}

// Cleanup releases session state. It refuses while a scan is in flight.
func (c *Coordinator) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusRunning || c.status == StatusPaused {
		return fmt.Errorf("cannot clean up while scan is %s", c.status)
	}
	c.cfg = config.Scan{}
	c.detectors = nil
	c.files = nil
	c.sessionID = ""
	c.status = StatusIdle
	c.stopping = false
	c.exhausted = false
	c.processed = 0
	c.findings = nil
	c.fileErrors = nil
	c.practices = make(map[string]int)
	c.startedAt = time.Time{}
	c.finishedAt = time.Time{}
	c.errMsg = ""
	c.done = nil
	return nil
}
