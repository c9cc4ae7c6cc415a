// Package fix applies advisory secure-code rewrites to scanned files. Every
// write is preceded by a backup with a manifest, and any applied change can
// be rolled back from that backup. The rewrites come from detector analysis
// suggestions and are heuristic substitutions, so the engine is conservative:
// a finding that does not clearly qualify is refused, never patched on a
// guess.
package fix

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vigil/internal/model"
	"vigil/internal/safefile"
)

const defaultMinConfidence = 0.8

type Options struct {
	// BackupRoot is where per-fix backup directories are created.
	BackupRoot string
	// MinConfidence is the eligibility floor; findings below it are refused.
	MinConfidence float64
	// DryRun computes and reports changes without touching the target file.
	DryRun bool
}

type Engine struct {
	opts Options
	log  *zap.SugaredLogger
}

func New(opts Options, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = defaultMinConfidence
	}
	if strings.TrimSpace(opts.BackupRoot) == "" {
		opts.BackupRoot = filepath.Join(".vigil", "backups")
	}
	return &Engine{opts: opts, log: log}
}

// Eligible reports whether a finding qualifies for an automated fix, and the
// refusal reason when it does not.
func (e *Engine) Eligible(f model.Finding, a model.Analysis) (bool, string) {
	if f.File == "" || f.Line <= 0 {
		return false, "finding has no usable file location"
	}
	if f.Confidence < e.opts.MinConfidence {
		return false, fmt.Sprintf("confidence %.2f below fix floor %.2f", f.Confidence, e.opts.MinConfidence)
	}
	if f.Suppressed {
		return false, "finding is suppressed"
	}
	if pickSuggestion(f, a) == nil {
		return false, "no applicable rewrite suggestion for the flagged line"
	}
	return true, ""
}

// Execute backs up the target file and applies the first suggestion whose
// original text appears on the flagged line. Failures are reported in the
// result, never by panicking halfway through a write.
func (e *Engine) Execute(f model.Finding, a model.Analysis) model.FixResult {
	res := model.FixResult{FindingID: f.ID}

	if ok, reason := e.Eligible(f, a); !ok {
		res.ErrorMessage = reason
		return res
	}

	raw, err := os.ReadFile(f.File)
	if err != nil {
		res.ErrorMessage = fmt.Sprintf("read target: %v", err)
		return res
	}
	info, err := os.Stat(f.File)
	if err != nil {
		res.ErrorMessage = fmt.Sprintf("stat target: %v", err)
		return res
	}

	lines := strings.Split(string(raw), "\n")
	if f.Line > len(lines) {
		res.ErrorMessage = fmt.Sprintf("line %d beyond end of file (%d lines)", f.Line, len(lines))
		return res
	}

	sug := pickSuggestion(f, a)
	original := lines[f.Line-1]
	if !strings.Contains(original, sug.Original) {
		res.ErrorMessage = "flagged line no longer contains the code to rewrite"
		return res
	}
	patched := strings.Replace(original, sug.Original, sug.Suggested, 1)

	change := model.FixChange{
		File:      f.File,
		Line:      f.Line,
		Original:  original,
		Suggested: patched,
	}
	if e.opts.DryRun {
		res.Success = true
		res.ChangesMade = []model.FixChange{change}
		res.ActionsTaken = []string{"dry run: no files written"}
		return res
	}

	backupID, err := e.backup(f, raw, info.Mode())
	if err != nil {
		res.ErrorMessage = fmt.Sprintf("create backup: %v", err)
		return res
	}
	res.BackupID = backupID
	res.ActionsTaken = append(res.ActionsTaken, "backed up "+f.File)

	lines[f.Line-1] = patched
	if err := safefile.WriteFileAtomic(f.File, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		res.ErrorMessage = fmt.Sprintf("write patched file: %v", err)
		return res
	}

	e.log.Infow("fix applied", "finding", f.ID, "file", f.File, "line", f.Line, "backup", backupID)
	res.Success = true
	res.ActionsTaken = append(res.ActionsTaken, fmt.Sprintf("rewrote line %d", f.Line))
	res.ChangesMade = []model.FixChange{change}
	return res
}

// Rollback restores the file recorded in a backup manifest. The stored copy
// is checksummed before it overwrites anything.
func (e *Engine) Rollback(backupID string) error {
	dir := filepath.Join(e.opts.BackupRoot, backupID)
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return fmt.Errorf("read backup manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse backup manifest: %w", err)
	}

	for _, mf := range m.Files {
		copyPath := filepath.Join(dir, mf.Copy)
		saved, err := os.ReadFile(copyPath)
		if err != nil {
			return fmt.Errorf("read backup copy: %w", err)
		}
		if checksum(saved) != mf.SHA256 {
			return fmt.Errorf("backup copy %s failed checksum verification", mf.Copy)
		}
		perm := os.FileMode(mf.Mode)
		if perm == 0 {
			perm = 0o644
		}
		if err := safefile.WriteFileAtomic(mf.Path, saved, perm); err != nil {
			return fmt.Errorf("restore %s: %w", mf.Path, err)
		}
		e.log.Infow("file restored", "file", mf.Path, "backup", backupID)
	}
	return nil
}

type manifest struct {
	BackupID  string         `json:"backup_id"`
	CreatedAt time.Time      `json:"created_at"`
	FindingID string         `json:"finding_id"`
	Files     []manifestFile `json:"files"`
}

type manifestFile struct {
	Path   string `json:"path"`
	Copy   string `json:"copy"`
	SHA256 string `json:"sha256"`
	Mode   uint32 `json:"mode"`
}

func (e *Engine) backup(f model.Finding, raw []byte, mode os.FileMode) (string, error) {
	backupID := time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
	dir, err := safefile.EnsureFreshDir(filepath.Join(e.opts.BackupRoot, backupID), 0o700)
	if err != nil {
		return "", err
	}

	copyName := filepath.Base(f.File)
	if err := safefile.WriteFileAtomic(filepath.Join(dir, copyName), raw, 0o600); err != nil {
		return "", err
	}

	m := manifest{
		BackupID:  backupID,
		CreatedAt: time.Now().UTC(),
		FindingID: f.ID,
		Files: []manifestFile{{
			Path:   f.File,
			Copy:   copyName,
			SHA256: checksum(raw),
			Mode:   uint32(mode.Perm()),
		}},
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := safefile.WriteFileAtomic(filepath.Join(dir, "manifest.json"), data, 0o600); err != nil {
		return "", err
	}
	return backupID, nil
}

// pickSuggestion returns the first non-advisory analysis suggestion whose
// original text actually occurs in the matched code.
func pickSuggestion(f model.Finding, a model.Analysis) *model.Suggestion {
	for i := range a.Suggestions {
		s := &a.Suggestions[i]
		if s.Advisory || s.Original == "" || s.Suggested == "" {
			continue
		}
		if strings.Contains(f.Code, s.Original) {
			return s
		}
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
