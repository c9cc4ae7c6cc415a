// Package intake enumerates the files a scan session will read. It filters
// by extension and directory, skips oversized files up front, and returns a
// deterministic, sorted file list.
package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TargetFile is one file queued for scanning.
type TargetFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Collection is the result of enumerating all target paths.
type Collection struct {
	Files        []TargetFile
	SkippedLarge int
	SkippedOther int
}

var skipDirNames = map[string]struct{}{
	".git": {}, ".svn": {}, ".vigil": {}, "node_modules": {}, "vendor": {},
	"dist": {}, "build": {}, ".idea": {}, ".vscode": {},
}

// scanExts are the source extensions worth matching signatures against.
var scanExts = map[string]struct{}{
	".php": {}, ".phtml": {}, ".inc": {}, ".php5": {}, ".php7": {},
	".js": {}, ".html": {}, ".htm": {}, ".twig": {},
}

// Collect walks every target path and returns the scannable files. A target
// that is itself a file is accepted regardless of extension; directory walks
// apply the extension filter. Files over maxFileSize are counted and
// skipped, never read.
func Collect(targets []string, maxFileSize int64) (Collection, error) {
	var col Collection
	seen := make(map[string]struct{})

	for _, target := range targets {
		abs, err := filepath.Abs(strings.TrimSpace(target))
		if err != nil {
			return Collection{}, fmt.Errorf("resolve target %s: %w", target, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return Collection{}, fmt.Errorf("stat target %s: %w", target, err)
		}

		if !info.IsDir() {
			addFile(&col, seen, abs, info.Size(), maxFileSize)
			continue
		}

		walkErr := filepath.Walk(abs, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				col.SkippedOther++
				return nil
			}
			if fi.IsDir() {
				if _, skip := skipDirNames[fi.Name()]; skip {
					return filepath.SkipDir
				}
				return nil
			}
			if fi.Mode()&os.ModeSymlink != 0 {
				col.SkippedOther++
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if _, ok := scanExts[ext]; !ok {
				col.SkippedOther++
				return nil
			}
			addFile(&col, seen, path, fi.Size(), maxFileSize)
			return nil
		})
		if walkErr != nil {
			return Collection{}, fmt.Errorf("walk target %s: %w", target, walkErr)
		}
	}

	sort.Slice(col.Files, func(i, j int) bool { return col.Files[i].Path < col.Files[j].Path })
	return col, nil
}

func addFile(col *Collection, seen map[string]struct{}, path string, size, maxFileSize int64) {
	if _, dup := seen[path]; dup {
		return
	}
	seen[path] = struct{}{}
	if maxFileSize > 0 && size > maxFileSize {
		col.SkippedLarge++
		return
	}
	col.Files = append(col.Files, TargetFile{Path: path, Size: size})
}
