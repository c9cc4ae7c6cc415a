package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scan is the effective coordinator configuration after merging file layers
// and CLI flags.
type Scan struct {
	TargetPaths      []string
	ActiveCategories []string
	Workers          int
	MaxFileSize      int64
	PerFileTimeout   time.Duration
	MaxFindings      int

	BoostUserInput float64
	BoostKeyword   float64
}

// Defaults returns the stock configuration; target paths are the one field
// with no default.
func Defaults() Scan {
	return Scan{
		Workers:        4,
		MaxFileSize:    2 * 1024 * 1024,
		PerFileTimeout: 5 * time.Second,
		MaxFindings:    100000,
		BoostUserInput: 0.10,
		BoostKeyword:   0.05,
	}
}

// Validate checks required fields and ranges before a scan may start.
func (s Scan) Validate() error {
	if len(s.TargetPaths) == 0 {
		return errors.New("at least one target path is required")
	}
	for _, p := range s.TargetPaths {
		if strings.TrimSpace(p) == "" {
			return errors.New("target path cannot be empty")
		}
	}
	if s.Workers < 1 || s.Workers > 64 {
		return fmt.Errorf("workers must be between 1 and 64, got %d", s.Workers)
	}
	if s.MaxFileSize <= 0 {
		return errors.New("max file size must be > 0")
	}
	if s.PerFileTimeout <= 0 {
		return errors.New("per-file timeout must be > 0")
	}
	if s.MaxFindings <= 0 {
		return errors.New("max findings must be > 0")
	}
	if s.BoostUserInput < 0 || s.BoostUserInput > 1 {
		return fmt.Errorf("boost_user_input must be in [0,1], got %v", s.BoostUserInput)
	}
	if s.BoostKeyword < 0 || s.BoostKeyword > 1 {
		return fmt.Errorf("boost_keyword must be in [0,1], got %v", s.BoostKeyword)
	}
	return nil
}

// File mirrors the YAML config surface. Zero values mean "not set"; unknown
// keys are ignored by the YAML decoder.
type File struct {
	TargetPaths      []string `yaml:"target_paths,omitempty"`
	ActiveCategories []string `yaml:"active_categories,omitempty"`
	Workers          *int     `yaml:"workers,omitempty"`
	MaxFileSize      *int64   `yaml:"max_file_size,omitempty"`
	PerFileTimeout   string   `yaml:"per_file_timeout,omitempty"`
	MaxFindings      *int     `yaml:"max_findings,omitempty"`
	BoostUserInput   *float64 `yaml:"boost_user_input,omitempty"`
	BoostKeyword     *float64 `yaml:"boost_keyword,omitempty"`
	RulesDir         string   `yaml:"rules_dir,omitempty"`
}

// Load reads config from layered sources:
//  1. ~/.vigil/config.yaml (global)
//  2. ./.vigil/config.yaml (repo-local, takes precedence)
//
// Missing files are silently ignored.
func Load() (File, error) {
	var merged File

	home, _ := os.UserHomeDir()
	if home != "" {
		global, err := loadFile(filepath.Join(home, ".vigil", "config.yaml"))
		if err != nil {
			return File{}, fmt.Errorf("load global config: %w", err)
		}
		merged = merge(merged, global)
	}

	cwd, _ := os.Getwd()
	if cwd != "" {
		local, err := loadFile(filepath.Join(cwd, ".vigil", "config.yaml"))
		if err != nil {
			return File{}, fmt.Errorf("load local config: %w", err)
		}
		merged = merge(merged, local)
	}

	return merged, nil
}

// Apply overlays the file layer onto a Scan config and parses duration
// fields. Only set fields override.
func (f File) Apply(s Scan) (Scan, error) {
	if len(f.TargetPaths) > 0 {
		s.TargetPaths = f.TargetPaths
	}
	if len(f.ActiveCategories) > 0 {
		s.ActiveCategories = f.ActiveCategories
	}
	if f.Workers != nil {
		s.Workers = *f.Workers
	}
	if f.MaxFileSize != nil {
		s.MaxFileSize = *f.MaxFileSize
	}
	if f.PerFileTimeout != "" {
		d, err := time.ParseDuration(f.PerFileTimeout)
		if err != nil {
			return s, fmt.Errorf("parse per_file_timeout: %w", err)
		}
		s.PerFileTimeout = d
	}
	if f.MaxFindings != nil {
		s.MaxFindings = *f.MaxFindings
	}
	if f.BoostUserInput != nil {
		s.BoostUserInput = *f.BoostUserInput
	}
	if f.BoostKeyword != nil {
		s.BoostKeyword = *f.BoostKeyword
	}
	return s, nil
}

func loadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, err
	}
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return File{}, nil
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// merge applies overrides from b onto a. Set fields in b win.
func merge(a, b File) File {
	if len(b.TargetPaths) > 0 {
		a.TargetPaths = b.TargetPaths
	}
	if len(b.ActiveCategories) > 0 {
		a.ActiveCategories = b.ActiveCategories
	}
	if b.Workers != nil {
		a.Workers = b.Workers
	}
	if b.MaxFileSize != nil {
		a.MaxFileSize = b.MaxFileSize
	}
	if b.PerFileTimeout != "" {
		a.PerFileTimeout = b.PerFileTimeout
	}
	if b.MaxFindings != nil {
		a.MaxFindings = b.MaxFindings
	}
	if b.BoostUserInput != nil {
		a.BoostUserInput = b.BoostUserInput
	}
	if b.BoostKeyword != nil {
		a.BoostKeyword = b.BoostKeyword
	}
	if b.RulesDir != "" {
		a.RulesDir = b.RulesDir
	}
	return a
}
