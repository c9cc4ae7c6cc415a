package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"vigil/internal/config"
	"vigil/internal/detect"
	"vigil/internal/model"
	"vigil/internal/progress"
	"vigil/internal/report"
	"vigil/internal/rules"
	"vigil/internal/safefile"
	"vigil/internal/scanner"
	"vigil/internal/suppress"
	"vigil/internal/tui"
)

var (
	scanWorkers    int
	scanCategories []string
	scanRulesDir   string
	scanFormat     string
	scanOut        string
	scanFailOn     string
	scanTUI        bool
	scanNoSuppress bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path...]",
	Short: "Scan one or more paths for vulnerabilities",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "number of concurrent scan workers (default from config)")
	scanCmd.Flags().StringSliceVar(&scanCategories, "category", nil, "restrict scanning to the named categories")
	scanCmd.Flags().StringVar(&scanRulesDir, "rules-dir", "", "directory of additional YAML rule packs")
	scanCmd.Flags().StringVar(&scanFormat, "format", "human", "output format: human, json, or sarif")
	scanCmd.Flags().StringVarP(&scanOut, "out", "o", "", "write the report to a file instead of stdout")
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "", "exit non-zero when a finding meets this severity (critical, high, medium, low)")
	scanCmd.Flags().BoolVar(&scanTUI, "tui", false, "show interactive progress (requires a terminal)")
	scanCmd.Flags().BoolVar(&scanNoSuppress, "no-suppress", false, "report suppressed findings as active")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(args)
	if err != nil {
		return err
	}

	reg := rules.Load(log)
	if scanRulesDir != "" {
		if err := reg.LoadDir(scanRulesDir, log); err != nil {
			return fmt.Errorf("load rule packs: %w", err)
		}
	}

	profile := detect.Target(args[0])
	if profile.Type != "" {
		log.Infow("target detected", "type", profile.Type, "name", profile.Name, "version", profile.Version)
	}

	var events chan progress.Event
	var sink progress.Sink
	useTUI := scanTUI && isatty.IsTerminal(os.Stdout.Fd())
	if useTUI {
		events = make(chan progress.Event, 256)
		sink = progress.NewChannelSink(events)
	} else if verbose {
		sink = progress.NewPlainSink(os.Stderr)
	} else {
		sink = progress.NoopSink{}
	}

	coord := scanner.New(reg, log, sink)
	if err := coord.Initialize(cfg); err != nil {
		return err
	}
	if err := coord.Start(cmd.Context()); err != nil {
		return err
	}

	if useTUI {
		go func() {
			_ = coord.Wait(context.Background())
			close(events)
		}()
		if err := tui.Run(tui.Options{Events: events}); err != nil {
			log.Warnw("tui aborted", "error", err)
		}
	}
	if err := coord.Wait(cmd.Context()); err != nil {
		return err
	}

	rep := coord.Report()
	rep.TargetType = profile.Type
	rep.TargetLabel = strings.TrimSpace(strings.Join([]string{profile.Name, profile.Version}, " "))

	if !scanNoSuppress {
		applySuppressions(rep, args[0])
	}

	if err := emitReport(rep); err != nil {
		return err
	}

	if scanFailOn != "" {
		floor := model.Severity(strings.ToLower(scanFailOn))
		if !model.ValidSeverity(floor) {
			return fmt.Errorf("invalid --fail-on severity %q", scanFailOn)
		}
		if report.Threshold(rep, floor) {
			return fmt.Errorf("findings at or above %s severity", floor)
		}
	}
	if rep.Status == string(scanner.StatusError) {
		return fmt.Errorf("scan ended with error: %s", rep.Error)
	}
	return nil
}

func buildScanConfig(targets []string) (config.Scan, error) {
	file, err := config.Load()
	if err != nil {
		return config.Scan{}, err
	}
	cfg, err := file.Apply(config.Defaults())
	if err != nil {
		return config.Scan{}, err
	}
	cfg.TargetPaths = targets
	if scanWorkers > 0 {
		cfg.Workers = scanWorkers
	}
	if len(scanCategories) > 0 {
		cfg.ActiveCategories = scanCategories
	}
	if scanRulesDir == "" {
		scanRulesDir = file.RulesDir
	}
	return cfg, nil
}

// applySuppressions partitions the report findings using the suppressions
// file at the scan root and inline annotations in flagged files.
func applySuppressions(rep *model.ScanReport, root string) {
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		root = filepath.Dir(root)
	}
	fileRules, err := suppress.Load(suppress.DefaultPath(root))
	if err != nil {
		log.Warnw("suppressions file ignored", "error", err)
	}

	seen := make(map[string]struct{})
	var paths []string
	for _, f := range rep.Findings {
		if _, ok := seen[f.File]; !ok {
			seen[f.File] = struct{}{}
			paths = append(paths, f.File)
		}
	}
	sort.Strings(paths)
	annotations := suppress.ScanFiles(paths)

	active, suppressed := suppress.Apply(rep.Findings, fileRules, annotations)
	rep.Findings = active
	rep.Suppressed = suppressed
	rep.SuppressedCount = len(suppressed)
	for k := range rep.CountsBySeverity {
		delete(rep.CountsBySeverity, k)
	}
	for k := range rep.CountsByType {
		delete(rep.CountsByType, k)
	}
	for _, f := range active {
		rep.CountsBySeverity[string(f.Severity)]++
		rep.CountsByType[f.VulnerabilityType]++
	}
}

func emitReport(rep *model.ScanReport) error {
	switch strings.ToLower(scanFormat) {
	case "human", "":
		out := report.FormatHuman(rep, verbose)
		if scanOut != "" {
			return safefile.WriteFileAtomic(scanOut, []byte(stripANSI(out)), 0o600)
		}
		fmt.Print(out)
		return nil
	case "json":
		if scanOut != "" {
			return report.WriteJSON(scanOut, rep)
		}
		s, err := report.FormatJSON(rep)
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	case "sarif":
		if scanOut == "" {
			scanOut = "vigil.sarif"
		}
		if err := report.WriteSARIF(scanOut, rep); err != nil {
			return err
		}
		log.Infow("sarif report written", "path", scanOut)
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected human, json, or sarif)", scanFormat)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
