package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/fix"
	"vigil/internal/model"
	"vigil/internal/rules"
)

var (
	fixReportPath string
	fixFindingID  string
	fixDryRun     bool
	fixBackupRoot string
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Apply the suggested rewrite for one finding, with backup",
	RunE:  runFix,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <backup-id>",
	Short: "Restore the files recorded in a fix backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runRollback,
}

func init() {
	fixCmd.Flags().StringVar(&fixReportPath, "report", "", "JSON scan report containing the finding")
	fixCmd.Flags().StringVar(&fixFindingID, "finding", "", "ID of the finding to fix")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "show the change without writing it")
	fixCmd.Flags().StringVar(&fixBackupRoot, "backup-dir", "", "backup directory (default .vigil/backups next to the report)")
	_ = fixCmd.MarkFlagRequired("report")
	_ = fixCmd.MarkFlagRequired("finding")

	rollbackCmd.Flags().StringVar(&fixBackupRoot, "backup-dir", filepath.Join(".vigil", "backups"), "backup directory")
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(rollbackCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(fixReportPath)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	var rep model.ScanReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return fmt.Errorf("parse report: %w", err)
	}

	finding, ok := findByID(&rep, fixFindingID)
	if !ok {
		return fmt.Errorf("finding %q not present in report", fixFindingID)
	}

	reg := rules.Load(log)
	dets, err := detectorsFor(reg, []string{finding.VulnerabilityType})
	if err != nil {
		return err
	}
	analysis := dets[0].Analyze(finding.Code, finding.File)

	backupRoot := fixBackupRoot
	if backupRoot == "" {
		backupRoot = filepath.Join(filepath.Dir(fixReportPath), ".vigil", "backups")
	}
	engine := fix.New(fix.Options{BackupRoot: backupRoot, DryRun: fixDryRun}, log)

	res := engine.Execute(finding, analysis)
	if !res.Success {
		return fmt.Errorf("fix refused: %s", res.ErrorMessage)
	}
	for _, action := range res.ActionsTaken {
		fmt.Println(action)
	}
	for _, c := range res.ChangesMade {
		fmt.Printf("%s:%d\n  - %s\n  + %s\n", c.File, c.Line, strings.TrimSpace(c.Original), strings.TrimSpace(c.Suggested))
	}
	if res.BackupID != "" {
		fmt.Printf("backup: %s\n", res.BackupID)
	}
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	engine := fix.New(fix.Options{BackupRoot: fixBackupRoot}, log)
	if err := engine.Rollback(args[0]); err != nil {
		return err
	}
	fmt.Printf("backup %s restored\n", args[0])
	return nil
}

func findByID(rep *model.ScanReport, id string) (model.Finding, bool) {
	for _, f := range rep.Findings {
		if f.ID == id {
			return f, true
		}
	}
	for _, f := range rep.Suppressed {
		if f.ID == id {
			return f, true
		}
	}
	return model.Finding{}, false
}
