package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/rules"
)

var rulesCategory string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the loaded detection rules",
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesCategory, "category", "", "show the rules of one category")
	rulesCmd.Flags().StringVar(&scanRulesDir, "rules-dir", "", "directory of additional YAML rule packs")
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	reg := rules.Load(log)
	if scanRulesDir != "" {
		if err := reg.LoadDir(scanRulesDir, log); err != nil {
			return fmt.Errorf("load rule packs: %w", err)
		}
	}

	if rulesCategory != "" {
		ruleSet := reg.RulesForCategory(rulesCategory)
		if len(ruleSet) == 0 {
			return fmt.Errorf("unknown category %q", rulesCategory)
		}
		for _, r := range ruleSet {
			fmt.Printf("%-24s %-8s %.2f  %s\n", r.ID, r.Severity, r.Confidence, r.Description)
		}
		return nil
	}

	for _, name := range reg.Categories() {
		fmt.Printf("%-20s %d rule(s)\n", name, len(reg.RulesForCategory(name)))
	}
	fmt.Printf("\n%d rule(s) total\n", reg.Len())
	return nil
}
