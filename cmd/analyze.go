package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/detector"
	"vigil/internal/rules"
)

var analyzeCategories []string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Deep-dive a single file: findings plus risk analysis per match",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&analyzeCategories, "category", nil, "restrict analysis to the named categories")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read target: %w", err)
	}
	content := string(raw)

	reg := rules.Load(log)
	dets, err := detectorsFor(reg, analyzeCategories)
	if err != nil {
		return err
	}

	total := 0
	for _, d := range dets {
		for _, f := range d.Detect(content, args[0]) {
			if d.IsFalsePositive(f, content) {
				continue
			}
			total++
			a := d.Analyze(f.Code, f.File)

			fmt.Printf("%s:%d  %s/%s  severity=%s confidence=%.2f\n", f.File, f.Line, f.VulnerabilityType, f.Subtype, f.Severity, f.Confidence)
			fmt.Printf("  %s\n", f.Description)
			fmt.Printf("  risk: %s\n", a.RiskLevel)
			for _, v := range a.AttackVectors {
				fmt.Printf("  vector: %s\n", v)
			}
			for _, m := range a.MitigationSteps {
				fmt.Printf("  mitigate: %s\n", m)
			}
			for _, s := range a.Suggestions {
				marker := ""
				if s.Advisory {
					marker = "  (advisory, not auto-fixable)"
				}
				fmt.Printf("  rewrite: %s -> %s%s\n", s.Original, s.Suggested, marker)
			}
			fmt.Println()
		}
		if practices := d.CheckSafePractices(content); len(practices) > 0 {
			names := make([]string, 0, len(practices))
			for _, p := range practices {
				names = append(names, fmt.Sprintf("%s x%d", p.Practice, p.Count))
			}
			fmt.Printf("safe practices (%s): %s\n", d.Name(), strings.Join(names, ", "))
		}
	}
	if total == 0 {
		fmt.Println("No findings.")
	}
	return nil
}

func detectorsFor(reg *rules.Registry, categories []string) ([]detector.Detector, error) {
	boosts := detector.DefaultBoosts()
	if len(categories) == 0 {
		return []detector.Detector{
			detector.NewSQLInjection(reg, boosts),
			detector.NewXSS(reg, boosts),
			detector.NewGeneral(reg, nil, boosts),
		}, nil
	}

	known := make(map[string]struct{})
	for _, name := range reg.Categories() {
		known[name] = struct{}{}
	}
	var dets []detector.Detector
	var general []string
	for _, raw := range categories {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		switch name {
		case rules.CategorySQLInjection:
			dets = append(dets, detector.NewSQLInjection(reg, boosts))
		case rules.CategoryXSS:
			dets = append(dets, detector.NewXSS(reg, boosts))
		default:
			general = append(general, name)
		}
	}
	if len(general) > 0 {
		dets = append(dets, detector.NewGeneral(reg, general, boosts))
	}
	return dets, nil
}
