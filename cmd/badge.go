package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/badge"
	"vigil/internal/model"
	"vigil/internal/safefile"
)

var (
	badgeLabel string
	badgeStyle string
	badgeSVG   string
)

var badgeCmd = &cobra.Command{
	Use:   "badge <report.json>",
	Short: "Generate a status badge from a scan report",
	Args:  cobra.ExactArgs(1),
	RunE:  runBadge,
}

func init() {
	badgeCmd.Flags().StringVar(&badgeLabel, "label", "vigil", "badge label text")
	badgeCmd.Flags().StringVar(&badgeStyle, "style", "flat", "badge style: flat or flat-square")
	badgeCmd.Flags().StringVar(&badgeSVG, "svg", "", "write an SVG badge to this path instead of shields JSON on stdout")
	rootCmd.AddCommand(badgeCmd)
}

func runBadge(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	var rep model.ScanReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return fmt.Errorf("parse report: %w", err)
	}

	grade, color := badge.Grade(&rep)
	if badgeSVG != "" {
		svg := badge.RenderSVG(badgeLabel, grade, color, badge.ParseStyle(badgeStyle))
		if !strings.HasSuffix(svg, "\n") {
			svg += "\n"
		}
		return safefile.WriteFileAtomic(badgeSVG, []byte(svg), 0o644)
	}
	fmt.Println(badge.ShieldsJSON(badgeLabel, grade, color))
	return nil
}
