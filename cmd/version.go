package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vigil version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("vigil", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
