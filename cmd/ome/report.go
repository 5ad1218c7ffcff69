package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helpfulengineering/matching-engine/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <report.yaml>",
	Short: "Render a saved match report as Markdown",
	Long: `Report reads a YAML report written by 'ome match --report' and renders
it as Markdown on stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := report.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Print(r.Markdown())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
