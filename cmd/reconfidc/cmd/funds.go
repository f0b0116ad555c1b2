package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pedritopng/recon-fidc/internal/parsers"
)

// fundsCmd lists the fund layouts the static registry knows about.
var fundsCmd = &cobra.Command{
	Use:   "funds",
	Short: "List the supported fund report layouts",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Supported fund layouts:")
		for _, fund := range parsers.AvailableFundTypes() {
			fmt.Printf("  %-18s %s\n", fund, fund.DisplayName())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fundsCmd)
}
