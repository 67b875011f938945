package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetops/config"
)

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Print the effective alert thresholds and allocation settings",
	RunE:  printThresholds,
}

func init() {
	rootCmd.AddCommand(thresholdsCmd)
}

func printThresholds(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := map[string]any{
		"thresholds": cfg.Thresholds,
		"allocation": cfg.Allocation,
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
