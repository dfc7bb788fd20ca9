package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aviator",
	Short: "Aviator keeps crash-game scenes in sync with a multiplier feed",
	Long: `Aviator polls a multiplier feed, eases each scene's displayed value toward
the latest target and relays the crash flag to connected scene clients.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "aviator.yaml", "Path to the configuration file")
}
