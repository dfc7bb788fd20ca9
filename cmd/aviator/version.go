package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zoobzio/aviator"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of aviator",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aviator version %s\n", aviator.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
