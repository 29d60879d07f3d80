package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Corphon/Chronicle/internal/app"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of chronicle",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chronicle version %s\n", app.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
