package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Corphon/Chronicle/internal/app"
	"github.com/Corphon/Chronicle/internal/config"
	"github.com/Corphon/Chronicle/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Chronicle is an infinite choose-your-own-adventure engine",
	Long:  `Chronicle plays an AI-narrated fantasy adventure in the terminal, sharing saves and settings with the web server.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Print log records to stderr")
}

// openApp loads the configuration and wires the services. Logging is
// silenced unless --verbose is set.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	utils.GetLogger().Enable(verbose)

	return app.New(cfg)
}
