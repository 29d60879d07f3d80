package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Corphon/Chronicle/internal/cli"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play an adventure in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cli.IsInteractive() {
			fmt.Fprintln(os.Stderr, "stdin is not a terminal; reading actions line by line")
		}

		application, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer application.Cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		render := cli.NewRenderer()
		if plain, _ := cmd.Flags().GetBool("plain"); plain {
			render = cli.PlainRenderer
		}

		session := cli.NewSession(application.Game(), os.Stdin, os.Stdout, render, application.Settings().Get().Language)
		return session.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Bool("plain", false, "Print narrative without markdown styling")

	rootCmd.RunE = playCmd.RunE
}
