package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Corphon/Chronicle/internal/mapgen"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Render the journey of the saved adventure as SVG",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer application.Cleanup()

		state, err := application.Game().LoadSaved(cmd.Context())
		if err != nil {
			return fmt.Errorf("load saved adventure: %w", err)
		}
		svg := mapgen.RenderSVG(state.LocationHistory)

		out, _ := cmd.Flags().GetString("out")
		if out == "" || out == "-" {
			_, err = fmt.Fprint(cmd.OutOrStdout(), svg)
			return err
		}
		return os.WriteFile(out, []byte(svg), 0644)
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().StringP("out", "o", "", "Write the SVG to this file instead of stdout")
}
