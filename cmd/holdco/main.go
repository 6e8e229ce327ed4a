// Command holdco runs the holding-company simulation: headless autopilot
// games, deterministic pipeline listings and an HTTP server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/holdco/internal/config"
)

func main() {
	var (
		cfgPath string
		cfg     config.Config
	)

	root := &cobra.Command{
		Use:          "holdco",
		Short:        "Holding company simulation engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg = loaded
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			}))
			slog.SetDefault(logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "holdco.yaml", "path to YAML config")

	root.AddCommand(
		newSimulateCmd(&cfg),
		newPipelineCmd(&cfg),
		newServeCmd(&cfg),
		newGamesCmd(&cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
