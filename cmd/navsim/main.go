package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/Garsondee/Terrain-Sense/internal/sim"
	"github.com/Garsondee/Terrain-Sense/internal/viewer"
	"github.com/Garsondee/Terrain-Sense/internal/world"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var scenarioPath string
	var logLevel string
	var shuffle bool
	var seed int64

	cmd := &cobra.Command{
		Use:          "navsim",
		Short:        "Watch an agent patrol a terrain and pursue treasures with A*",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			logger := log.NewWithOptions(os.Stderr, log.Options{
				Level:           level,
				ReportTimestamp: true,
				Prefix:          "navsim",
			})

			opts := []sim.Option{sim.WithLogger(logger), sim.WithSeed(seed)}
			if scenarioPath != "" {
				sc, err := world.LoadScenario(scenarioPath)
				if err != nil {
					return err
				}
				opts = append(opts, sim.WithScenario(sc))
			}
			if shuffle {
				opts = append(opts, sim.WithShuffledPatrol())
			}

			g, err := viewer.New(opts...)
			if err != nil {
				return err
			}
			logger.Info("starting", "scenario", g.Sim().Scenario.Name, "treasures", len(g.Sim().Stage.Treasures()))

			ebiten.SetWindowTitle("Terrain Sense")
			ebiten.SetWindowSize(viewer.WindowSize())
			return ebiten.RunGame(g)
		},
	}
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario file (.yaml or .hjson); empty uses the built-in map")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "start the patrol at a random node")
	cmd.Flags().Int64Var(&seed, "seed", 1, "RNG seed for --shuffle")
	return cmd
}
