package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/holdco/internal/config"
	"github.com/talgya/holdco/internal/engine"
)

// pipelineAt plays a game with no allocation decisions up to round's
// allocate phase. The result depends only on the seed, so two players can
// compare the deals they were offered.
func pipelineAt(opts engine.Options, round int) (*engine.Game, error) {
	g := engine.NewGame(opts)
	for !g.State.GameOver {
		switch g.State.Phase {
		case engine.PhaseCollect:
			g.CollectAndAdvance()
		case engine.PhaseEvent:
			g.AdvanceToAllocate()
		case engine.PhaseAllocate:
			if g.State.Round == round {
				return g, nil
			}
			g.EndRound()
		case engine.PhaseRestructure:
			g.CompleteRestructuring()
		}
	}
	return nil, fmt.Errorf("game ended before round %d", round)
}

func newPipelineCmd(cfg *config.Config) *cobra.Command {
	var (
		seed       int64
		rounds     int
		difficulty string
		round      int
	)
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Print the deterministic deal pipeline for a seed and round",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyGameFlags(cmd, cfg, seed, rounds, difficulty); err != nil {
				return err
			}
			if round < 1 || round > cfg.Rounds {
				return fmt.Errorf("round must be 1-%d", cfg.Rounds)
			}
			g, err := pipelineAt(gameOptions(cfg), round)
			if err != nil {
				return err
			}
			accent.Printf("Seed %d, year %d: %d deals\n", cfg.Seed, round, len(g.State.Pipeline))
			for _, d := range g.State.Pipeline {
				printDeal(d)
			}
			if ev := g.State.CurrentEvent; ev != nil {
				fmt.Println()
				warn.Printf("Event: %s\n", ev.EffectText)
			}
			return nil
		},
	}
	bindGameFlags(cmd, &seed, &rounds, &difficulty)
	cmd.Flags().IntVar(&round, "round", 1, "round to list")
	return cmd
}
