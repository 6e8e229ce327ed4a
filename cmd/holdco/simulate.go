package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/talgya/holdco/internal/autopilot"
	"github.com/talgya/holdco/internal/config"
	"github.com/talgya/holdco/internal/engine"
	"github.com/talgya/holdco/internal/persistence"
)

func gameOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		Seed:       cfg.Seed,
		MaxRounds:  cfg.Rounds,
		Difficulty: engine.Difficulty(cfg.Difficulty),
		HoldcoName: cfg.HoldcoName,
	}
}

// bindGameFlags overrides config values with flags the user set.
func bindGameFlags(cmd *cobra.Command, seed *int64, rounds *int, difficulty *string) {
	cmd.Flags().Int64Var(seed, "seed", 0, "game seed (default from config)")
	cmd.Flags().IntVar(rounds, "rounds", 0, "game length: 10 or 20 (default from config)")
	cmd.Flags().StringVar(difficulty, "difficulty", "", "easy or normal (default from config)")
}

func applyGameFlags(cmd *cobra.Command, cfg *config.Config, seed int64, rounds int, difficulty string) error {
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("rounds") {
		cfg.Rounds = rounds
	}
	if cmd.Flags().Changed("difficulty") {
		cfg.Difficulty = difficulty
	}
	return cfg.Validate()
}

func openDB(path string) (*persistence.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return persistence.Open(path)
}

func newSimulateCmd(cfg *config.Config) *cobra.Command {
	var (
		seed       int64
		rounds     int
		difficulty string
		save       bool
		quiet      bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a full game with the autopilot and print the score",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyGameFlags(cmd, cfg, seed, rounds, difficulty); err != nil {
				return err
			}
			g := engine.NewGame(gameOptions(cfg))
			sc := autopilot.Play(g)

			if save {
				db, err := openDB(cfg.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.SaveGame(g.State); err != nil {
					return err
				}
				success.Printf("saved game %s to %s\n", g.State.GameID, cfg.DBPath)
			}
			if !quiet {
				printRounds(g.State)
			}
			printScore(g.State, sc)
			return nil
		},
	}
	bindGameFlags(cmd, &seed, &rounds, &difficulty)
	cmd.Flags().BoolVar(&save, "save", false, "persist the finished game")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the score")
	return cmd
}
