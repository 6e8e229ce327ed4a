package main

import (
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/holdco/internal/api"
	"github.com/talgya/holdco/internal/autopilot"
	"github.com/talgya/holdco/internal/config"
	"github.com/talgya/holdco/internal/engine"
	"github.com/talgya/holdco/internal/llm"
	"github.com/talgya/holdco/internal/persistence"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var (
		fresh bool
		auto  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a game over HTTP, resuming the last saved one",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			slog.Info("database opened", "path", cfg.DBPath)

			g, err := resumeOrStart(db, cfg, fresh)
			if err != nil {
				return err
			}

			client := llm.NewClient(cfg.AnthropicKey)
			if client.Enabled() {
				slog.Info("narrative service enabled")
			} else {
				slog.Info("ANTHROPIC_API_KEY not set, using local narrative")
			}
			if cfg.AdminKey == "" {
				slog.Warn("HOLDCO_ADMIN_KEY not set, admin POST endpoints will be disabled")
			}

			srv := api.New(g, db, client, cfg.AdminKey)
			srv.Save()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if auto {
				clock := engine.NewClock()
				clock.Interval = time.Duration(cfg.TickSeconds) * time.Second
				clock.SaveEvery = uint64(max(cfg.SaveEvery, 1))
				clock.OnTick = func(uint64) bool {
					more := true
					srv.Tick(func(g *engine.Game) engine.Result {
						more = autopilot.Step(g)
						return engine.Result{OK: true}
					})
					return more
				}
				clock.OnSave = func(tick uint64) {
					srv.Save()
					slog.Debug("autosaved", "tick", tick)
				}
				go clock.Run(ctx)
			}

			err = srv.Start(ctx, ":"+cfg.Port)
			srv.Save()
			slog.Info("shutdown complete")
			return err
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "start a new game instead of resuming")
	cmd.Flags().BoolVar(&auto, "autopilot", false, "let the autopilot play on the clock")
	return cmd
}

func resumeOrStart(db *persistence.DB, cfg *config.Config, fresh bool) (*engine.Game, error) {
	if !fresh {
		id, err := db.LastGameID()
		if err != nil && !errors.Is(err, persistence.ErrGameNotFound) {
			return nil, err
		}
		if err == nil {
			g, err := db.LoadGame(id)
			if err != nil {
				return nil, err
			}
			slog.Info("resumed game", "game", id, "round", g.State.Round, "phase", g.State.Phase)
			return g, nil
		}
	}
	g := engine.NewGame(gameOptions(cfg))
	slog.Info("new game", "game", g.State.GameID, "seed", cfg.Seed, "rounds", cfg.Rounds, "difficulty", cfg.Difficulty)
	return g, nil
}
