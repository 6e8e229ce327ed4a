package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/holdco/internal/config"
)

func newGamesCmd(cfg *config.Config) *cobra.Command {
	var (
		limit   int
		history string
	)
	cmd := &cobra.Command{
		Use:   "games",
		Short: "List saved games, or one game's round history",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if history != "" {
				rows, err := db.RoundHistory(history)
				if err != nil {
					return err
				}
				accent.Println("Year  Opcos  EBITDA        Cash          Debt          Distress    Event")
				for _, r := range rows {
					fmt.Printf("%4d  %5d  %-12s  %-12s  %-12s  %-10s  %s\n",
						r.Round, r.Opcos, money(r.Ebitda), money(r.Cash), money(r.TotalDebt), r.Distress, r.EventKind)
				}
				return nil
			}

			games, err := db.ListGames(limit)
			if err != nil {
				return err
			}
			if len(games) == 0 {
				warn.Println("no saved games")
				return nil
			}
			for _, s := range games {
				status := fmt.Sprintf("year %d/%d %s", s.Round, s.MaxRounds, s.Phase)
				if s.GameOver {
					status = "finished, grade " + gradeColor(s.Grade).Sprint(s.Grade)
				}
				fmt.Printf("%s  %-20s seed %-6d %-7s %s\n", s.ID, s.HoldcoName, s.Seed, s.Difficulty, status)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max games to list")
	cmd.Flags().StringVar(&history, "history", "", "game id to show round history for")
	return cmd
}
