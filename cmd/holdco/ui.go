package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/talgya/holdco/internal/business"
	"github.com/talgya/holdco/internal/engine"
	"github.com/talgya/holdco/internal/finance"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

// money renders thousands of dollars.
func money(k int64) string {
	return "$" + humanize.Comma(k) + "K"
}

func distressColor(d finance.DistressLevel) *color.Color {
	switch d {
	case finance.DistressBreach:
		return danger
	case finance.DistressStressed, finance.DistressElevated:
		return warn
	}
	return success
}

func gradeColor(grade string) *color.Color {
	switch grade {
	case "S", "A":
		return success
	case "B", "C":
		return accent
	case "D":
		return warn
	}
	return danger
}

func printRounds(st *engine.GameState) {
	accent.Println("Year  Opcos  EBITDA        Cash          Debt          Distress")
	for _, r := range st.RoundHistory {
		fmt.Printf("%4d  %5d  %-12s  %-12s  %-12s  ", r.Round, r.Opcos, money(r.Ebitda), money(r.Cash), money(r.TotalDebt))
		distressColor(r.Distress).Println(r.Distress.String())
	}
}

func printScore(st *engine.GameState, sc engine.Score) {
	fmt.Println()
	accent.Printf("%s (seed %d, %s, %d rounds)\n", st.HoldcoName, st.Seed, st.Difficulty, sc.RoundsPlayed)
	neutral.Printf("  Enterprise value   %s\n", money(sc.EnterpriseValue))
	neutral.Printf("  Net debt           %s\n", money(sc.NetDebt))
	neutral.Printf("  Founder equity     %s (%.1f%% ownership)\n", money(sc.FounderEquity), sc.FounderOwnership*100)
	neutral.Printf("  Distributions      %s\n", money(sc.TotalDistributions))
	neutral.Printf("  Founder MOIC       %.2fx\n", sc.MOIC)
	fmt.Print("  Grade              ")
	gradeColor(sc.Grade).Println(sc.Grade)
	if sc.Bankrupt {
		danger.Println("  Bankrupt")
	}
}

func printDeal(d *business.Deal) {
	b := d.Business
	sector := business.SectorOrDefault(b.SectorID).Name
	fmt.Printf("%-10s %-32s %-24s ", d.ID, b.Name, sector)
	neutral.Printf("rev %-10s ebitda %-9s q%d ", money(b.Revenue), money(b.Ebitda), b.QualityRating)
	fmt.Printf("ask %-10s %s", money(d.EffectivePrice), heatLabel(d.Heat))
	if d.Source != "" {
		fmt.Printf(" [%s]", d.Source)
	}
	fmt.Println()
}

func heatLabel(h business.Heat) string {
	s := strings.ToUpper(string(h))
	switch h {
	case business.HeatContested:
		return danger.Sprint(s)
	case business.HeatHot, business.HeatWarm:
		return warn.Sprint(s)
	}
	return s
}
