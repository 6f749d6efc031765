// Package report renders solver and backtest results for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/krispyensign/mutantstopbot/internal/solver"
)

// Styles.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// pnlStyle colors a P&L figure green for gains and red for losses.
func pnlStyle(v float64) lipgloss.Style {
	if v < 0 {
		return lossStyle
	}
	return gainStyle
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-14s", label)), value)
}

// Result renders a single backtest result.
func Result(r *solver.BacktestResult) string {
	if r == nil {
		return labelStyle.Render("no viable configuration") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(r.Instrument) + "\n")
	row(&b, "edge", valueStyle.Render(r.Config.Edge.String()))
	row(&b, "source", valueStyle.Render(r.Config.SourceColumn))
	row(&b, "signal buy", valueStyle.Render(r.Config.SignalBuyColumn))
	row(&b, "signal exit", valueStyle.Render(r.Config.SignalExitColumn))
	row(&b, "exec", valueStyle.Render(r.Config.ExecColumn))
	row(&b, "take profit", valueStyle.Render(fmt.Sprintf("%.2f", r.Config.TakeProfit)))
	row(&b, "stop loss", valueStyle.Render(fmt.Sprintf("%.2f", r.Config.StopLoss)))
	row(&b, "exit total", pnlStyle(r.ExitTotal).Render(fmt.Sprintf("%+.5f", r.ExitTotal)))
	row(&b, "win ratio", valueStyle.Render(fmt.Sprintf("%.2f (%dW/%dL)", r.Ratio, r.Wins, r.Losses)))
	return b.String()
}

// Triad renders the holdout triad of one segmented run.
func Triad(tr solver.Triad) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("holdout") + "\n")
	row(&b, "raw", pnlStyle(tr.Raw).Render(fmt.Sprintf("%+.5f", tr.Raw)))
	row(&b, "refined", pnlStyle(tr.Refined).Render(fmt.Sprintf("%+.5f", tr.Refined)))
	row(&b, "perfect", pnlStyle(tr.Perfect).Render(fmt.Sprintf("%+.5f", tr.Perfect)))
	return b.String()
}

// Summary renders one line per evaluated date plus the aggregate score:
// the mean of the raw and perfect holdout totals, accumulated over dates.
func Summary(dates []string, triads []solver.Triad) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("summary") + "\n")

	score := 0.0
	for i, tr := range triads {
		date := ""
		if i < len(dates) {
			date = dates[i]
		}
		score += (tr.Raw + tr.Perfect) / 2
		fmt.Fprintf(&b, "  %s raw %s refined %s perfect %s\n",
			labelStyle.Render(fmt.Sprintf("%-12s", date)),
			pnlStyle(tr.Raw).Render(fmt.Sprintf("%+.5f", tr.Raw)),
			pnlStyle(tr.Refined).Render(fmt.Sprintf("%+.5f", tr.Refined)),
			pnlStyle(tr.Perfect).Render(fmt.Sprintf("%+.5f", tr.Perfect)))
	}
	row(&b, "score", pnlStyle(score).Render(fmt.Sprintf("%+.5f", score)))
	return b.String()
}
