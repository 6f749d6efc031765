package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Stats summarizes one simulated P&L path.
type Stats struct {
	// FinalTotal is the cumulative realized P&L at the end of the path.
	FinalTotal float64

	// MinTotal and MaxTotal are the path extremes of the cumulative total.
	MinTotal float64
	MaxTotal float64

	// Wins and Losses count exit events with strictly positive and strictly
	// negative realized value; zero-valued exits count toward neither.
	Wins   int
	Losses int

	// Ratio is Wins/(Wins+Losses), or 0 when no exits occurred.
	Ratio float64
}

// Reduce computes summary statistics for an exit-value/exit-total path. The
// boolean is false when the candidate is rejected: the path is empty, the
// final total is non-positive (or indeterminate), or the peak gain never
// exceeded the worst drawdown. Rejection is expected, not an error; the
// error is reserved for misaligned columns, which indicate malformed input.
func Reduce(exitValue, exitTotal []float64) (Stats, bool, error) {
	if len(exitValue) != len(exitTotal) {
		return Stats{}, false, fmt.Errorf("kernel: misaligned path columns: %d exit values vs %d totals",
			len(exitValue), len(exitTotal))
	}
	if len(exitTotal) == 0 {
		return Stats{}, false, nil
	}

	final := exitTotal[len(exitTotal)-1]
	// NaN (an exit realized before any valid entry price) fails the > 0
	// test and rejects the candidate, matching the warm-up policy.
	if !(final > 0) {
		return Stats{}, false, nil
	}

	minTotal := floats.Min(exitTotal)
	maxTotal := floats.Max(exitTotal)
	if maxTotal < math.Abs(minTotal) {
		return Stats{}, false, nil
	}

	wins, losses := 0, 0
	for _, v := range exitValue {
		switch {
		case v > 0:
			wins++
		case v < 0:
			losses++
		}
	}

	ratio := 0.0
	if wins+losses > 0 {
		ratio = float64(wins) / float64(wins+losses)
	}

	return Stats{
		FinalTotal: final,
		MinTotal:   minTotal,
		MaxTotal:   maxTotal,
		Wins:       wins,
		Losses:     losses,
		Ratio:      ratio,
	}, true, nil
}
