package kernel

import (
	"math"
	"testing"
)

func cumsum(vals []float64) []float64 {
	out := make([]float64, len(vals))
	total := 0.0
	for i, v := range vals {
		total += v
		out[i] = total
	}
	return out
}

func TestReduceAccepted(t *testing.T) {
	exitValue := []float64{0, 0.5, 0, -0.2, 0.4}
	stats, ok, err := Reduce(exitValue, cumsum(exitValue))
	if err != nil {
		t.Fatalf("Reduce returned error: %v", err)
	}
	if !ok {
		t.Fatal("Reduce rejected a profitable path")
	}

	if math.Abs(stats.FinalTotal-0.7) > 1e-12 {
		t.Errorf("FinalTotal = %v, want 0.7", stats.FinalTotal)
	}
	if stats.Wins != 2 || stats.Losses != 1 {
		t.Errorf("Wins/Losses = %d/%d, want 2/1", stats.Wins, stats.Losses)
	}
	want := 2.0 / 3.0
	if math.Abs(stats.Ratio-want) > 1e-12 {
		t.Errorf("Ratio = %v, want %v", stats.Ratio, want)
	}
	if stats.Ratio < 0 || stats.Ratio > 1 {
		t.Errorf("Ratio = %v outside [0,1]", stats.Ratio)
	}
}

func TestReduceRejectsNonPositiveTotal(t *testing.T) {
	exitValue := []float64{0, 0.5, -0.7}
	if _, ok, err := Reduce(exitValue, cumsum(exitValue)); err != nil || ok {
		t.Errorf("ok=%v err=%v, want rejection of a path with final total <= 0", ok, err)
	}

	// A path with no exits has a zero final total and is also rejected.
	zeros := []float64{0, 0, 0}
	if _, ok, err := Reduce(zeros, cumsum(zeros)); err != nil || ok {
		t.Errorf("ok=%v err=%v, want rejection of a path with no exits", ok, err)
	}
}

func TestReduceRejectsDrawdownDominatedPath(t *testing.T) {
	// Final total is positive but the worst drawdown (-2.0) exceeds the
	// peak gain (0.5).
	exitValue := []float64{0.5, -2.5, 2.5}
	if _, ok, err := Reduce(exitValue, cumsum(exitValue)); err != nil || ok {
		t.Errorf("ok=%v err=%v, want rejection of a drawdown-dominated path", ok, err)
	}
}

func TestReduceRejectsNaNPath(t *testing.T) {
	exitValue := []float64{0, math.NaN(), 0.5}
	if _, ok, err := Reduce(exitValue, cumsum(exitValue)); err != nil || ok {
		t.Errorf("ok=%v err=%v, want rejection of a NaN-poisoned path", ok, err)
	}
}

func TestReduceEmptyPath(t *testing.T) {
	if _, ok, err := Reduce(nil, nil); err != nil || ok {
		t.Errorf("ok=%v err=%v, want plain rejection of an empty path", ok, err)
	}
}

func TestReduceMisalignedColumns(t *testing.T) {
	// A length mismatch is malformed input, not a statistical rejection.
	if _, _, err := Reduce([]float64{0.5}, []float64{0.5, 0.5}); err == nil {
		t.Error("Reduce should fail fast on misaligned path columns")
	}
}
