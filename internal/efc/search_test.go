package efc

import (
	"errors"
	"math"
	"testing"
)

// countingPredictor returns a constant score and counts calls.
type countingPredictor struct {
	score float64
	calls int
}

func (c *countingPredictor) Predict(records []Features, _ string) ([]float64, error) {
	c.calls++
	out := make([]float64, len(records))
	for i := range out {
		out[i] = c.score
	}
	return out, nil
}

type failingPredictor struct{}

func (failingPredictor) Predict([]Features, string) ([]float64, error) {
	return nil, errors.New("boom")
}

func TestDueTimeSearch_IterationCap(t *testing.T) {
	for _, score := range []float64{100, 0} {
		p := &countingPredictor{score: score}
		_, calls, err := DueTimeSearch(p, Features{HoursSinceLastReview: 10}, "EN", 50, DefaultSearch)
		if err != nil {
			t.Fatal(err)
		}
		if p.calls > DefaultSearch.MaxIterations || calls != p.calls {
			t.Errorf("score %v: predictor calls = %d (reported %d), cap %d", score, p.calls, calls, DefaultSearch.MaxIterations)
		}
		if p.calls != DefaultSearch.MaxIterations {
			t.Errorf("score %v: calls = %d, want exactly %d for a non-converging predictor", score, p.calls, DefaultSearch.MaxIterations)
		}
	}
}

func TestDueTimeSearch_Direction(t *testing.T) {
	above := &countingPredictor{score: 100}
	delta, _, _ := DueTimeSearch(above, Features{}, "", 50, DefaultSearch)
	if delta <= 0 {
		t.Errorf("score above threshold: delta = %v, want > 0", delta)
	}
	below := &countingPredictor{score: 0}
	delta, _, _ = DueTimeSearch(below, Features{}, "", 50, DefaultSearch)
	if delta >= 0 {
		t.Errorf("score below threshold: delta = %v, want < 0", delta)
	}
}

func TestDueTimeSearch_StopsInsideTolerance(t *testing.T) {
	p := &countingPredictor{score: 50.005}
	delta, calls, err := DueTimeSearch(p, Features{HoursSinceLastReview: 3}, "", 50, DefaultSearch)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 || delta != 0 {
		t.Errorf("calls = %d, delta = %v, want 1, 0", calls, delta)
	}
}

func TestDueTimeSearch_DecayConverges(t *testing.T) {
	f := Features{TotalCards: 100, PrevCardsPerMinute: 15, HoursSinceCreation: 720, HoursSinceLastReview: 168, Repeats: 3, PrevScore: 65}
	delta, calls, err := DueTimeSearch(Decay{}, f, "EN", 50, DefaultSearch)
	if err != nil {
		t.Fatal(err)
	}
	if calls > DefaultSearch.MaxIterations {
		t.Fatalf("calls = %d, over cap", calls)
	}
	// Analytic crossing: h = -24 s ln(0.5).
	want := -24*Decay{}.Stability(f)*math.Log(0.5) - 168
	assertFloat(t, "delta", delta, want, 0.5)

	f.HoursSinceLastReview += delta
	scores, _ := Decay{}.Predict([]Features{f}, "EN")
	assertFloat(t, "score at due time", scores[0], 50, 0.1)
}

func TestDueTimeSearch_PredictorError(t *testing.T) {
	if _, calls, err := DueTimeSearch(failingPredictor{}, Features{}, "", 50, DefaultSearch); err == nil || calls != 1 {
		t.Errorf("calls = %d, err = %v", calls, err)
	}
}
