package wheel

import (
	"math"
	"testing"

	"github.com/kristianakila/restbek2/errors"
)

func TestSelectPrize(t *testing.T) {
	prizes := []Prize{
		{ID: "a", Weight: 50},
		{ID: "b", Weight: 30},
		{ID: "c", Weight: 20},
	}

	tests := []struct {
		name   string
		draw   float64
		wantID string
	}{
		{name: "draw at zero picks first", draw: 0, wantID: "a"},
		{name: "draw inside first band", draw: 0.49, wantID: "a"},
		{name: "draw on first boundary picks second", draw: 0.5, wantID: "b"},
		{name: "draw inside second band", draw: 0.79, wantID: "b"},
		{name: "draw on second boundary picks third", draw: 0.8, wantID: "c"},
		{name: "draw near one picks last", draw: 0.999, wantID: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prize, err := SelectPrize(prizes, &queueRand{draws: []float64{tt.draw}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if prize.ID != tt.wantID {
				t.Errorf("draw %v: expected prize %q, got %q", tt.draw, tt.wantID, prize.ID)
			}
		})
	}
}

func TestSelectPrizeEmptyTable(t *testing.T) {
	_, err := SelectPrize(nil, &queueRand{draws: []float64{0.5}})
	if !errors.IsCode(err, errors.ErrNoPrizesAvailable) {
		t.Errorf("expected ErrNoPrizesAvailable, got %v", err)
	}
}

func TestSelectPrizeZeroTotalWeight(t *testing.T) {
	prizes := []Prize{
		{ID: "a", Weight: 0},
		{ID: "b", Weight: 0},
	}
	_, err := SelectPrize(prizes, &queueRand{draws: []float64{0.5}})
	if !errors.IsCode(err, errors.ErrNoPrizesAvailable) {
		t.Errorf("expected ErrNoPrizesAvailable, got %v", err)
	}
}

func TestSelectPrizeZeroWeightEntryNeverWins(t *testing.T) {
	prizes := []Prize{
		{ID: "zero", Weight: 0},
		{ID: "real", Weight: 10},
	}
	for _, draw := range []float64{0, 0.25, 0.5, 0.999} {
		prize, err := SelectPrize(prizes, &queueRand{draws: []float64{draw}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prize.ID != "real" {
			t.Errorf("draw %v: zero-weight prize selected", draw)
		}
	}
}

func TestSelectPrizeDeterministicForFixedDraw(t *testing.T) {
	prizes := []Prize{
		{ID: "a", Weight: 1},
		{ID: "b", Weight: 1},
		{ID: "c", Weight: 1},
	}
	var first string
	for i := 0; i < 10; i++ {
		prize, err := SelectPrize(prizes, &queueRand{draws: []float64{0.4}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first == "" {
			first = prize.ID
		} else if prize.ID != first {
			t.Fatalf("fixed draw gave different prizes: %q then %q", first, prize.ID)
		}
	}
}

func TestSelectPrizeDistributionTracksWeights(t *testing.T) {
	prizes := []Prize{
		{ID: "a", Weight: 50},
		{ID: "b", Weight: 30},
		{ID: "c", Weight: 20},
	}
	rnd := NewLockedRand(1)

	const draws = 20000
	counts := make(map[string]int, len(prizes))
	for i := 0; i < draws; i++ {
		prize, err := SelectPrize(prizes, rnd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts[prize.ID]++
	}

	// With 20k draws the observed share sits well inside ±0.02 of the
	// weight share for any seed.
	expected := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}
	for id, share := range expected {
		got := float64(counts[id]) / draws
		if math.Abs(got-share) > 0.02 {
			t.Errorf("prize %q frequency %.3f, expected %.3f", id, got, share)
		}
	}
}
