package wheel

import (
	"github.com/kristianakila/restbek2/errors"
)

// SelectPrize picks one prize from the given table by weighted draw.
//
// The draw r is scaled to [0, totalWeight) and the table is walked in
// order, accumulating weight; the first prize whose cumulative sum exceeds
// r wins. Ties break left-to-right, so a fixed draw and a fixed table give
// a fixed result. If floating-point rounding leaves r unconsumed after the
// walk, the last prize in table order is returned rather than nothing.
func SelectPrize(prizes []Prize, rnd RandSource) (*Prize, error) {
	if len(prizes) == 0 {
		return nil, errors.New(errors.ErrNoPrizesAvailable, "no prizes available")
	}

	totalWeight := 0.0
	for i := range prizes {
		totalWeight += prizes[i].Weight
	}
	if totalWeight <= 0 {
		return nil, errors.New(errors.ErrNoPrizesAvailable, "no prizes available")
	}

	r := rnd.Draw() * totalWeight
	for i := range prizes {
		r -= prizes[i].Weight
		if r < 0 {
			return &prizes[i], nil
		}
	}

	// Rounding residue: fall back to the last prize.
	return &prizes[len(prizes)-1], nil
}
