// Package prize implements weighted selection over a project's prize table.
//
// Probabilities are treated as relative weights over their own sum. The
// bundled wheel templates happen to sum to exactly 1.0, but the selector
// never relies on that: a table of [1, 3] behaves the same as [0.25, 0.75].
package prize

import (
	"math/rand"

	"qreward/entity"
)

// Select draws exactly one prize label from the table using the shared
// top-level rand source, which is safe for concurrent callers.
func Select(prizes []entity.Prize) (string, error) {
	return SelectWith(prizes, rand.Float64)
}

// SelectWith draws one prize label using draw, which must return a value
// uniformly distributed in [0, 1). The walk follows the stored order: scale
// the draw to [0, total) and return the first label whose cumulative weight
// exceeds it. A table whose weights sum to zero or below is a caller error;
// the selector fails closed rather than defaulting to the first entry.
func SelectWith(prizes []entity.Prize, draw func() float64) (string, error) {
	total := 0.0
	for _, p := range prizes {
		if p.Probability > 0 {
			total += p.Probability
		}
	}
	if len(prizes) == 0 || total <= 0 {
		return "", entity.ErrInvalidPrizeTable
	}

	r := draw() * total
	sum := 0.0
	last := ""
	for _, p := range prizes {
		if p.Probability <= 0 {
			continue
		}
		sum += p.Probability
		last = p.Label
		if r < sum {
			return p.Label, nil
		}
	}
	// float accumulation can leave r a hair past the final sum
	return last, nil
}
