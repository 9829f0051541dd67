// Package split partitions row indices into training, validation and test
// subsets for holdout evaluation. The draw is seeded so the same
// (n, ratios, seed) triple always produces the same partition.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ErrInvalidSplit is wrapped by every partitioning failure: a ratio outside
// [0,1], ratios summing to more than one, or an empty index range.
var ErrInvalidSplit = errors.New("invalid split")

// Ratios holds the train/validation/test proportions, in that order.
type Ratios [3]float64

// DefaultRatios is the 60/20/20 holdout split used by the analysis.
var DefaultRatios = Ratios{0.6, 0.2, 0.2}

// Split holds three disjoint, sorted index sets whose union covers [0, n).
type Split struct {
	Train      []int
	Validation []int
	Test       []int
}

// New partitions the indices 0..n-1 without replacement. Sizes are
// round(r0*n) for training, round(rv/(rv+rt) * remaining) for validation, and
// the residual for test; any mass left by ratios summing below one also lands
// in the test set so the union always covers every row.
func New(n int, ratios Ratios, seed int64) (*Split, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidSplit, n)
	}
	sum := 0.0
	for i, r := range ratios {
		if r < 0 || r > 1 {
			return nil, fmt.Errorf("%w: ratio[%d]=%g outside [0,1]", ErrInvalidSplit, i, r)
		}
		sum += r
	}
	if sum > 1+1e-9 {
		return nil, fmt.Errorf("%w: ratios %v sum to %g > 1", ErrInvalidSplit, ratios, sum)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)

	nTrain := int(math.Round(ratios[0] * float64(n)))
	if nTrain > n {
		nTrain = n
	}
	remaining := n - nTrain

	nVal := 0
	if hold := ratios[1] + ratios[2]; hold > 0 {
		nVal = int(math.Round(ratios[1] / hold * float64(remaining)))
	}
	if nVal > remaining {
		nVal = remaining
	}

	s := &Split{
		Train:      append([]int(nil), perm[:nTrain]...),
		Validation: append([]int(nil), perm[nTrain:nTrain+nVal]...),
		Test:       append([]int(nil), perm[nTrain+nVal:]...),
	}
	sort.Ints(s.Train)
	sort.Ints(s.Validation)
	sort.Ints(s.Test)
	return s, nil
}
