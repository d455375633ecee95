package tgs

import (
	"fmt"
	"math"
	"math/rand"
)

// TrainTestSplit shuffles indices [0, n) with a generator seeded by seed and
// partitions them: the first floor(testFrac*n) shuffled indices form the test
// set, the remaining ones the train set.
//
// The result is deterministic for a given (n, testFrac, seed).
func TrainTestSplit(n int, testFrac float64, seed int64) (train, test []int, err error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("invalid dataset size: %d", n)
	}
	if testFrac < 0 || testFrac > 1 {
		return nil, nil, fmt.Errorf("test fraction must be in [0, 1]. Got %v", testFrac)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	r := rand.New(rand.NewSource(seed))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	split := int(math.Floor(testFrac * float64(n)))

	return indices[split:], indices[:split], nil
}
