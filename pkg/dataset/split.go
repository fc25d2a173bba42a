package dataset

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// Sizes are the unit counts of each partition.
type Sizes struct {
	Train      int `json:"train"`
	Validation int `json:"validation"`
	Test       int `json:"test"`
}

// Total returns the number of units across partitions.
func (s Sizes) Total() int { return s.Train + s.Validation + s.Test }

// ValidateFractions rejects fractions that cannot leave a training partition.
func ValidateFractions(validation, test float64) error {
	if validation < 0 || test < 0 || validation+test >= 1 || math.IsNaN(validation) || math.IsNaN(test) {
		return errors.Wrapf(ErrInvalidSplit, "validation=%.3f test=%.3f", validation, test)
	}
	return nil
}

// PartitionSizes carves the validation fraction from n units, then the adjusted test
// fraction test/(1-validation) from the remainder. Quotas are apportioned by largest
// remainder so each partition lands within one unit of its configured share.
func PartitionSizes(n int, validation, test float64) (Sizes, error) {
	if err := ValidateFractions(validation, test); err != nil {
		return Sizes{}, err
	}
	if n == 0 {
		return Sizes{}, ErrEmptyDataset
	}

	valQuota := validation * float64(n)
	adjusted := test / (1 - validation)
	testQuota := adjusted * (float64(n) - valQuota)
	quotas := []float64{float64(n) - valQuota - testQuota, valQuota, testQuota}

	counts := make([]int, len(quotas))
	assigned := 0
	for i, q := range quotas {
		counts[i] = int(math.Floor(q + 1e-9))
		assigned += counts[i]
	}
	order := []int{0, 1, 2}
	sort.SliceStable(order, func(a, b int) bool {
		ra := quotas[order[a]] - float64(counts[order[a]])
		rb := quotas[order[b]] - float64(counts[order[b]])
		return ra > rb
	})
	for i := 0; assigned < n; i++ {
		counts[order[i%len(order)]]++
		assigned++
	}

	sizes := Sizes{Train: counts[0], Validation: counts[1], Test: counts[2]}
	if sizes.Train == 0 {
		return sizes, errors.Wrapf(ErrEmptyPartition, "%d units leave no training samples", n)
	}
	return sizes, nil
}

// shuffledPartitions returns the unit indices of each partition after a seeded shuffle.
// Validation is taken first, then test, and the rest trains.
func shuffledPartitions(sizes Sizes, seed int64) (train, validation, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(sizes.Total())
	validation = perm[:sizes.Validation]
	test = perm[sizes.Validation : sizes.Validation+sizes.Test]
	train = perm[sizes.Validation+sizes.Test:]
	return train, validation, test
}
