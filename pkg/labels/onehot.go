package labels

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Vocabulary is the sorted set of distinct values observed in one label column.
// One-hot widths come from the realized vocabulary, not from the action space.
type Vocabulary struct {
	Values []int `json:"values"`
}

// NewVocabulary collects the distinct values in ascending order.
func NewVocabulary(values []int) Vocabulary {
	seen := make(map[int]struct{}, len(values))
	distinct := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	sort.Ints(distinct)
	return Vocabulary{Values: distinct}
}

// Width is the one-hot vector length.
func (v Vocabulary) Width() int { return len(v.Values) }

// Index returns the one-hot column of value.
func (v Vocabulary) Index(value int) (int, bool) {
	i := sort.SearchInts(v.Values, value)
	if i < len(v.Values) && v.Values[i] == value {
		return i, true
	}
	return 0, false
}

// Equal reports whether both vocabularies hold the same values in the same order.
func (v Vocabulary) Equal(other Vocabulary) bool {
	if len(v.Values) != len(other.Values) {
		return false
	}
	for i := range v.Values {
		if v.Values[i] != other.Values[i] {
			return false
		}
	}
	return true
}

// OneHot encodes values as a len(values) x Width() matrix. It returns nil when there is
// nothing to encode.
func (v Vocabulary) OneHot(values []int) (*mat.Dense, error) {
	if len(values) == 0 || v.Width() == 0 {
		return nil, nil
	}
	m := mat.NewDense(len(values), v.Width(), nil)
	for row, value := range values {
		col, ok := v.Index(value)
		if !ok {
			return nil, fmt.Errorf("value %d is not in vocabulary %v", value, v.Values)
		}
		m.Set(row, col, 1)
	}
	return m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
