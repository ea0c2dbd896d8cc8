package ml

import (
	"fmt"
	"sort"
	"strconv"

	"drawcast/internal/sequence"
)

// Decode picks the k highest scoring digits of every position block. Equal
// scores keep ascending digit order.
func Decode(scores []float64, k int) ([][]string, error) {
	if len(scores) != sequence.TargetLen {
		return nil, fmt.Errorf("%w: score vector length %d, expected %d", sequence.ErrDataIntegrity, len(scores), sequence.TargetLen)
	}
	if k <= 0 || k > sequence.Classes {
		return nil, fmt.Errorf("top-k must be between 1 and %d, got %d", sequence.Classes, k)
	}

	out := make([][]string, sequence.Positions)
	for p := range out {
		block := scores[p*sequence.Classes : (p+1)*sequence.Classes]
		idx := make([]int, sequence.Classes)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return block[idx[a]] > block[idx[b]]
		})

		digits := make([]string, k)
		for i := 0; i < k; i++ {
			digits[i] = strconv.Itoa(idx[i])
		}
		out[p] = digits
	}
	return out, nil
}
