package enc

import (
	"math"

	"github.com/pkg/errors"

	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/util"
)

// BestNormalization normalises raw to the ANS table size under every shift and keeps the
// one whose header plus data bits are smallest.
func BestNormalization(raw []int32) ([]int32, float64, error) {
	raw = util.TrimTrailingZeros(raw)
	if len(raw) > entropy.ANSMaxAlphabetSize {
		return nil, math.Inf(1), errors.Errorf("alphabet of %d symbols exceeds %d", len(raw), entropy.ANSMaxAlphabetSize)
	}
	var best []int32
	bestCost := math.Inf(1)
	for shift := 0; shift <= maxShift; shift++ {
		counts, err := NormalizeCounts(raw, entropy.ANSLogTabSize, shift)
		if err != nil {
			continue
		}
		header, err := histogramHeaderBits(counts, entropy.ANSLogTabSize, shift)
		if err != nil {
			continue
		}
		cost := float64(header) + dataBits(raw, counts)
		if cost < bestCost {
			best, bestCost = counts, cost
		}
	}
	if best == nil {
		return nil, bestCost, errors.Errorf("no valid normalisation for %d symbols", len(raw))
	}
	return best, bestCost, nil
}

// PopulationCost estimates the bits needed to signal a histogram and code its samples with it.
// It is +Inf when the histogram cannot be coded.
func PopulationCost(counts []int32) float64 {
	_, cost, err := BestNormalization(counts)
	if err != nil {
		return math.Inf(1)
	}
	return cost
}

func dataBits(raw []int32, normalized []int32) float64 {
	bits := 0.0
	for i, c := range raw {
		if c == 0 {
			continue
		}
		if normalized[i] == 0 {
			return math.Inf(1)
		}
		bits += float64(c) * (entropy.ANSLogTabSize - math.Log2(float64(normalized[i])))
	}
	return bits
}
