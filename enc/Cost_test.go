package enc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopulationCost(t *testing.T) {

	for _, tc := range []struct {
		name     string
		counts   []int32
		expected float64
	}{
		// only the header: two bits of kind plus U8(2)
		{name: "single symbol", counts: []int32{0, 0, 50}, expected: 7},
		// one bit per sample plus a flat header
		{name: "two equal symbols", counts: []int32{1000, 1000}, expected: 2006},
		{name: "trailing zeros ignored", counts: []int32{1000, 1000, 0, 0}, expected: 2006},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, PopulationCost(tc.counts), 1e-9)
		})
	}
}

func TestPopulationCostNotCodable(t *testing.T) {
	counts := make([]int32, 300)
	counts[299] = 1
	assert.True(t, math.IsInf(PopulationCost(counts), 1))
}

func TestPopulationCostSkewIsCheaper(t *testing.T) {
	uniform := PopulationCost([]int32{250, 250, 250, 250})
	skewed := PopulationCost([]int32{970, 10, 10, 10})
	assert.Less(t, skewed, uniform)
	// never better than the entropy of the samples
	assert.GreaterOrEqual(t, skewed, HistogramFromCounts([]int32{970, 10, 10, 10}).ShannonEntropy())
}

func TestBestNormalizationError(t *testing.T) {
	counts := make([]int32, 257)
	counts[256] = 3
	_, cost, err := BestNormalization(counts)
	assert.Error(t, err)
	assert.True(t, math.IsInf(cost, 1))
}
