package enc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histograms(counts ...[]int32) []*Histogram {
	out := make([]*Histogram, len(counts))
	for i, c := range counts {
		out[i] = HistogramFromCounts(c)
	}
	return out
}

func randomHistograms(seed int64, n int, alphabet int) []*Histogram {
	rng := rand.New(rand.NewSource(seed))
	out := make([]*Histogram, n)
	for i := range out {
		counts := make([]int32, alphabet)
		// a few families so that clustering has something to find
		family := rng.Intn(3)
		for j := range counts {
			if j%3 == family {
				counts[j] = int32(rng.Intn(200))
			} else {
				counts[j] = int32(rng.Intn(5))
			}
		}
		out[i] = HistogramFromCounts(counts)
	}
	return out
}

func totalMass(hs []*Histogram) int64 {
	total := int64(0)
	for _, h := range hs {
		total += h.Total
	}
	return total
}

func TestFastClusterHistograms(t *testing.T) {

	for _, tc := range []struct {
		name            string
		in              []*Histogram
		maxHistograms   int
		expectedSymbols []uint32
	}{
		{name: "identical collapse", in: histograms([]int32{10, 10}, []int32{10, 10}, []int32{20, 20}), maxHistograms: 8, expectedSymbols: []uint32{0, 0, 0}},
		{name: "disjoint kept apart", in: histograms([]int32{1000}, []int32{0, 1000}, []int32{0, 0, 1000}), maxHistograms: 8, expectedSymbols: []uint32{0, 1, 2}},
		{name: "zero mass goes to cluster zero", in: histograms(nil, []int32{0, 1000}, nil, []int32{1000}), maxHistograms: 8, expectedSymbols: []uint32{0, 0, 0, 1}},
		{name: "limited clusters", in: histograms([]int32{1000}, []int32{0, 1000}, []int32{0, 0, 1000}), maxHistograms: 1, expectedSymbols: []uint32{0, 0, 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mass := totalMass(tc.in)
			out, symbols := FastClusterHistograms(tc.in, tc.maxHistograms, nil, DefaultMinDistance)
			assert.Equal(t, tc.expectedSymbols, symbols)
			assert.LessOrEqual(t, len(out), tc.maxHistograms)
			assert.Equal(t, mass, totalMass(out))
		})
	}
}

func TestFastClusterHistogramsWithPrevious(t *testing.T) {
	prev := histograms([]int32{500, 500})
	in := histograms([]int32{50, 50}, []int32{0, 0, 700})
	out, symbols := FastClusterHistograms(in, 4, prev, DefaultMinDistance)
	require.Len(t, out, 1)
	// prev occupies index 0, new clusters follow it
	assert.Equal(t, []uint32{0, 1}, symbols)
	assert.Equal(t, int64(700), out[0].Total)
}

func TestFastClusterHistogramsSeedsLargest(t *testing.T) {
	in := histograms([]int32{10, 10}, []int32{0, 0, 300}, []int32{20, 20})
	out, symbols := FastClusterHistograms(in, 1, nil, DefaultMinDistance)
	require.Len(t, out, 1)
	assert.Equal(t, []uint32{0, 0, 0}, symbols)
	assert.Equal(t, []int32{30, 30, 300}, out[0].Counts)

	// the seed keeps its own cluster even when its neighbours are close to it
	in = histograms([]int32{10, 10}, []int32{0, 0, 300}, []int32{20, 20})
	out, symbols = FastClusterHistograms(in, 8, nil, DefaultMinDistance)
	require.Len(t, out, 2)
	assert.Equal(t, []uint32{1, 0, 1}, symbols)
	assert.Equal(t, int64(300), out[0].Total)
}

func TestFastClusterHistogramsPreviousBelowThreshold(t *testing.T) {
	prev := histograms([]int32{500, 500})
	in := histograms([]int32{499, 501}, []int32{480, 520})
	out, symbols := FastClusterHistograms(in, 4, prev, DefaultMinDistance)
	// the input furthest from prev always starts a new cluster
	require.Len(t, out, 1)
	assert.Equal(t, []uint32{0, 1}, symbols)
	assert.Equal(t, []int32{480, 520}, out[0].Counts)
}

func TestFastClusterHistogramsPreviousCountsTowardsLimit(t *testing.T) {
	prev := histograms([]int32{1000})
	in := histograms([]int32{0, 1000}, []int32{0, 0, 1000})
	out, symbols := FastClusterHistograms(in, 2, prev, DefaultMinDistance)
	require.Len(t, out, 1)
	assert.Equal(t, []uint32{1, 1}, symbols)
	assert.Equal(t, int64(2000), out[0].Total)

	out, _ = FastClusterHistograms(histograms([]int32{0, 1000}), 1, prev, DefaultMinDistance)
	assert.Empty(t, out)
}

func TestClusterHistogramsProperties(t *testing.T) {

	for _, tc := range []struct {
		name   string
		params ClusterParams
		in     []*Histogram
	}{
		{name: "fast", params: NewClusterParams(ClusterFast), in: randomHistograms(1, 40, 24)},
		{name: "best", params: NewClusterParams(ClusterBest), in: randomHistograms(2, 40, 24)},
		{name: "fastest", params: NewClusterParams(ClusterFastest), in: randomHistograms(3, 40, 24)},
		{name: "capped", params: ClusterParams{Mode: ClusterFast, MaxHistograms: 2, MinDistance: 1e-9}, in: randomHistograms(4, 20, 12)},
		{name: "single", params: NewClusterParams(ClusterBest), in: randomHistograms(5, 1, 8)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mass := totalMass(tc.in)
			out, symbols, err := ClusterHistograms(tc.params, tc.in)
			require.NoError(t, err)
			require.Len(t, symbols, len(tc.in))
			assert.Equal(t, mass, totalMass(out))

			limit := tc.params.MaxHistograms
			if tc.params.Mode == ClusterFastest {
				limit = fastestMaxClusters
			}
			assert.LessOrEqual(t, len(out), limit)

			// clusters are numbered by first use and every cluster is used
			next := uint32(0)
			for _, s := range symbols {
				require.LessOrEqual(t, s, next)
				if s == next {
					next++
				}
			}
			assert.Equal(t, int(next), len(out))

			// every cluster is exactly the sum of its members
			sums := make([]*Histogram, len(out))
			for i := range sums {
				sums[i] = NewHistogram()
			}
			for i, s := range symbols {
				sums[s].AddHistogram(tc.in[i])
			}
			for i := range out {
				assert.Equal(t, sums[i].Total, out[i].Total)
			}
		})
	}
}

func TestClusterHistogramsBestMerges(t *testing.T) {
	in := histograms([]int32{500, 500}, []int32{520, 480}, []int32{0, 0, 1000})
	params := ClusterParams{MaxHistograms: MaxClusters, MinDistance: 1e-9}

	params.Mode = ClusterFast
	out, symbols, err := ClusterHistograms(params, in)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, []uint32{0, 1, 2}, symbols)

	params.Mode = ClusterBest
	out, symbols, err = ClusterHistograms(params, in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []uint32{0, 0, 1}, symbols)
	assert.Equal(t, []int32{1020, 980}, out[0].Counts)
}

func TestClusterHistogramsBestMergesChain(t *testing.T) {
	// three near-uniform clusters collapse into one, which needs the queue to drop the pairs
	// whose members were merged since they were pushed
	in := histograms([]int32{500, 500}, []int32{0, 0, 1000}, []int32{520, 480}, []int32{490, 510})
	params := ClusterParams{Mode: ClusterFast, MaxHistograms: MaxClusters, MinDistance: 1e-9}

	out, symbols, err := ClusterHistograms(params, in)
	require.NoError(t, err)
	assert.Len(t, out, 4)
	assert.Equal(t, []uint32{0, 1, 2, 3}, symbols)

	params.Mode = ClusterBest
	out, symbols, err = ClusterHistograms(params, in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []uint32{0, 1, 0, 0}, symbols)
	assert.Equal(t, []int32{1510, 1490}, out[0].Counts)
	assert.Equal(t, int64(3000), out[0].Total)
	assert.Equal(t, []int32{0, 0, 1000}, out[1].Counts)
}

func TestClusterHistogramsEmpty(t *testing.T) {
	_, _, err := ClusterHistograms(NewClusterParams(ClusterFast), nil)
	assert.Error(t, err)
}

func TestHistogramReindex(t *testing.T) {

	for _, tc := range []struct {
		name            string
		clusters        int
		prevCount       int
		symbols         []uint32
		expectedOrder   []int
		expectedSymbols []uint32
	}{
		{name: "first use order", clusters: 3, symbols: []uint32{2, 0, 2, 1}, expectedOrder: []int{2, 0, 1}, expectedSymbols: []uint32{0, 1, 0, 2}},
		{name: "already canonical", clusters: 2, symbols: []uint32{0, 1, 1}, expectedOrder: []int{0, 1}, expectedSymbols: []uint32{0, 1, 1}},
		{name: "unused dropped", clusters: 3, symbols: []uint32{1, 1}, expectedOrder: []int{1}, expectedSymbols: []uint32{0, 0}},
		{name: "previous untouched", clusters: 2, prevCount: 2, symbols: []uint32{3, 0, 2, 1}, expectedOrder: []int{1, 0}, expectedSymbols: []uint32{2, 0, 3, 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := make([]*Histogram, tc.clusters)
			for i := range out {
				out[i] = HistogramFromCounts([]int32{int32(i + 1)})
			}
			reindexed, symbols := HistogramReindex(out, tc.prevCount, tc.symbols)
			require.Len(t, reindexed, len(tc.expectedOrder))
			for i, j := range tc.expectedOrder {
				assert.Same(t, out[j], reindexed[i])
			}
			assert.Equal(t, tc.expectedSymbols, symbols)
		})
	}
}
