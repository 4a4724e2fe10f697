package enc

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ClusterMode int

const (
	ClusterFastest ClusterMode = iota
	ClusterFast
	ClusterBest
)

const (
	// MaxClusters bounds the distinct histograms one context map can address.
	MaxClusters = 256

	DefaultMinDistance = 48.0
	fastestMaxClusters = 4
)

// ClusterParams controls ClusterHistograms.
type ClusterParams struct {
	Mode          ClusterMode
	MaxHistograms int
	MinDistance   float64
}

func NewClusterParams(mode ClusterMode) ClusterParams {
	return ClusterParams{Mode: mode, MaxHistograms: MaxClusters, MinDistance: DefaultMinDistance}
}

// FastClusterHistograms greedily picks at most maxHistograms representatives among in and assigns
// every input to one of them or to one of prev. Symbols index the list prev followed by the returned clusters.
func FastClusterHistograms(in []*Histogram, maxHistograms int, prev []*Histogram, minDistance float64) ([]*Histogram, []uint32) {
	out := make([]*Histogram, 0, maxHistograms)
	symbols := make([]uint32, len(in))
	unassigned := uint32(math.MaxUint32)
	dists := make([]float64, len(in))
	largest := 0
	for i, h := range in {
		symbols[i] = unassigned
		dists[i] = math.MaxFloat64
		if h.Total == 0 {
			symbols[i] = 0
			dists[i] = 0
			continue
		}
		h.ShannonEntropy()
		if h.Total > in[largest].Total {
			largest = i
		}
	}

	if len(prev) > 0 {
		for _, p := range prev {
			for i, h := range in {
				if dists[i] == 0 {
					continue
				}
				dists[i] = min(dists[i], HistogramKLDivergence(h, p))
			}
		}
		for i := range in {
			if dists[i] > dists[largest] {
				largest = i
			}
		}
	}

	for len(prev)+len(out) < maxHistograms && len(in) > 0 {
		symbols[largest] = uint32(len(prev) + len(out))
		out = append(out, in[largest].Clone())
		dists[largest] = 0
		largest = 0
		for i, h := range in {
			if dists[i] == 0 {
				continue
			}
			dists[i] = min(dists[i], HistogramDistance(h, out[len(out)-1]))
			if dists[i] > dists[largest] {
				largest = i
			}
		}
		if dists[largest] < minDistance {
			break
		}
	}

	for i, h := range in {
		if symbols[i] != unassigned {
			continue
		}
		best := 0
		bestDist := math.Inf(1)
		for j := 0; j < len(prev)+len(out); j++ {
			var d float64
			if j < len(prev) {
				d = HistogramKLDivergence(h, prev[j])
			} else {
				d = HistogramDistance(h, out[j-len(prev)])
			}
			if d < bestDist {
				best, bestDist = j, d
			}
		}
		symbols[i] = uint32(best)
		if best >= len(prev) {
			out[best-len(prev)].AddHistogram(h)
		}
	}
	return out, symbols
}

type mergeCandidate struct {
	cost    float64
	first   int
	second  int
	version uint32
}

type mergeQueue []mergeCandidate

func (q mergeQueue) Len() int { return len(q) }
func (q mergeQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	if q[i].first != q[j].first {
		return q[i].first < q[j].first
	}
	return q[i].second < q[j].second
}
func (q mergeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *mergeQueue) Push(x any)   { *q = append(*q, x.(mergeCandidate)) }
func (q *mergeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ClusterHistograms reduces in to a set of clusters and the cluster index of every input,
// numbered by first use.
func ClusterHistograms(params ClusterParams, in []*Histogram) ([]*Histogram, []uint32, error) {
	if len(in) == 0 {
		return nil, nil, errors.New("no histograms to cluster")
	}
	maxHistograms := params.MaxHistograms
	if maxHistograms <= 0 || maxHistograms > MaxClusters {
		maxHistograms = MaxClusters
	}
	maxHistograms = min(maxHistograms, len(in))
	if params.Mode == ClusterFastest {
		maxHistograms = min(maxHistograms, fastestMaxClusters)
	}
	minDistance := params.MinDistance
	if minDistance == 0 {
		minDistance = DefaultMinDistance
	}

	out, symbols := FastClusterHistograms(in, maxHistograms, nil, minDistance)
	log.Debugf("fast clustering: %d histograms into %d clusters", len(in), len(out))

	if params.Mode == ClusterBest {
		out, symbols = mergeClusters(out, symbols)
		log.Debugf("best clustering: %d clusters after merging", len(out))
	}

	out, symbols = HistogramReindex(out, 0, symbols)
	return out, symbols, nil
}

// mergeClusters repeatedly merges the pair of clusters whose union is cheapest to code, while that
// saves bits. Queue entries carry the newest version of either cluster when pushed and are dropped
// once either cluster has changed since.
func mergeClusters(out []*Histogram, symbols []uint32) ([]*Histogram, []uint32) {
	costs := make([]float64, len(out))
	for i, h := range out {
		costs[i] = PopulationCost(h.Counts)
	}
	version := make([]uint32, len(out))
	for i := range version {
		version[i] = 1
	}
	nextVersion := uint32(2)
	parent := make([]int, len(out))
	for i := range parent {
		parent[i] = i
	}

	queue := &mergeQueue{}
	push := func(i, j int) {
		merged := out[i].Clone()
		merged.AddHistogram(out[j])
		cost := PopulationCost(merged.Counts) - costs[i] - costs[j]
		if math.IsNaN(cost) || math.IsInf(cost, 0) || cost >= 0 {
			return
		}
		heap.Push(queue, mergeCandidate{cost: cost, first: i, second: j, version: max(version[i], version[j])})
	}
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			push(i, j)
		}
	}

	for queue.Len() > 0 {
		c := heap.Pop(queue).(mergeCandidate)
		if version[c.first] == 0 || version[c.second] == 0 || c.version != max(version[c.first], version[c.second]) {
			continue
		}
		out[c.first].AddHistogram(out[c.second])
		costs[c.first] = PopulationCost(out[c.first].Counts)
		parent[c.second] = c.first
		version[c.second] = 0
		version[c.first] = nextVersion
		nextVersion++
		for j := range out {
			if j == c.first || version[j] == 0 {
				continue
			}
			push(min(c.first, j), max(c.first, j))
		}
	}

	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	remap := make([]uint32, len(out))
	alive := 0
	for i := range out {
		if version[i] == 0 {
			continue
		}
		out[alive] = out[i]
		remap[i] = uint32(alive)
		alive++
	}
	for i, s := range symbols {
		symbols[i] = remap[find(int(s))]
	}
	return out[:alive], symbols
}

// HistogramReindex renumbers clusters from prevCount upwards in order of first use by symbols
// and drops clusters nothing uses. Indices below prevCount are left alone.
func HistogramReindex(out []*Histogram, prevCount int, symbols []uint32) ([]*Histogram, []uint32) {
	tmp := make([]*Histogram, len(out))
	copy(tmp, out)
	newIndex := make(map[uint32]uint32, len(out))
	for i := 0; i < prevCount; i++ {
		newIndex[uint32(i)] = uint32(i)
	}
	next := uint32(prevCount)
	reindexed := make([]*Histogram, 0, len(out))
	for _, s := range symbols {
		if _, ok := newIndex[s]; ok {
			continue
		}
		newIndex[s] = next
		reindexed = append(reindexed, tmp[int(s)-prevCount])
		next++
	}
	for i, s := range symbols {
		symbols[i] = newIndex[s]
	}
	return reindexed, symbols
}
