package enc

import (
	"math"
	"slices"
)

// Histogram holds raw symbol counts for one context or cluster.
type Histogram struct {
	Counts []int32
	Total  int64

	entropy      float64
	entropyValid bool
}

func NewHistogram() *Histogram {
	return &Histogram{}
}

func HistogramFromCounts(counts []int32) *Histogram {
	h := &Histogram{Counts: slices.Clone(counts)}
	for _, c := range counts {
		h.Total += int64(c)
	}
	return h
}

func (h *Histogram) Add(symbol uint32) {
	for int(symbol) >= len(h.Counts) {
		h.Counts = append(h.Counts, 0)
	}
	h.Counts[symbol]++
	h.Total++
	h.entropyValid = false
}

func (h *Histogram) AddHistogram(other *Histogram) {
	if len(other.Counts) > len(h.Counts) {
		h.Counts = append(h.Counts, make([]int32, len(other.Counts)-len(h.Counts))...)
	}
	for i, c := range other.Counts {
		h.Counts[i] += c
	}
	h.Total += other.Total
	h.entropyValid = false
}

func (h *Histogram) Clone() *Histogram {
	return &Histogram{Counts: slices.Clone(h.Counts), Total: h.Total, entropy: h.entropy, entropyValid: h.entropyValid}
}

func (h *Histogram) count(i int) int32 {
	if i < len(h.Counts) {
		return h.Counts[i]
	}
	return 0
}

// ShannonEntropy returns the cost in bits of coding the histogram's own samples with its own distribution.
func (h *Histogram) ShannonEntropy() float64 {
	if h.entropyValid {
		return h.entropy
	}
	h.entropy = 0
	if h.Total > 0 {
		invTotal := 1.0 / float64(h.Total)
		for _, c := range h.Counts {
			if c > 0 {
				h.entropy -= float64(c) * math.Log2(float64(c)*invTotal)
			}
		}
	}
	h.entropyValid = true
	return h.entropy
}

// HistogramDistance is the extra cost of coding a and b together rather than separately.
func HistogramDistance(a *Histogram, b *Histogram) float64 {
	if a.Total == 0 || b.Total == 0 {
		return 0
	}
	invTotal := 1.0 / float64(a.Total+b.Total)
	total := 0.0
	for i := 0; i < max(len(a.Counts), len(b.Counts)); i++ {
		c := float64(a.count(i) + b.count(i))
		if c > 0 {
			total -= c * math.Log2(c*invTotal)
		}
	}
	return total - a.ShannonEntropy() - b.ShannonEntropy()
}

// HistogramKLDivergence is the extra cost of coding actual's samples with coding's distribution.
// It is infinite when coding cannot represent a symbol actual uses.
func HistogramKLDivergence(actual *Histogram, coding *Histogram) float64 {
	if actual.Total == 0 {
		return 0
	}
	if coding.Total == 0 {
		return math.Inf(1)
	}
	codingInv := 1.0 / float64(coding.Total)
	cost := 0.0
	for i, c := range actual.Counts {
		if c == 0 {
			continue
		}
		cc := coding.count(i)
		if cc == 0 {
			return math.Inf(1)
		}
		cost -= float64(c) * math.Log2(float64(cc)*codingInv)
	}
	return cost - actual.ShannonEntropy()
}
