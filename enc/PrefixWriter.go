package enc

import (
	"container/heap"
	"math/bits"
	"slices"

	"github.com/pkg/errors"

	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/util"
)

const maxSimplePrefixSymbols = 4

type huffmanNode struct {
	weight int64
	id     int
	left   int
	right  int
}

type huffmanHeap []*huffmanNode

func (h huffmanHeap) Len() int { return len(h) }
func (h huffmanHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	return h[i].id < h[j].id
}
func (h huffmanHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *huffmanHeap) Push(x any)   { *h = append(*h, x.(*huffmanNode)) }
func (h *huffmanHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// BuildPrefixCodeLengths returns Huffman code lengths for counts, none longer than maxBits.
// A single used symbol gets length 1 so it still has a code.
func BuildPrefixCodeLengths(counts []int32, maxBits int) ([]int, error) {
	lengths := make([]int, len(counts))
	used := 0
	for _, c := range counts {
		if c > 0 {
			used++
		}
	}
	if used == 0 {
		return lengths, nil
	}
	if used > 1<<maxBits {
		return nil, errors.Errorf("%d symbols do not fit in codes of %d bits", used, maxBits)
	}
	if used == 1 {
		for i, c := range counts {
			if c > 0 {
				lengths[i] = 1
			}
		}
		return lengths, nil
	}

	for countLimit := int64(1); ; countLimit *= 2 {
		nodes := make([]*huffmanNode, 0, 2*used)
		h := &huffmanHeap{}
		for _, c := range counts {
			if c > 0 {
				n := &huffmanNode{weight: max(int64(c), countLimit), id: len(nodes), left: -1, right: -1}
				nodes = append(nodes, n)
				heap.Push(h, n)
			}
		}
		for h.Len() > 1 {
			a := heap.Pop(h).(*huffmanNode)
			b := heap.Pop(h).(*huffmanNode)
			n := &huffmanNode{weight: a.weight + b.weight, id: len(nodes), left: a.id, right: b.id}
			nodes = append(nodes, n)
			heap.Push(h, n)
		}

		depths := make([]int, len(nodes))
		for i := len(nodes) - 1; i >= 0; i-- {
			if nodes[i].left >= 0 {
				depths[nodes[i].left] = depths[i] + 1
				depths[nodes[i].right] = depths[i] + 1
			}
		}
		leaf := 0
		maxDepth := 0
		for i, c := range counts {
			if c > 0 {
				lengths[i] = depths[leaf]
				maxDepth = max(maxDepth, depths[leaf])
				leaf++
			}
		}
		if maxDepth <= maxBits {
			return lengths, nil
		}
	}
}

// canonicalCodes assigns codes by increasing (length, symbol) and returns them LSB first, ready for BitWriter.Write.
func canonicalCodes(lengths []int) []uint32 {
	order := make([]int, 0, len(lengths))
	for i, l := range lengths {
		if l > 0 {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return lengths[a] - lengths[b]
	})
	codes := make([]uint32, len(lengths))
	code := uint64(0)
	for _, s := range order {
		codes[s] = bits.Reverse32(uint32(code))
		code += 1 << (32 - lengths[s])
	}
	return codes
}

// WritePrefixCode writes the lengths of a complete prefix code so DecodePrefixCode rebuilds it.
func WritePrefixCode(writer *jxlio.BitWriter, lengths []int, alphabetSize int) error {
	if alphabetSize == 1 {
		return nil
	}
	var used []int
	for i, l := range lengths {
		if l > 0 {
			if i >= alphabetSize {
				return errors.Errorf("symbol %d outside alphabet of %d", i, alphabetSize)
			}
			used = append(used, i)
		}
	}
	if len(used) == 0 {
		return errors.New("prefix code has no symbols")
	}
	if len(used) <= maxSimplePrefixSymbols {
		return writeSimplePrefix(writer, lengths, used, alphabetSize)
	}
	return writeComplexPrefix(writer, lengths)
}

func writeSimplePrefix(writer *jxlio.BitWriter, lengths []int, used []int, alphabetSize int) error {
	slices.SortStableFunc(used, func(a, b int) int {
		return lengths[a] - lengths[b]
	})
	shape := make([]int, len(used))
	for i, s := range used {
		shape[i] = lengths[s]
	}
	treeSelect := false
	switch len(used) {
	case 1:
	case 2:
		if !slices.Equal(shape, []int{1, 1}) {
			return errors.Errorf("lengths %v do not form a simple code", shape)
		}
	case 3:
		if !slices.Equal(shape, []int{1, 2, 2}) {
			return errors.Errorf("lengths %v do not form a simple code", shape)
		}
	case 4:
		treeSelect = slices.Equal(shape, []int{1, 2, 3, 3})
		if !treeSelect && !slices.Equal(shape, []int{2, 2, 2, 2}) {
			return errors.Errorf("lengths %v do not form a simple code", shape)
		}
	}

	if err := writer.Write(2, 1); err != nil {
		return err
	}
	if err := writer.Write(2, uint64(len(used)-1)); err != nil {
		return err
	}
	symbolBits := util.CeilLog1p(alphabetSize - 1)
	for _, s := range used {
		if err := writer.Write(symbolBits, uint64(s)); err != nil {
			return err
		}
	}
	if len(used) == 4 {
		writer.WriteBool(treeSelect)
	}
	return nil
}

func writeComplexPrefix(writer *jxlio.BitWriter, lengths []int) error {
	lengths = util.TrimTrailingZeros(lengths)
	for _, l := range lengths {
		if l > entropy.PrefixMaxBits {
			return errors.Errorf("code length %d exceeds %d", l, entropy.PrefixMaxBits)
		}
	}

	// a complete code over the distinct length values, as flat as possible
	var values []int
	for _, l := range lengths {
		if !slices.Contains(values, l) {
			values = append(values, l)
		}
	}
	slices.Sort(values)
	levelLengths := make([]int, len(entropy.CodeLengthCodeOrder))
	if len(values) == 1 {
		levelLengths[values[0]] = 1
	} else {
		k := util.CeilLog2(uint32(len(values)))
		short := 1<<k - len(values)
		for i, v := range values {
			levelLengths[v] = util.IfThenElse(i < short, k-1, k)
		}
	}

	if err := writer.Write(2, 0); err != nil {
		return err
	}
	space := 32
	for _, idx := range entropy.CodeLengthCodeOrder {
		if space == 0 {
			break
		}
		code, n := entropy.Level0Code(levelLengths[idx])
		if err := writer.Write(n, uint64(code)); err != nil {
			return err
		}
		if levelLengths[idx] != 0 {
			space -= 32 >> levelLengths[idx]
		}
	}

	if len(values) == 1 {
		return nil
	}
	levelCodes := canonicalCodes(levelLengths)
	for _, l := range lengths {
		if err := writer.Write(levelLengths[l], uint64(levelCodes[l])); err != nil {
			return err
		}
	}
	return nil
}

// writeSymbol writes symbol with the canonical code for lengths.
func writeSymbol(writer *jxlio.BitWriter, lengths []int, codes []uint32, symbol int) error {
	if symbol >= len(lengths) || lengths[symbol] == 0 {
		return errors.Errorf("symbol %d has no prefix code", symbol)
	}
	return writer.Write(lengths[symbol], uint64(codes[symbol]))
}
