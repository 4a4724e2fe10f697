package entropy

import (
	"github.com/kpfaulkner/jxl-entropy/util"
)

// AliasEntry is one bucket of an alias table. Positions below Cutoff decode to the bucket's
// own symbol, the rest to RightValue.
type AliasEntry struct {
	Cutoff        uint32
	RightValue    uint32
	Offsets1      uint32
	Freq0         uint32
	Freq1XorFreq0 uint32
}

// AliasSymbol is the result of looking up an ANS state's low bits.
type AliasSymbol struct {
	Value  uint32
	Offset uint32
	Freq   uint32
}

// InitAliasTable builds a 1<<logAlphaSize entry alias table for distribution, whose entries must sum to 1<<logRange.
func InitAliasTable(distribution []int32, logRange int, logAlphaSize int) ([]AliasEntry, error) {
	table := make([]AliasEntry, 1<<logAlphaSize)
	if err := initAliasTableInto(table, distribution, logRange, logAlphaSize); err != nil {
		return nil, err
	}
	return table, nil
}

func initAliasTableInto(a []AliasEntry, distribution []int32, logRange int, logAlphaSize int) error {
	tableSize := 1 << logAlphaSize
	rangeSize := 1 << logRange
	if tableSize > rangeSize {
		return formatError("alias table", -1, "table size %d exceeds range %d", tableSize, rangeSize)
	}
	distribution = util.TrimTrailingZeros(distribution)
	if len(distribution) == 0 {
		distribution = []int32{int32(rangeSize)}
	}
	if len(distribution) > tableSize {
		return formatError("alias table", len(distribution)-1, "alphabet of %d symbols exceeds table size %d", len(distribution), tableSize)
	}
	entrySize := int32(rangeSize >> logAlphaSize)

	sum := 0
	for i, c := range distribution {
		if c < 0 {
			return formatError("alias table", i, "negative count %d", c)
		}
		sum += int(c)
	}
	if sum != rangeSize {
		return formatError("alias table", -1, "counts sum to %d, want %d", sum, rangeSize)
	}

	for sym, c := range distribution {
		if int(c) != rangeSize {
			continue
		}
		for i := 0; i < tableSize; i++ {
			a[i] = AliasEntry{
				RightValue:    uint32(sym),
				Offsets1:      uint32(int(entrySize) * i),
				Freq1XorFreq0: uint32(rangeSize),
			}
		}
		return nil
	}

	overfull := util.NewStack[int]()
	underfull := util.NewStack[int]()
	cutoffs := make([]int32, tableSize)
	for i := 0; i < tableSize; i++ {
		a[i] = AliasEntry{}
	}
	for i, c := range distribution {
		cutoffs[i] = c
		if c > entrySize {
			overfull.Push(i)
		} else if c < entrySize {
			underfull.Push(i)
		}
	}
	for i := len(distribution); i < tableSize; i++ {
		underfull.Push(i)
	}

	for !overfull.IsEmpty() {
		o := *overfull.Pop()
		up := underfull.Pop()
		if up == nil {
			return formatError("alias table", o, "no underfull bucket left")
		}
		u := *up
		cutoffs[o] -= entrySize - cutoffs[u]
		a[u].RightValue = uint32(o)
		a[u].Offsets1 = uint32(cutoffs[o])
		if cutoffs[o] < entrySize {
			underfull.Push(o)
		} else if cutoffs[o] > entrySize {
			overfull.Push(o)
		}
	}

	for i := 0; i < tableSize; i++ {
		if cutoffs[i] == entrySize {
			a[i].RightValue = uint32(i)
			a[i].Offsets1 = 0
			a[i].Cutoff = 0
		} else {
			a[i].Offsets1 -= uint32(cutoffs[i])
			a[i].Cutoff = uint32(cutoffs[i])
		}
		var freq0, freq1 uint32
		if i < len(distribution) {
			freq0 = uint32(distribution[i])
		}
		if int(a[i].RightValue) < len(distribution) {
			freq1 = uint32(distribution[a[i].RightValue])
		}
		a[i].Freq0 = freq0
		a[i].Freq1XorFreq0 = freq1 ^ freq0
	}
	return nil
}

// Lookup maps the low bits of an ANS state to its symbol, the offset within that symbol's slots and the symbol's frequency.
func Lookup(table []AliasEntry, value uint32, logEntrySize uint32) AliasSymbol {
	i := value >> logEntrySize
	pos := value & (1<<logEntrySize - 1)
	entry := &table[i]
	if pos >= entry.Cutoff {
		return AliasSymbol{
			Value:  entry.RightValue,
			Offset: entry.Offsets1 + pos,
			Freq:   entry.Freq0 ^ entry.Freq1XorFreq0,
		}
	}
	return AliasSymbol{Value: i, Offset: pos, Freq: entry.Freq0}
}
