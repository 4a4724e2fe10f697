package entropy

import (
	bbits "math/bits"

	"github.com/kpfaulkner/jxl-entropy/jxlio"
)

type vlcEntry struct {
	symbol int32
	length int32
}

// VLCTable is a single level lookup table for an LSB first prefix code.
// Entries with a negative symbol are unreachable.
type VLCTable struct {
	table []vlcEntry
	bits  int
}

func NewVLCTable(bits int, table [][]int) *VLCTable {
	rcvr := &VLCTable{bits: bits, table: make([]vlcEntry, len(table))}
	for i, e := range table {
		rcvr.table[i] = vlcEntry{symbol: int32(e[0]), length: int32(e[1])}
	}
	return rcvr
}

// NewVLCTableWithSymbols builds the canonical code for lengths, which must already be ordered
// by (length, symbol) among the non zero entries. symbols may be nil, meaning symbol i for lengths[i].
// A code with a single non zero length decodes that symbol using zero bits.
func NewVLCTableWithSymbols(bits int, lengths []int, symbols []int) (*VLCTable, error) {
	rcvr := &VLCTable{bits: bits, table: make([]vlcEntry, 1<<bits)}
	for i := range rcvr.table {
		rcvr.table[i] = vlcEntry{symbol: -1}
	}

	codes := make([]uint32, 0, len(lengths))
	nLengths := make([]int, 0, len(lengths))
	nSymbols := make([]int, 0, len(lengths))
	code := uint64(0)
	for i, currentLen := range lengths {
		if currentLen == 0 {
			continue
		}
		if currentLen < 0 || currentLen > bits {
			return nil, formatError("prefix code", i, "code length %d outside table of %d bits", currentLen, bits)
		}
		sym := i
		if symbols != nil {
			sym = symbols[i]
		}
		nLengths = append(nLengths, currentLen)
		nSymbols = append(nSymbols, sym)
		codes = append(codes, uint32(code))
		code += 1 << (32 - currentLen)
		if code > 1<<32 {
			return nil, formatError("prefix code", i, "too many codes")
		}
	}

	if len(nLengths) == 1 {
		for i := range rcvr.table {
			rcvr.table[i] = vlcEntry{symbol: int32(nSymbols[0]), length: 0}
		}
		return rcvr, nil
	}
	if code != 1<<32 {
		return nil, formatError("prefix code", -1, "incomplete code")
	}

	for i := range nLengths {
		index := bbits.Reverse32(codes[i])
		number := 1 << (bits - nLengths[i])
		offset := uint32(1) << nLengths[i]
		for j := 0; j < number; j++ {
			rcvr.table[index] = vlcEntry{symbol: int32(nSymbols[i]), length: int32(nLengths[i])}
			index += offset
		}
	}
	return rcvr, nil
}

func (rcvr *VLCTable) GetVLC(reader jxlio.BitReader) (int, error) {
	index, err := reader.ShowBits(rcvr.bits)
	if err != nil {
		return 0, err
	}
	entry := rcvr.table[index]
	if entry.symbol < 0 {
		return 0, formatError("prefix code", int(index), "unreachable code")
	}
	if err := reader.SkipBits(int(entry.length)); err != nil {
		return 0, err
	}
	return int(entry.symbol), nil
}

// Code returns the LSB first code word and its length for symbol, as a writer needs it.
func (rcvr *VLCTable) Code(symbol int) (uint32, int, bool) {
	for i, e := range rcvr.table {
		if int(e.symbol) == symbol {
			return uint32(i) & (1<<e.length - 1), int(e.length), true
		}
	}
	return 0, 0, false
}
