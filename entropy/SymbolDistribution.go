package entropy

import (
	"github.com/kpfaulkner/jxl-entropy/jxlio"
)

// SymbolDistribution decodes raw tokens for a single cluster.
type SymbolDistribution interface {
	ReadSymbol(reader jxlio.BitReader, state *ANSState) (uint32, error)
}

type aliasDistribution struct {
	table        []AliasEntry
	logEntrySize uint32
}

func (d *aliasDistribution) ReadSymbol(reader jxlio.BitReader, state *ANSState) (uint32, error) {
	res := state.State & (ANSTabSize - 1)
	sym := Lookup(d.table, res, d.logEntrySize)
	s := sym.Freq*(state.State>>ANSLogTabSize) + sym.Offset
	if s < 1<<16 {
		bits, err := reader.ReadBits(16)
		if err != nil {
			return 0, err
		}
		s = s<<16 | bits
	}
	state.State = s
	return sym.Value, nil
}

type prefixDistribution struct {
	code *PrefixCode
}

func (d *prefixDistribution) ReadSymbol(reader jxlio.BitReader, state *ANSState) (uint32, error) {
	sym, err := d.code.ReadSymbol(reader)
	return uint32(sym), err
}
