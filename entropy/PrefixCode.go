package entropy

import (
	"slices"

	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/util"
)

const (
	PrefixMaxBits        = 15
	codeLengthCodes      = 18
	codeLengthRepeatCode = 16
	defaultCodeLength    = 8
)

// level0Table decodes the lengths of the code length code.
var level0Table = NewVLCTable(4, [][]int{{0, 2}, {4, 2}, {3, 2}, {2, 3}, {0, 2}, {4, 2}, {3, 2}, {1, 4}, {0, 2}, {4, 2}, {3, 2}, {2, 3}, {0, 2}, {4, 2}, {3, 2}, {5, 4}})

// CodeLengthCodeOrder is the order in which code length code lengths are stored.
var CodeLengthCodeOrder = [codeLengthCodes]int{1, 2, 3, 4, 0, 5, 17, 6, 16, 7, 8, 9, 10, 11, 12, 13, 14, 15}

// PrefixCode decodes one cluster's symbols when prefix coding is in use.
type PrefixCode struct {
	table         *VLCTable
	defaultSymbol int
	lengths       []int
}

// DecodePrefixCode reads a simple or complex prefix code for an alphabet of alphabetSize symbols.
func DecodePrefixCode(reader jxlio.BitReader, alphabetSize int) (*PrefixCode, error) {
	rcvr := &PrefixCode{}
	if alphabetSize == 1 {
		return rcvr, nil
	}

	hskip, err := reader.ReadBits(2)
	if err != nil {
		return nil, err
	}
	if hskip == 1 {
		err = rcvr.populateSimplePrefix(reader, alphabetSize)
	} else {
		err = rcvr.populateComplexPrefix(reader, int(hskip), alphabetSize)
	}
	if err != nil {
		return nil, err
	}
	return rcvr, nil
}

// NewPrefixCodeFromLengths builds the canonical code for per symbol code lengths.
func NewPrefixCodeFromLengths(lengths []int) (*PrefixCode, error) {
	nonZero := 0
	last := 0
	for i, l := range lengths {
		if l != 0 {
			nonZero++
			last = i
		}
	}
	if nonZero == 0 {
		return nil, formatError("prefix code", -1, "no symbols")
	}
	if nonZero == 1 {
		return &PrefixCode{defaultSymbol: last}, nil
	}
	table, err := buildCanonicalTable(lengths)
	if err != nil {
		return nil, err
	}
	return &PrefixCode{table: table, lengths: slices.Clone(lengths)}, nil
}

func buildCanonicalTable(lengths []int) (*VLCTable, error) {
	symbols := make([]int, 0, len(lengths))
	maxLen := 0
	for i, l := range lengths {
		if l != 0 {
			symbols = append(symbols, i)
			maxLen = max(maxLen, l)
		}
	}
	slices.SortStableFunc(symbols, func(a, b int) int {
		return lengths[a] - lengths[b]
	})
	sortedLengths := make([]int, len(symbols))
	for i, s := range symbols {
		sortedLengths[i] = lengths[s]
	}
	return NewVLCTableWithSymbols(maxLen, sortedLengths, symbols)
}

func (rcvr *PrefixCode) populateSimplePrefix(reader jxlio.BitReader, alphabetSize int) error {
	maxBits := util.CeilLog1p(alphabetSize - 1)
	nsym, err := reader.ReadBits(2)
	if err != nil {
		return err
	}
	nsym++
	symbols := make([]int, nsym)
	for i := range symbols {
		s, err := reader.ReadBits(maxBits)
		if err != nil {
			return err
		}
		if int(s) >= alphabetSize {
			return formatError("prefix code", i, "symbol %d outside alphabet of %d", s, alphabetSize)
		}
		symbols[i] = int(s)
	}
	for i := 0; i < len(symbols)-1; i++ {
		for j := i + 1; j < len(symbols); j++ {
			if symbols[i] == symbols[j] {
				return formatError("prefix code", j, "duplicate symbol %d", symbols[i])
			}
		}
	}
	treeSelect := false
	if nsym == 4 {
		if treeSelect, err = reader.ReadBool(); err != nil {
			return err
		}
	}

	var lens []int
	switch nsym {
	case 1:
		rcvr.defaultSymbol = symbols[0]
		return nil
	case 2:
		lens = []int{1, 1}
		slices.Sort(symbols)
	case 3:
		lens = []int{1, 2, 2}
		slices.Sort(symbols[1:])
	case 4:
		if treeSelect {
			lens = []int{1, 2, 3, 3}
			slices.Sort(symbols[2:])
		} else {
			lens = []int{2, 2, 2, 2}
			slices.Sort(symbols)
		}
	}
	table, err := NewVLCTableWithSymbols(lens[len(lens)-1], lens, symbols)
	if err != nil {
		return err
	}
	rcvr.table = table
	rcvr.lengths = make([]int, alphabetSize)
	for i, sym := range symbols {
		rcvr.lengths[sym] = lens[i]
	}
	return nil
}

func (rcvr *PrefixCode) populateComplexPrefix(reader jxlio.BitReader, hskip int, alphabetSize int) error {
	level1Lengths := make([]int, codeLengthCodes)
	space := 32
	numCodes := 0
	for i := hskip; i < codeLengthCodes && space > 0; i++ {
		v, err := level0Table.GetVLC(reader)
		if err != nil {
			return err
		}
		level1Lengths[CodeLengthCodeOrder[i]] = v
		if v != 0 {
			space -= 32 >> v
			numCodes++
		}
	}
	if numCodes != 1 && space != 0 {
		return formatError("prefix code", -1, "code length code is not complete")
	}
	level1, err := NewPrefixCodeFromLengths(level1Lengths)
	if err != nil {
		return err
	}

	lengths, err := readHuffmanCodeLengths(reader, level1, alphabetSize)
	if err != nil {
		return err
	}
	code, err := NewPrefixCodeFromLengths(lengths)
	if err != nil {
		return err
	}
	*rcvr = *code
	return nil
}

func readHuffmanCodeLengths(reader jxlio.BitReader, level1 *PrefixCode, alphabetSize int) ([]int, error) {
	lengths := make([]int, alphabetSize)
	symbol := 0
	prevCodeLen := defaultCodeLength
	repeat := 0
	repeatCodeLen := 0
	space := 1 << PrefixMaxBits
	for symbol < alphabetSize && space > 0 {
		codeLen, err := level1.ReadSymbol(reader)
		if err != nil {
			return nil, err
		}
		if codeLen < codeLengthRepeatCode {
			repeat = 0
			lengths[symbol] = codeLen
			symbol++
			if codeLen != 0 {
				prevCodeLen = codeLen
				space -= (1 << PrefixMaxBits) >> codeLen
			}
			continue
		}

		extraBits := codeLen - 14
		newLen := 0
		if codeLen == codeLengthRepeatCode {
			newLen = prevCodeLen
		}
		if repeatCodeLen != newLen {
			repeat = 0
			repeatCodeLen = newLen
		}
		oldRepeat := repeat
		if repeat > 0 {
			repeat = (repeat - 2) << extraBits
		}
		extra, err := reader.ReadBits(extraBits)
		if err != nil {
			return nil, err
		}
		repeat += int(extra) + 3
		delta := repeat - oldRepeat
		if symbol+delta > alphabetSize {
			return nil, formatError("prefix code", symbol, "repeat of %d overruns alphabet of %d", delta, alphabetSize)
		}
		for i := 0; i < delta; i++ {
			lengths[symbol+i] = repeatCodeLen
		}
		symbol += delta
		if repeatCodeLen != 0 {
			space -= delta << (PrefixMaxBits - repeatCodeLen)
		}
	}
	if space != 0 {
		return nil, formatError("prefix code", symbol, "code lengths are not complete")
	}
	return lengths, nil
}

func (rcvr *PrefixCode) ReadSymbol(reader jxlio.BitReader) (int, error) {
	if rcvr.table == nil {
		return rcvr.defaultSymbol, nil
	}
	return rcvr.table.GetVLC(reader)
}

// Lengths returns the code length of every symbol, nil when the code has a single symbol.
func (rcvr *PrefixCode) Lengths() []int {
	return rcvr.lengths
}

// Level0Code returns the LSB first code and length used to store code length code length v.
func Level0Code(v int) (uint32, int) {
	code, length, _ := level0Table.Code(v)
	return code, length
}

// IsSingleSymbol reports whether the code always yields the same symbol without reading bits.
func (rcvr *PrefixCode) IsSingleSymbol() (int, bool) {
	return rcvr.defaultSymbol, rcvr.table == nil
}
