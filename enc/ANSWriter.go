package enc

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/util"
)

const (
	minLogAlphaSize = 5
	maxLogAlphaSize = 8
	prefixLogAlpha  = entropy.PrefixMaxBits
	lz77LengthAlpha = 8
)

// Token is one value to code in a context.
type Token struct {
	Context int
	Value   uint32
	// IsLZ77Length marks the start of a back reference. Value is the copy length minus LZ77.MinLength
	// and the next token must carry the distance code in the distance context.
	IsLZ77Length bool
}

func NewToken(context int, value uint32) Token {
	return Token{Context: context, Value: value}
}

// LZ77Copy returns the two tokens coding a copy of length values from distance values back.
// numContexts excludes the distance context, which comes right after the others.
func LZ77Copy(context int, numContexts int, length uint32, distance uint32, distanceMultiplier int32, lz77 entropy.LZ77Params) ([]Token, error) {
	if !lz77.Enabled {
		return nil, errors.New("lz77 is disabled")
	}
	if length < lz77.MinLength || length == 0 {
		return nil, errors.Errorf("copy length %d below minimum %d", length, lz77.MinLength)
	}
	if distance == 0 {
		return nil, errors.New("copy distance must be positive")
	}
	return []Token{
		{Context: context, Value: length - lz77.MinLength, IsLZ77Length: true},
		{Context: numContexts, Value: DistanceCode(distance, distanceMultiplier)},
	}, nil
}

// DistanceCode returns the value coding distance, preferring a special distance when a multiplier is in use.
func DistanceCode(distance uint32, distanceMultiplier int32) uint32 {
	if distanceMultiplier == 0 {
		return distance - 1
	}
	for i := 0; i < entropy.NumSpecialDistances; i++ {
		if entropy.SpecialDistance(i, distanceMultiplier) == distance {
			return uint32(i)
		}
	}
	return distance + entropy.NumSpecialDistances - 1
}

// EncodingParams chooses how BuildAndEncodeHistograms codes a token stream.
type EncodingParams struct {
	Cluster ClusterParams
	// UintConfig is used for every cluster, (4,2,0) when nil.
	UintConfig    *entropy.HybridIntegerConfig
	LZ77          entropy.LZ77Params
	UsePrefixCode bool
}

func NewEncodingParams() EncodingParams {
	return EncodingParams{
		Cluster:    NewClusterParams(ClusterFast),
		UintConfig: entropy.NewHybridIntegerConfig(4, 2, 0),
	}
}

// EncodedCode is an entropy code as written by BuildAndEncodeHistograms, with what WriteTokens needs.
type EncodedCode struct {
	Code        *entropy.ANSCode
	ContextMap  []uint8
	Clusters    []*Histogram
	NumContexts int

	// reverse[c][s][o] is the table position whose decode yields symbol s with offset o in cluster c
	reverse       [][][]uint16
	prefixLengths [][]int
	prefixCodes   [][]uint32
}

// Release hands the decoder side tables back.
func (ec *EncodedCode) Release() {
	if ec != nil {
		ec.Code.Release()
	}
}

type codedSymbol struct {
	cluster int
	symbol  uint32
	nbits   uint32
	bits    uint32
}

func (p *EncodingParams) uintConfig() *entropy.HybridIntegerConfig {
	if p.UintConfig == nil {
		return entropy.NewHybridIntegerConfig(4, 2, 0)
	}
	return p.UintConfig
}

// toSymbols splits tokens into the raw symbols and extra bits a decoder reads. contextMap may be nil, yielding contexts instead of clusters.
func toSymbols(tokens []Token, numContexts int, contextMap []uint8, config *entropy.HybridIntegerConfig, lz77 entropy.LZ77Params) ([]codedSymbol, error) {
	out := make([]codedSymbol, 0, len(tokens))
	clusterOf := func(ctx int) int {
		if contextMap == nil {
			return ctx
		}
		return int(contextMap[ctx])
	}
	distanceContext := -1
	if lz77.Enabled {
		distanceContext = numContexts - 1
	}
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Context < 0 || t.Context >= numContexts {
			return nil, errors.Errorf("token %d: context %d outside [0, %d)", i, t.Context, numContexts)
		}
		if t.IsLZ77Length {
			if !lz77.Enabled || t.Context == distanceContext {
				return nil, errors.Errorf("token %d: back reference not allowed in context %d", i, t.Context)
			}
			if i+1 >= len(tokens) || tokens[i+1].Context != distanceContext || tokens[i+1].IsLZ77Length {
				return nil, errors.Errorf("token %d: back reference without distance", i)
			}
			tok, nbits, bits := lz77.LengthConfig.Encode(t.Value)
			out = append(out, codedSymbol{cluster: clusterOf(t.Context), symbol: lz77.MinSymbol + tok, nbits: nbits, bits: bits})
			i++
			t = tokens[i]
			tok, nbits, bits = config.Encode(t.Value)
			out = append(out, codedSymbol{cluster: clusterOf(t.Context), symbol: tok, nbits: nbits, bits: bits})
			continue
		}
		tok, nbits, bits := config.Encode(t.Value)
		if lz77.Enabled && t.Context != distanceContext && tok >= lz77.MinSymbol {
			return nil, errors.Errorf("token %d: value %d collides with back reference symbols", i, t.Value)
		}
		out = append(out, codedSymbol{cluster: clusterOf(t.Context), symbol: tok, nbits: nbits, bits: bits})
	}
	return out, nil
}

func writeLZ77Params(writer *jxlio.BitWriter, lz77 entropy.LZ77Params) error {
	writer.WriteBool(lz77.Enabled)
	if !lz77.Enabled {
		return nil
	}
	if err := writer.WriteU32(lz77.MinSymbol, 224, 0, 512, 0, 4096, 0, 8, 15); err != nil {
		return errors.Wrap(err, "lz77 min symbol")
	}
	if err := writer.WriteU32(lz77.MinLength, 3, 0, 4, 0, 5, 2, 9, 8); err != nil {
		return errors.Wrap(err, "lz77 min length")
	}
	return lz77.LengthConfig.Write(writer, lz77LengthAlpha)
}

// BuildAndEncodeHistograms clusters the contexts used by tokens, then writes the LZ77 parameters,
// context map, uint configs and one histogram or prefix code per cluster in the layout DecodeHistograms reads.
// numContexts excludes the LZ77 distance context.
func BuildAndEncodeHistograms(params EncodingParams, numContexts int, tokens []Token, writer *jxlio.BitWriter) (*EncodedCode, error) {
	if numContexts <= 0 {
		return nil, errors.Errorf("number of contexts must be positive, got %d", numContexts)
	}
	config := params.uintConfig()
	lz77 := params.LZ77
	if lz77.Enabled {
		if lz77.LengthConfig == nil {
			lz77.LengthConfig = entropy.NewHybridIntegerConfig(0, 0, 0)
		}
		numContexts++
		lz77.DistanceContext = numContexts - 1
	}

	symbols, err := toSymbols(tokens, numContexts, nil, config, lz77)
	if err != nil {
		return nil, err
	}
	raw := make([]*Histogram, numContexts)
	for i := range raw {
		raw[i] = NewHistogram()
	}
	maxSymbol := uint32(0)
	for _, s := range symbols {
		raw[s.cluster].Add(s.symbol)
		maxSymbol = max(maxSymbol, s.symbol)
	}

	clusters, assignment, err := ClusterHistograms(params.Cluster, raw)
	if err != nil {
		return nil, err
	}
	contextMap := make([]uint8, numContexts)
	for i, a := range assignment {
		contextMap[i] = uint8(a)
	}
	if lz77.Enabled {
		lz77.DistanceCluster = int(contextMap[lz77.DistanceContext])
	}

	logAlphaSize := prefixLogAlpha
	if !params.UsePrefixCode {
		logAlphaSize = max(minLogAlphaSize, util.CeilLog2(maxSymbol+1))
		if logAlphaSize > maxLogAlphaSize {
			return nil, errors.Errorf("symbol %d needs a larger alphabet than ANS coding allows", maxSymbol)
		}
	} else if maxSymbol >= 1<<prefixLogAlpha {
		return nil, errors.Errorf("symbol %d exceeds prefix alphabet", maxSymbol)
	}

	if err := writeLZ77Params(writer, lz77); err != nil {
		return nil, err
	}
	if numContexts > 1 {
		if err := WriteContextMap(writer, contextMap, len(clusters)); err != nil {
			return nil, errors.Wrap(err, "context map")
		}
	}
	writer.WriteBool(params.UsePrefixCode)
	if !params.UsePrefixCode {
		if err := writer.Write(2, uint64(logAlphaSize-minLogAlphaSize)); err != nil {
			return nil, err
		}
	}
	configs := make([]*entropy.HybridIntegerConfig, len(clusters))
	for c := range configs {
		configs[c] = config
		if err := config.Write(writer, logAlphaSize); err != nil {
			return nil, errors.Wrapf(err, "uint config %d", c)
		}
	}

	ec := &EncodedCode{ContextMap: contextMap, Clusters: clusters, NumContexts: numContexts}
	if params.UsePrefixCode {
		err = ec.writePrefixCodes(writer, configs, lz77)
	} else {
		err = ec.writeANSHistograms(writer, logAlphaSize, configs, lz77)
	}
	if err != nil {
		return nil, err
	}
	log.Debugf("encoded %d tokens over %d contexts into %d clusters, prefix %v, %d bits written",
		len(tokens), numContexts, len(clusters), params.UsePrefixCode, writer.BitsWritten())
	return ec, nil
}

func (ec *EncodedCode) writeANSHistograms(writer *jxlio.BitWriter, logAlphaSize int, configs []*entropy.HybridIntegerConfig, lz77 entropy.LZ77Params) error {
	histograms := make([][]int32, len(ec.Clusters))
	for c, h := range ec.Clusters {
		counts, _, err := BestNormalization(h.Counts)
		if err != nil {
			return errors.Wrapf(err, "normalising cluster %d", c)
		}
		if err := WriteHistogram(writer, counts, entropy.ANSLogTabSize); err != nil {
			return errors.Wrapf(err, "histogram %d", c)
		}
		histograms[c] = counts
	}
	code, err := entropy.NewANSCode(logAlphaSize, histograms, configs, lz77, nil)
	if err != nil {
		return err
	}
	ec.Code = code

	logEntrySize := uint32(entropy.ANSLogTabSize - logAlphaSize)
	ec.reverse = make([][][]uint16, len(histograms))
	for c, counts := range histograms {
		ec.reverse[c] = make([][]uint16, len(counts))
		for s, n := range counts {
			ec.reverse[c][s] = make([]uint16, n)
		}
		table := code.AliasTable(c)
		for pos := uint32(0); pos < entropy.ANSTabSize; pos++ {
			sym := entropy.Lookup(table, pos, logEntrySize)
			ec.reverse[c][sym.Value][sym.Offset] = uint16(pos)
		}
	}
	return nil
}

func (ec *EncodedCode) writePrefixCodes(writer *jxlio.BitWriter, configs []*entropy.HybridIntegerConfig, lz77 entropy.LZ77Params) error {
	ec.prefixLengths = make([][]int, len(ec.Clusters))
	ec.prefixCodes = make([][]uint32, len(ec.Clusters))
	for c, h := range ec.Clusters {
		counts := util.TrimTrailingZeros(h.Counts)
		if len(counts) == 0 {
			counts = []int32{1}
		}
		lengths, err := BuildPrefixCodeLengths(counts, entropy.PrefixMaxBits)
		if err != nil {
			return errors.Wrapf(err, "prefix code %d", c)
		}
		ec.prefixLengths[c] = lengths
		ec.prefixCodes[c] = canonicalCodes(lengths)
		if err := writer.WriteU16(len(lengths) - 1); err != nil {
			return err
		}
	}
	codes := make([]*entropy.PrefixCode, len(ec.Clusters))
	for c, lengths := range ec.prefixLengths {
		if err := WritePrefixCode(writer, lengths, len(lengths)); err != nil {
			return errors.Wrapf(err, "prefix code %d", c)
		}
		pc, err := entropy.NewPrefixCodeFromLengths(lengths)
		if err != nil {
			return err
		}
		codes[c] = pc
	}
	code, err := entropy.NewPrefixANSCode(codes, configs, lz77, nil)
	if err != nil {
		return err
	}
	ec.Code = code
	return nil
}

// WriteTokens writes tokens with code so an ANSSymbolReader built from the decoded header reads them back.
func WriteTokens(tokens []Token, code *EncodedCode, writer *jxlio.BitWriter) error {
	symbols, err := toSymbols(tokens, code.NumContexts, code.ContextMap, code.Code.UintConfigs[0], code.Code.LZ77)
	if err != nil {
		return err
	}
	if code.Code.UsePrefixCode {
		return code.writePrefixSymbols(symbols, writer)
	}
	return code.writeANSSymbols(symbols, writer)
}

func (ec *EncodedCode) writePrefixSymbols(symbols []codedSymbol, writer *jxlio.BitWriter) error {
	for _, s := range symbols {
		if _, single := ec.Code.PrefixCode(s.cluster).IsSingleSymbol(); !single {
			if err := writeSymbol(writer, ec.prefixLengths[s.cluster], ec.prefixCodes[s.cluster], int(s.symbol)); err != nil {
				return err
			}
		} else if ec.Code.DegenerateSymbols[s.cluster] != int(s.symbol) {
			return errors.Errorf("symbol %d not coded by cluster %d", s.symbol, s.cluster)
		}
		if err := writer.Write(int(s.nbits), uint64(s.bits)); err != nil {
			return err
		}
	}
	return nil
}

// writeANSSymbols runs the rANS encoder over symbols in reverse, then writes the initial state
// followed by each symbol's renormalisation bits and extra bits in decode order.
func (ec *EncodedCode) writeANSSymbols(symbols []codedSymbol, writer *jxlio.BitWriter) error {
	state := uint32(entropy.ANSFinalState)
	flushed := make([]int32, len(symbols))
	for i := len(symbols) - 1; i >= 0; i-- {
		s := symbols[i]
		flushed[i] = -1
		rev := ec.reverse[s.cluster]
		if int(s.symbol) >= len(rev) || len(rev[s.symbol]) == 0 {
			return errors.Errorf("symbol %d has zero frequency in cluster %d", s.symbol, s.cluster)
		}
		freq := uint32(len(rev[s.symbol]))
		if state>>(32-entropy.ANSLogTabSize) >= freq {
			flushed[i] = int32(state & 0xFFFF)
			state >>= 16
		}
		state = (state/freq)<<entropy.ANSLogTabSize + uint32(rev[s.symbol][state%freq])
	}

	if err := writer.Write(32, uint64(state)); err != nil {
		return err
	}
	for i, s := range symbols {
		if flushed[i] >= 0 {
			if err := writer.Write(16, uint64(flushed[i])); err != nil {
				return err
			}
		}
		if err := writer.Write(int(s.nbits), uint64(s.bits)); err != nil {
			return err
		}
	}
	return nil
}
