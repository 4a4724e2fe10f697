package entropy

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/options"
	"github.com/kpfaulkner/jxl-entropy/util"
)

const (
	MaxClusters        = 256
	ANSMaxAlphabetSize = 256
	maxLogAlphaSize    = 8
	minLogAlphaSize    = 5
	lz77LengthLogAlpha = 8
)

var aliasTablePool = util.NewSlicePool[AliasEntry](0)

// LZ77Params describes back reference coding. A token at or above MinSymbol is a copy length.
type LZ77Params struct {
	Enabled      bool
	MinSymbol    uint32
	MinLength    uint32
	LengthConfig *HybridIntegerConfig
	// DistanceContext is the context index whose cluster codes copy distances, always the last one.
	DistanceContext int
	// DistanceCluster is the cluster DistanceContext maps to.
	DistanceCluster int
}

// ANSCode is the decoded entropy code header. It is read only once built and may be shared between readers.
type ANSCode struct {
	UsePrefixCode bool
	LogAlphaSize  int
	UintConfigs   []*HybridIntegerConfig
	// DegenerateSymbols holds, per cluster, the symbol owning the whole range or -1.
	DegenerateSymbols []int
	LZ77              LZ77Params
	// Histograms holds the normalised counts per cluster when ANS coded.
	Histograms [][]int32

	aliasTables []AliasEntry
	prefixCodes []*PrefixCode
	dists       []SymbolDistribution
	opts        *options.EntropyOptions
}

// NewANSCode builds an ANS coded entropy code from per cluster histograms summing to ANSTabSize.
func NewANSCode(logAlphaSize int, histograms [][]int32, configs []*HybridIntegerConfig, lz77 LZ77Params, opts *options.EntropyOptions) (*ANSCode, error) {
	if logAlphaSize < minLogAlphaSize || logAlphaSize > maxLogAlphaSize {
		return nil, formatError("ans code", -1, "log alphabet size %d outside [%d, %d]", logAlphaSize, minLogAlphaSize, maxLogAlphaSize)
	}
	if len(histograms) == 0 || len(histograms) > MaxClusters || len(configs) != len(histograms) {
		return nil, formatError("ans code", -1, "%d histograms with %d configs", len(histograms), len(configs))
	}

	if err := lz77.validate(len(histograms)); err != nil {
		return nil, err
	}

	tableSize := 1 << logAlphaSize
	tables, err := aliasTablePool.Get(len(histograms) * tableSize)
	if err != nil {
		return nil, resourceError("ans code", err)
	}
	code := &ANSCode{
		LogAlphaSize:      logAlphaSize,
		UintConfigs:       configs,
		DegenerateSymbols: make([]int, len(histograms)),
		LZ77:              lz77,
		Histograms:        histograms,
		aliasTables:       tables,
		dists:             make([]SymbolDistribution, len(histograms)),
		opts:              options.NewEntropyOptions(opts),
	}
	logEntrySize := uint32(ANSLogTabSize - logAlphaSize)
	for c, counts := range histograms {
		if len(counts) > tableSize {
			code.Release()
			return nil, formatError("ans code", c, "histogram has %d symbols, alphabet allows %d", len(counts), tableSize)
		}
		counts = util.TrimTrailingZeros(counts)
		code.DegenerateSymbols[c] = -1
		if len(counts) == 0 {
			code.DegenerateSymbols[c] = 0
		}
		for s, v := range counts {
			if v == ANSTabSize {
				code.DegenerateSymbols[c] = s
				break
			}
		}
		table := tables[c*tableSize : (c+1)*tableSize]
		if err := initAliasTableInto(table, counts, ANSLogTabSize, logAlphaSize); err != nil {
			code.Release()
			return nil, errors.Wrapf(err, "cluster %d", c)
		}
		code.dists[c] = &aliasDistribution{table: table, logEntrySize: logEntrySize}
	}
	return code, nil
}

// NewPrefixANSCode builds a prefix coded entropy code.
func NewPrefixANSCode(codes []*PrefixCode, configs []*HybridIntegerConfig, lz77 LZ77Params, opts *options.EntropyOptions) (*ANSCode, error) {
	if len(codes) == 0 || len(codes) > MaxClusters || len(configs) != len(codes) {
		return nil, formatError("ans code", -1, "%d prefix codes with %d configs", len(codes), len(configs))
	}
	if err := lz77.validate(len(codes)); err != nil {
		return nil, err
	}
	code := &ANSCode{
		UsePrefixCode:     true,
		LogAlphaSize:      PrefixMaxBits,
		UintConfigs:       configs,
		DegenerateSymbols: make([]int, len(codes)),
		LZ77:              lz77,
		prefixCodes:       codes,
		dists:             make([]SymbolDistribution, len(codes)),
		opts:              options.NewEntropyOptions(opts),
	}
	for c, pc := range codes {
		code.DegenerateSymbols[c] = -1
		if sym, ok := pc.IsSingleSymbol(); ok {
			code.DegenerateSymbols[c] = sym
		}
		code.dists[c] = &prefixDistribution{code: pc}
	}
	return code, nil
}

func (lz77 *LZ77Params) validate(numClusters int) error {
	if !lz77.Enabled {
		return nil
	}
	if lz77.LengthConfig == nil {
		return formatError("lz77", -1, "missing length config")
	}
	if lz77.DistanceCluster < 0 || lz77.DistanceCluster >= numClusters {
		return formatError("lz77", lz77.DistanceCluster, "distance cluster out of range [0, %d)", numClusters)
	}
	return nil
}

// DecodeHistograms reads the LZ77 parameters, the context map and one distribution per cluster for numContexts contexts.
// When LZ77 is enabled the returned context map has one extra entry for the distance context.
func DecodeHistograms(reader jxlio.BitReader, numContexts int, disallowLZ77 bool, opts *options.EntropyOptions) (*ANSCode, []uint8, error) {
	if numContexts <= 0 {
		return nil, nil, formatError("histograms", -1, "number of contexts must be positive, got %d", numContexts)
	}
	opts = options.NewEntropyOptions(opts)
	startBits := reader.BitsRead()

	lz77, err := decodeLZ77Params(reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "lz77 parameters")
	}
	if lz77.Enabled {
		if disallowLZ77 {
			return nil, nil, formatError("histograms", -1, "nested distributions cannot use LZ77")
		}
		numContexts++
		lz77.DistanceContext = numContexts - 1
	}

	contextMap := make([]uint8, numContexts)
	numClusters := 1
	if numContexts > 1 {
		contextMap, numClusters, err = DecodeContextMap(reader, numContexts, opts)
		if err != nil {
			return nil, nil, errors.Wrap(err, "context map")
		}
	}

	if lz77.Enabled {
		lz77.DistanceCluster = int(contextMap[lz77.DistanceContext])
	}

	usePrefixCode, err := reader.ReadBool()
	if err != nil {
		return nil, nil, err
	}
	logAlphaSize := PrefixMaxBits
	if !usePrefixCode {
		v, err := reader.ReadBits(2)
		if err != nil {
			return nil, nil, err
		}
		logAlphaSize = minLogAlphaSize + int(v)
	}

	configs := make([]*HybridIntegerConfig, numClusters)
	for c := range configs {
		if configs[c], err = DecodeUintConfig(reader, logAlphaSize); err != nil {
			return nil, nil, errors.Wrapf(err, "uint config %d", c)
		}
	}

	var code *ANSCode
	if usePrefixCode {
		code, err = decodePrefixCodes(reader, configs, lz77, opts)
	} else {
		code, err = decodeANSCodes(reader, logAlphaSize, configs, lz77, opts)
	}
	if err != nil {
		return nil, nil, err
	}

	log.Debugf("entropy code: %d contexts, %d clusters, prefix %v, log alphabet %d, lz77 %v, %d bits",
		numContexts, numClusters, usePrefixCode, logAlphaSize, lz77.Enabled, reader.BitsRead()-startBits)
	return code, contextMap, nil
}

func decodeLZ77Params(reader jxlio.BitReader) (LZ77Params, error) {
	var lz77 LZ77Params
	var err error
	if lz77.Enabled, err = reader.ReadBool(); err != nil || !lz77.Enabled {
		return lz77, err
	}
	if lz77.MinSymbol, err = reader.ReadU32(224, 0, 512, 0, 4096, 0, 8, 15); err != nil {
		return lz77, err
	}
	if lz77.MinLength, err = reader.ReadU32(3, 0, 4, 0, 5, 2, 9, 8); err != nil {
		return lz77, err
	}
	lz77.LengthConfig, err = DecodeUintConfig(reader, lz77LengthLogAlpha)
	return lz77, err
}

func decodePrefixCodes(reader jxlio.BitReader, configs []*HybridIntegerConfig, lz77 LZ77Params, opts *options.EntropyOptions) (*ANSCode, error) {
	alphabetSizes := make([]int, len(configs))
	for c := range alphabetSizes {
		v, err := reader.ReadU16()
		if err != nil {
			return nil, err
		}
		alphabetSizes[c] = v + 1
		if alphabetSizes[c] > 1<<PrefixMaxBits {
			return nil, formatError("prefix codes", c, "alphabet size %d exceeds %d", alphabetSizes[c], 1<<PrefixMaxBits)
		}
	}
	codes := make([]*PrefixCode, len(configs))
	for c := range codes {
		pc, err := DecodePrefixCode(reader, alphabetSizes[c])
		if err != nil {
			return nil, errors.Wrapf(err, "prefix code %d", c)
		}
		codes[c] = pc
	}
	return NewPrefixANSCode(codes, configs, lz77, opts)
}

func decodeANSCodes(reader jxlio.BitReader, logAlphaSize int, configs []*HybridIntegerConfig, lz77 LZ77Params, opts *options.EntropyOptions) (*ANSCode, error) {
	histograms := make([][]int32, len(configs))
	for c := range histograms {
		counts, err := DecodeHistogram(reader, ANSLogTabSize)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding histogram %d", c)
		}
		if len(counts) > 1<<logAlphaSize {
			return nil, formatError("histograms", c, "histogram has %d symbols, alphabet allows %d", len(counts), 1<<logAlphaSize)
		}
		histograms[c] = counts
	}
	return NewANSCode(logAlphaSize, histograms, configs, lz77, opts)
}

func (code *ANSCode) NumClusters() int {
	return len(code.dists)
}

// AliasTable returns the alias table of cluster, or nil for prefix codes and released codes.
func (code *ANSCode) AliasTable(cluster int) []AliasEntry {
	if code.UsePrefixCode || code.aliasTables == nil {
		return nil
	}
	tableSize := 1 << code.LogAlphaSize
	return code.aliasTables[cluster*tableSize : (cluster+1)*tableSize]
}

// PrefixCode returns the prefix code of cluster, or nil for ANS codes.
func (code *ANSCode) PrefixCode(cluster int) *PrefixCode {
	if !code.UsePrefixCode {
		return nil
	}
	return code.prefixCodes[cluster]
}

// Release hands the alias table storage back. The code must not be used afterwards.
func (code *ANSCode) Release() {
	if code == nil || code.aliasTables == nil {
		return
	}
	aliasTablePool.Put(code.aliasTables)
	code.aliasTables = nil
	code.dists = nil
}
