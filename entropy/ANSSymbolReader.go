package entropy

import (
	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/options"
)

// ANSSymbolReader decodes hybrid integers from a stream coded with an ANSCode, expanding LZ77 back references.
// A reader is not safe for concurrent use; create one per stream.
type ANSSymbolReader struct {
	code  *ANSCode
	state ANSState

	window              []uint32
	windowMask          uint64
	windowSize          uint64
	opts                *options.EntropyOptions
	numToCopy           uint32
	copyPos             uint64
	numDecoded          uint64
	specialDistances    [NumSpecialDistances]uint32
	numSpecialDistances uint32
}

// NewANSSymbolReader starts decoding a stream. For ANS codes it reads the 32 bit initial state.
func NewANSSymbolReader(code *ANSCode, reader jxlio.BitReader, distanceMultiplier int) (*ANSSymbolReader, error) {
	r := &ANSSymbolReader{code: code, state: *NewANSState()}
	if !code.UsePrefixCode {
		s, err := reader.ReadBits(32)
		if err != nil {
			return nil, err
		}
		r.state.SetState(s)
	}
	if !code.LZ77.Enabled {
		return r, nil
	}

	opts := code.opts
	if opts == nil {
		opts = options.NewEntropyOptions(nil)
	}
	window, err := opts.Allocator.Get(opts.WindowSize)
	if err != nil {
		return nil, resourceError("lz77 window", err)
	}
	r.window = window
	r.opts = opts
	r.windowSize = uint64(opts.WindowSize)
	r.windowMask = r.windowSize - 1
	if distanceMultiplier != 0 {
		r.numSpecialDistances = NumSpecialDistances
		for i := range r.specialDistances {
			r.specialDistances[i] = SpecialDistance(i, int32(distanceMultiplier))
		}
	}
	return r, nil
}

// ReadSymbol decodes the next raw token of cluster without expanding it.
func (r *ANSSymbolReader) ReadSymbol(cluster int, reader jxlio.BitReader) (uint32, error) {
	if cluster < 0 || cluster >= len(r.code.dists) {
		return 0, formatError("read symbol", cluster, "cluster out of range [0, %d)", len(r.code.dists))
	}
	return r.code.dists[cluster].ReadSymbol(reader, &r.state)
}

// ReadHybridUint decodes the next value of context ctx. The distance context never starts a back reference.
func (r *ANSSymbolReader) ReadHybridUint(ctx int, reader jxlio.BitReader, contextMap []uint8) (uint32, error) {
	if ctx < 0 || ctx >= len(contextMap) {
		return 0, formatError("read hybrid uint", ctx, "context out of range [0, %d)", len(contextMap))
	}
	allowLZ77 := !r.code.LZ77.Enabled || ctx != r.code.LZ77.DistanceContext
	return r.readHybridUint(int(contextMap[ctx]), reader, allowLZ77)
}

// ReadHybridUintClustered decodes the next value using cluster directly.
func (r *ANSSymbolReader) ReadHybridUintClustered(cluster int, reader jxlio.BitReader) (uint32, error) {
	return r.readHybridUint(cluster, reader, true)
}

func (r *ANSSymbolReader) readHybridUint(cluster int, reader jxlio.BitReader, allowLZ77 bool) (uint32, error) {
	if r.numToCopy > 0 {
		return r.copyFromWindow(), nil
	}

	token, err := r.ReadSymbol(cluster, reader)
	if err != nil {
		return 0, err
	}
	lz77 := &r.code.LZ77
	if lz77.Enabled && allowLZ77 && token >= lz77.MinSymbol {
		return r.startCopy(token, reader)
	}

	value, err := r.code.UintConfigs[cluster].ReadUint(reader, token)
	if err != nil {
		return 0, err
	}
	if r.window != nil {
		r.window[r.numDecoded&r.windowMask] = value
		r.numDecoded++
	}
	return value, nil
}

func (r *ANSSymbolReader) startCopy(token uint32, reader jxlio.BitReader) (uint32, error) {
	lz77 := &r.code.LZ77
	length, err := lz77.LengthConfig.ReadUint(reader, token-lz77.MinSymbol)
	if err != nil {
		return 0, err
	}
	numToCopy := uint64(length) + uint64(lz77.MinLength)
	if numToCopy == 0 || numToCopy > 1<<32-1 {
		return 0, formatError("lz77", -1, "invalid copy length %d", numToCopy)
	}

	distCluster := lz77.DistanceCluster
	distToken, err := r.ReadSymbol(distCluster, reader)
	if err != nil {
		return 0, err
	}
	distance, err := r.code.UintConfigs[distCluster].ReadUint(reader, distToken)
	if err != nil {
		return 0, err
	}
	var dist uint64
	if distance < r.numSpecialDistances {
		dist = uint64(r.specialDistances[distance])
	} else {
		dist = uint64(distance) + 1 - uint64(r.numSpecialDistances)
	}
	dist = min(dist, r.numDecoded, r.windowSize)

	r.numToCopy = uint32(numToCopy)
	r.copyPos = r.numDecoded - dist
	if dist == 0 {
		n := min(uint64(r.numToCopy), r.windowSize)
		for i := uint64(0); i < n; i++ {
			r.window[i] = 0
		}
	}
	return r.copyFromWindow(), nil
}

func (r *ANSSymbolReader) copyFromWindow() uint32 {
	value := r.window[r.copyPos&r.windowMask]
	r.copyPos++
	r.numToCopy--
	r.window[r.numDecoded&r.windowMask] = value
	r.numDecoded++
	return value
}

// IsSingleValueAndAdvance reports whether every value of cluster is known without reading bits.
// If so it records count copies of the value in the LZ77 window.
func (r *ANSSymbolReader) IsSingleValueAndAdvance(cluster int, count int) (uint32, bool) {
	if r.code.UsePrefixCode || cluster < 0 || cluster >= len(r.code.dists) {
		return 0, false
	}
	sym := Lookup(r.code.AliasTable(cluster), r.state.State&(ANSTabSize-1), uint32(ANSLogTabSize-r.code.LogAlphaSize))
	if sym.Freq != ANSTabSize {
		return 0, false
	}
	if r.code.UintConfigs[cluster].SplitToken <= sym.Value {
		return 0, false
	}
	if r.code.LZ77.Enabled && sym.Value >= r.code.LZ77.MinSymbol {
		return 0, false
	}
	if r.window != nil {
		for i := 0; i < count; i++ {
			r.window[r.numDecoded&r.windowMask] = sym.Value
			r.numDecoded++
		}
	}
	return sym.Value, true
}

// CheckFinalState reports whether the stream ended on the ANS signature state. Prefix coded streams always pass.
func (r *ANSSymbolReader) CheckFinalState() bool {
	return r.state.IsFinal()
}

// Release returns the LZ77 window to the allocator.
func (r *ANSSymbolReader) Release() {
	if r.window == nil {
		return
	}
	r.opts.Allocator.Put(r.window)
	r.window = nil
}
