package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/testcommon"
)

// writeSingleSymbolHeader writes a one context ANS code whose only symbol is sym.
func writeSingleSymbolHeader(t *testing.T, w *jxlio.BitWriter, sym int) {
	w.WriteBool(false)
	w.WriteBool(false)
	require.NoError(t, w.Write(2, 0))
	require.NoError(t, NewHybridIntegerConfig(4, 2, 0).Write(w, 5))
	w.WriteBool(true)
	w.WriteBool(false)
	require.NoError(t, w.WriteU8(sym))
}

func TestDecodeHistogramsSingleSymbol(t *testing.T) {

	for _, tc := range []struct {
		name       string
		finalState uint64
		validFinal bool
	}{
		{name: "canonical final state", finalState: ANSFinalState, validFinal: true},
		{name: "broken final state", finalState: ANSFinalState + 1, validFinal: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := jxlio.NewBitWriter()
			writeSingleSymbolHeader(t, w, 3)
			require.NoError(t, w.Write(32, tc.finalState))
			reader := testcommon.ReaderFor(w)

			code, contextMap, err := DecodeHistograms(reader, 1, false, nil)
			require.NoError(t, err)
			defer code.Release()
			assert.Equal(t, []uint8{0}, contextMap)
			assert.False(t, code.UsePrefixCode)
			assert.Equal(t, 5, code.LogAlphaSize)
			assert.Equal(t, []int{3}, code.DegenerateSymbols)
			assert.Equal(t, 1, code.NumClusters())
			assert.Len(t, code.AliasTable(0), 32)
			assert.Nil(t, code.PrefixCode(0))

			r, err := NewANSSymbolReader(code, reader, 0)
			require.NoError(t, err)
			for i := 0; i < 3; i++ {
				v, err := r.ReadHybridUint(0, reader, contextMap)
				require.NoError(t, err)
				assert.Equal(t, uint32(3), v)
			}
			assert.Equal(t, tc.validFinal, r.CheckFinalState())
		})
	}
}

func TestDecodeHistogramsLZ77Header(t *testing.T) {
	w := jxlio.NewBitWriter()
	w.WriteBool(true)
	require.NoError(t, w.WriteU32(224, 224, 0, 512, 0, 4096, 0, 8, 15))
	require.NoError(t, w.WriteU32(3, 3, 0, 4, 0, 5, 2, 9, 8))
	require.NoError(t, NewHybridIntegerConfig(0, 0, 0).Write(w, 8))
	// simple context map, every context in cluster 0
	w.WriteBool(true)
	require.NoError(t, w.Write(2, 0))
	w.WriteBool(true)
	require.NoError(t, NewHybridIntegerConfig(4, 2, 0).Write(w, PrefixMaxBits))
	require.NoError(t, w.WriteU16(0))

	code, contextMap, err := DecodeHistograms(testcommon.ReaderFor(w), 1, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0}, contextMap)
	assert.True(t, code.UsePrefixCode)
	assert.Equal(t, LZ77Params{
		Enabled:         true,
		MinSymbol:       224,
		MinLength:       3,
		LengthConfig:    NewHybridIntegerConfig(0, 0, 0),
		DistanceContext: 1,
		DistanceCluster: 0,
	}, code.LZ77)
	assert.NotNil(t, code.PrefixCode(0))
	assert.Nil(t, code.AliasTable(0))
}

func TestDecodeHistogramsErrors(t *testing.T) {

	for _, tc := range []struct {
		name         string
		numContexts  int
		disallowLZ77 bool
		write        func(t *testing.T, w *jxlio.BitWriter)
		expectKind   ErrorKind
	}{
		{
			name:        "no contexts",
			numContexts: 0,
			write:       func(t *testing.T, w *jxlio.BitWriter) {},
			expectKind:  KindFormat,
		},
		{
			name:         "lz77 where disallowed",
			numContexts:  1,
			disallowLZ77: true,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(true)
				require.NoError(t, w.WriteU32(224, 224, 0, 512, 0, 4096, 0, 8, 15))
				require.NoError(t, w.WriteU32(3, 3, 0, 4, 0, 5, 2, 9, 8))
				require.NoError(t, NewHybridIntegerConfig(0, 0, 0).Write(w, 8))
			},
			expectKind: KindFormat,
		},
		{
			name:        "histogram larger than alphabet",
			numContexts: 1,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				writeSingleSymbolHeader(t, w, 40)
			},
			expectKind: KindFormat,
		},
		{
			name:        "truncated",
			numContexts: 1,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(false)
			},
			expectKind: KindInsufficientData,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := jxlio.NewBitWriter()
			tc.write(t, w)

			_, _, err := DecodeHistograms(testcommon.ReaderFor(w), tc.numContexts, tc.disallowLZ77, nil)
			require.Error(t, err)
			assert.Equal(t, tc.expectKind, KindOf(err))
		})
	}
}

func TestNewANSCodeErrors(t *testing.T) {
	config := []*HybridIntegerConfig{NewHybridIntegerConfig(4, 2, 0)}
	flat := [][]int32{CreateFlatHistogram(4, ANSTabSize)}

	for _, tc := range []struct {
		name       string
		logAlpha   int
		histograms [][]int32
		configs    []*HybridIntegerConfig
		lz77       LZ77Params
	}{
		{name: "log alphabet too small", logAlpha: 4, histograms: flat, configs: config},
		{name: "log alphabet too large", logAlpha: 9, histograms: flat, configs: config},
		{name: "no histograms", logAlpha: 5, configs: config},
		{name: "config count mismatch", logAlpha: 5, histograms: flat},
		{name: "bad sum", logAlpha: 5, histograms: [][]int32{{1, 2}}, configs: config},
		{name: "too many symbols", logAlpha: 5, histograms: [][]int32{CreateFlatHistogram(33, ANSTabSize)}, configs: config},
		{name: "lz77 without length config", logAlpha: 5, histograms: flat, configs: config, lz77: LZ77Params{Enabled: true}},
		{
			name:       "lz77 distance cluster out of range",
			logAlpha:   5,
			histograms: flat,
			configs:    config,
			lz77:       LZ77Params{Enabled: true, LengthConfig: NewHybridIntegerConfig(0, 0, 0), DistanceCluster: 1},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewANSCode(tc.logAlpha, tc.histograms, tc.configs, tc.lz77, nil)
			require.Error(t, err)
			assert.True(t, IsFormatError(err))
		})
	}
}

func TestANSCodeReleaseTwice(t *testing.T) {
	code, err := NewANSCode(5, [][]int32{{4096}}, []*HybridIntegerConfig{NewHybridIntegerConfig(4, 2, 0)}, LZ77Params{}, nil)
	require.NoError(t, err)
	code.Release()
	code.Release()
	assert.Nil(t, code.AliasTable(0))
}
