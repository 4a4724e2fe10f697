package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/testcommon"
	"github.com/kpfaulkner/jxl-entropy/util"
)

// writeNestedPrefixHeader writes a single context, prefix coded entropy code whose values are
// the symbols of a simple prefix code over alphabetSize with the given symbols.
func writeNestedPrefixHeader(t *testing.T, w *jxlio.BitWriter, alphabetSize int, symbols []uint64) {
	// no lz77, prefix coded
	w.WriteBool(false)
	w.WriteBool(true)
	require.NoError(t, NewHybridIntegerConfig(4, 0, 0).Write(w, PrefixMaxBits))
	require.NoError(t, w.WriteU16(alphabetSize-1))
	require.NoError(t, w.Write(2, 1))
	require.NoError(t, w.Write(2, uint64(len(symbols)-1)))
	for _, s := range symbols {
		require.NoError(t, w.Write(util.CeilLog1p(alphabetSize-1), s))
	}
}

func TestDecodeContextMap(t *testing.T) {

	for _, tc := range []struct {
		name        string
		numContexts int
		write       func(t *testing.T, w *jxlio.BitWriter)
		expected    []uint8
		numClusters int
		expectKind  ErrorKind
	}{
		{
			name:        "simple zero bits",
			numContexts: 4,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(true)
				require.NoError(t, w.Write(2, 0))
			},
			expected:    []uint8{0, 0, 0, 0},
			numClusters: 1,
		},
		{
			name:        "simple one bit",
			numContexts: 4,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(true)
				require.NoError(t, w.Write(2, 1))
				for _, b := range []uint64{0, 1, 1, 0} {
					require.NoError(t, w.Write(1, b))
				}
			},
			expected:    []uint8{0, 1, 1, 0},
			numClusters: 2,
		},
		{
			name:        "simple with unused cluster",
			numContexts: 2,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(true)
				require.NoError(t, w.Write(2, 2))
				require.NoError(t, w.Write(2, 0))
				require.NoError(t, w.Write(2, 2))
			},
			expectKind: KindFormat,
		},
		{
			name:        "complex prefix coded",
			numContexts: 3,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(false)
				w.WriteBool(false)
				writeNestedPrefixHeader(t, w, 2, []uint64{0, 1})
				for _, b := range []uint64{0, 1, 0} {
					require.NoError(t, w.Write(1, b))
				}
			},
			expected:    []uint8{0, 1, 0},
			numClusters: 2,
		},
		{
			name:        "complex with move to front",
			numContexts: 3,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(false)
				w.WriteBool(true)
				writeNestedPrefixHeader(t, w, 2, []uint64{0, 1})
				for _, b := range []uint64{0, 1, 1} {
					require.NoError(t, w.Write(1, b))
				}
			},
			expected:    []uint8{0, 1, 0},
			numClusters: 2,
		},
		{
			name:        "complex cluster id too large",
			numContexts: 2,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(false)
				w.WriteBool(false)
				// 300 is token 20 with 8 extra bits under (4,0,0)
				writeNestedPrefixHeader(t, w, 21, []uint64{20})
				require.NoError(t, w.Write(8, 44))
				require.NoError(t, w.Write(8, 44))
			},
			expectKind: KindFormat,
		},
		{
			name:        "complex nested lz77 with two contexts",
			numContexts: 2,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(false)
				w.WriteBool(false)
				w.WriteBool(true)
				require.NoError(t, w.WriteU32(224, 224, 0, 512, 0, 4096, 0, 8, 15))
				require.NoError(t, w.WriteU32(3, 3, 0, 4, 0, 5, 2, 9, 8))
				require.NoError(t, NewHybridIntegerConfig(0, 0, 0).Write(w, 8))
			},
			expectKind: KindFormat,
		},
		{
			name:        "truncated",
			numContexts: 40,
			write: func(t *testing.T, w *jxlio.BitWriter) {
				w.WriteBool(true)
				require.NoError(t, w.Write(2, 3))
			},
			expectKind: KindInsufficientData,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := jxlio.NewBitWriter()
			tc.write(t, w)

			contextMap, numClusters, err := DecodeContextMap(testcommon.ReaderFor(w), tc.numContexts, nil)
			if tc.expectKind != KindUnknown {
				require.Error(t, err)
				assert.Equal(t, tc.expectKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, contextMap)
			assert.Equal(t, tc.numClusters, numClusters)
		})
	}
}

func TestVerifyContextMap(t *testing.T) {

	for _, tc := range []struct {
		name        string
		contextMap  []uint8
		numClusters int
		expectErr   bool
	}{
		{name: "all used", contextMap: []uint8{0, 1, 2}, numClusters: 3},
		{name: "gap", contextMap: []uint8{0, 2}, expectErr: true},
		{name: "single cluster", contextMap: []uint8{0, 0}, numClusters: 1},
		{name: "out of order", contextMap: []uint8{2, 0, 1, 1}, numClusters: 3},
		{name: "missing zero", contextMap: []uint8{1, 1}, expectErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			n, err := VerifyContextMap(tc.contextMap)
			if tc.expectErr {
				require.Error(t, err)
				assert.True(t, IsFormatError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.numClusters, n)
		})
	}
}

func TestMoveToFront(t *testing.T) {

	for _, tc := range []struct {
		name     string
		values   []uint8
		expected []uint8
	}{
		{name: "repeats", values: []uint8{3, 3, 0, 1, 3}, expected: []uint8{3, 0, 1, 2, 2}},
		{name: "identity start", values: []uint8{0, 0, 0}, expected: []uint8{0, 0, 0}},
		{name: "large ids", values: []uint8{255, 0, 255}, expected: []uint8{255, 1, 1}},
		{name: "empty", values: []uint8{}, expected: []uint8{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ranks := MoveToFront(tc.values)
			assert.Equal(t, tc.expected, ranks)

			InverseMoveToFront(ranks)
			assert.Equal(t, tc.values, ranks)
		})
	}
}

func TestInverseMoveToFrontHighRanks(t *testing.T) {

	for _, tc := range []struct {
		name     string
		ranks    []uint8
		expected []uint8
	}{
		{name: "rank 255 alone", ranks: []uint8{255}, expected: []uint8{255}},
		{name: "rank 255 twice", ranks: []uint8{255, 255}, expected: []uint8{255, 254}},
		{name: "rank 254 then front", ranks: []uint8{254, 0, 1}, expected: []uint8{254, 254, 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			values := append([]uint8{}, tc.ranks...)
			assert.NotPanics(t, func() { InverseMoveToFront(values) })
			assert.Equal(t, tc.expected, values)
			assert.Equal(t, tc.ranks, MoveToFront(values))
		})
	}

	every := make([]uint8, 512)
	for i := range every {
		every[i] = uint8(255 - i%256)
	}
	ranks := MoveToFront(every)
	InverseMoveToFront(ranks)
	assert.Equal(t, every, ranks)
}

func TestDecodeContextMapReplay(t *testing.T) {
	w := jxlio.NewBitWriter()
	w.WriteBool(true)
	require.NoError(t, w.Write(2, 2))
	for _, c := range []uint64{0, 1, 1, 2, 0, 2} {
		require.NoError(t, w.Write(2, c))
	}

	recorder := testcommon.NewBitReaderRecorder(testcommon.ReaderFor(w))
	want, wantClusters, err := DecodeContextMap(recorder, 6, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 1, 2, 0, 2}, want)
	assert.Equal(t, 3, wantClusters)
	assert.Equal(t, []bool{true}, recorder.ReadBoolData)
	assert.Len(t, recorder.ReadBitsData, 7)

	fake := recorder.Replay()
	got, gotClusters, err := DecodeContextMap(fake, 6, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, wantClusters, gotClusters)
	assert.Empty(t, fake.ReadBitsData)
	assert.Equal(t, uint64(15), fake.BitsRead())
}
