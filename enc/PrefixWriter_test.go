package enc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/testcommon"
)

func fibonacciCounts(n int) []int32 {
	counts := make([]int32, n)
	a, b := int32(1), int32(1)
	for i := range counts {
		counts[i] = a
		a, b = b, a+b
	}
	return counts
}

func kraftSum(lengths []int, maxBits int) int {
	sum := 0
	for _, l := range lengths {
		if l > 0 {
			sum += 1 << (maxBits - l)
		}
	}
	return sum
}

func TestBuildPrefixCodeLengths(t *testing.T) {

	for _, tc := range []struct {
		name    string
		counts  []int32
		maxBits int
	}{
		{name: "two symbols", counts: []int32{5, 1}, maxBits: 15},
		{name: "with gaps", counts: []int32{0, 7, 0, 3, 3, 1}, maxBits: 15},
		{name: "fibonacci unlimited", counts: fibonacciCounts(20), maxBits: 20},
		{name: "fibonacci limited", counts: fibonacciCounts(20), maxBits: 7},
		{name: "wide alphabet", counts: repeatedCounts(300, 3), maxBits: 15},
	} {
		t.Run(tc.name, func(t *testing.T) {
			lengths, err := BuildPrefixCodeLengths(tc.counts, tc.maxBits)
			require.NoError(t, err)
			for i, l := range lengths {
				assert.LessOrEqual(t, l, tc.maxBits)
				assert.Equal(t, tc.counts[i] > 0, l > 0, "symbol %d", i)
			}
			assert.Equal(t, 1<<tc.maxBits, kraftSum(lengths, tc.maxBits))
		})
	}
}

func TestBuildPrefixCodeLengthsEdgeCases(t *testing.T) {
	lengths, err := BuildPrefixCodeLengths([]int32{0, 0, 9}, 15)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1}, lengths)

	lengths, err = BuildPrefixCodeLengths([]int32{0, 0}, 15)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, lengths)

	_, err = BuildPrefixCodeLengths(repeatedCounts(5, 1), 2)
	assert.Error(t, err)

	// more frequent symbols never get longer codes
	lengths, err = BuildPrefixCodeLengths([]int32{100, 50, 25, 12, 6, 3}, 15)
	require.NoError(t, err)
	for i := 1; i < len(lengths); i++ {
		assert.LessOrEqual(t, lengths[i-1], lengths[i])
	}
}

// repeatedCounts returns n counts of c.
func repeatedCounts(n int, c int32) []int32 {
	counts := make([]int32, n)
	for i := range counts {
		counts[i] = c
	}
	return counts
}

func TestPrefixCodeRoundTrip(t *testing.T) {

	for _, tc := range []struct {
		name         string
		counts       []int32
		alphabetSize int
	}{
		{name: "one symbol", counts: []int32{0, 0, 0, 12}, alphabetSize: 10},
		{name: "two symbols", counts: []int32{3, 0, 9}, alphabetSize: 3},
		{name: "three symbols", counts: []int32{1, 10, 1}, alphabetSize: 40},
		{name: "four flat", counts: []int32{5, 5, 5, 5}, alphabetSize: 4},
		{name: "four skewed", counts: []int32{100, 20, 0, 0, 0, 1, 1}, alphabetSize: 1 << 15},
		{name: "complex", counts: []int32{9, 3, 3, 3, 1, 1}, alphabetSize: 6},
		{name: "complex one length", counts: repeatedCounts(8, 4), alphabetSize: 8},
		{name: "complex with gaps", counts: []int32{40, 0, 0, 9, 9, 0, 2, 2, 2, 2, 0, 1}, alphabetSize: 64},
		{name: "complex deep", counts: fibonacciCounts(24), alphabetSize: 24},
		{name: "complex wide", counts: repeatedCounts(256, 7), alphabetSize: 256},
	} {
		t.Run(tc.name, func(t *testing.T) {
			lengths, err := BuildPrefixCodeLengths(tc.counts, entropy.PrefixMaxBits)
			require.NoError(t, err)

			w := jxlio.NewBitWriter()
			require.NoError(t, WritePrefixCode(w, lengths, tc.alphabetSize))
			codes := canonicalCodes(lengths)
			var symbols []int
			for round := 0; round < 3; round++ {
				for s, c := range tc.counts {
					if c > 0 {
						symbols = append(symbols, s)
					}
				}
			}
			single := 0
			for _, l := range lengths {
				if l > 0 {
					single++
				}
			}
			for _, s := range symbols {
				if single > 1 {
					require.NoError(t, writeSymbol(w, lengths, codes, s))
				}
			}

			reader := testcommon.ReaderFor(w)
			code, err := entropy.DecodePrefixCode(reader, tc.alphabetSize)
			require.NoError(t, err)
			for _, expected := range symbols {
				s, err := code.ReadSymbol(reader)
				require.NoError(t, err)
				assert.Equal(t, expected, s)
			}
			assert.Equal(t, w.BitsWritten(), reader.BitsRead())
		})
	}
}

func TestWritePrefixCodeAlphabetOne(t *testing.T) {
	w := jxlio.NewBitWriter()
	require.NoError(t, WritePrefixCode(w, []int{1}, 1))
	assert.Zero(t, w.BitsWritten())
}

func TestWritePrefixCodeErrors(t *testing.T) {

	for _, tc := range []struct {
		name         string
		lengths      []int
		alphabetSize int
	}{
		{name: "no symbols", lengths: []int{0, 0}, alphabetSize: 2},
		{name: "outside alphabet", lengths: []int{1, 0, 1}, alphabetSize: 2},
		{name: "not a simple shape", lengths: []int{1, 3, 3}, alphabetSize: 3},
		{name: "too long", lengths: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 16}, alphabetSize: 17},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, WritePrefixCode(jxlio.NewBitWriter(), tc.lengths, tc.alphabetSize))
		})
	}
}

func TestWriteSymbolWithoutCode(t *testing.T) {
	lengths := []int{1, 0, 1}
	assert.Error(t, writeSymbol(jxlio.NewBitWriter(), lengths, canonicalCodes(lengths), 1))
	assert.Error(t, writeSymbol(jxlio.NewBitWriter(), lengths, canonicalCodes(lengths), 3))
}
