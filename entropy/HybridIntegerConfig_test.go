package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/testcommon"
)

func TestDecodeUintConfig(t *testing.T) {

	for _, tc := range []struct {
		name         string
		readBitsData []uint32
		logAlpha     int
		expected     *HybridIntegerConfig
		expectKind   ErrorKind
	}{
		{
			name:         "default config",
			readBitsData: []uint32{4, 2, 0},
			logAlpha:     8,
			expected:     NewHybridIntegerConfig(4, 2, 0),
		},
		{
			name:         "split equals log alphabet",
			readBitsData: []uint32{8},
			logAlpha:     8,
			expected:     NewHybridIntegerConfig(8, 0, 0),
		},
		{
			name:         "split exceeds log alphabet",
			readBitsData: []uint32{9},
			logAlpha:     8,
			expectKind:   KindFormat,
		},
		{
			name:         "msb exceeds split",
			readBitsData: []uint32{4, 5},
			logAlpha:     8,
			expectKind:   KindFormat,
		},
		{
			name:         "msb plus lsb exceeds split",
			readBitsData: []uint32{4, 2, 3},
			logAlpha:     8,
			expectKind:   KindFormat,
		},
		{
			name:         "no data",
			readBitsData: []uint32{},
			logAlpha:     8,
			expectKind:   KindInsufficientData,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			reader := testcommon.NewFakeBitReader()
			reader.ReadBitsData = tc.readBitsData

			config, err := DecodeUintConfig(reader, tc.logAlpha)
			if tc.expectKind != KindUnknown {
				require.Error(t, err)
				assert.Equal(t, tc.expectKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, config)
		})
	}
}

func TestReadUint(t *testing.T) {

	for _, tc := range []struct {
		name         string
		config       *HybridIntegerConfig
		token        uint32
		readBitsData []uint32
		expected     uint32
	}{
		{
			name:     "token below split",
			config:   NewHybridIntegerConfig(4, 2, 0),
			token:    5,
			expected: 5,
		},
		{
			name:         "first split token",
			config:       NewHybridIntegerConfig(4, 2, 0),
			token:        16,
			readBitsData: []uint32{3},
			expected:     19,
		},
		{
			name:         "larger token",
			config:       NewHybridIntegerConfig(4, 2, 0),
			token:        26,
			readBitsData: []uint32{4},
			expected:     100,
		},
		{
			name:         "lsb in token",
			config:       NewHybridIntegerConfig(4, 1, 1),
			token:        38,
			readBitsData: []uint32{116},
			expected:     1000,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			reader := testcommon.NewFakeBitReader()
			reader.ReadBitsData = tc.readBitsData

			value, err := tc.config.ReadUint(reader, tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, value)
			assert.Empty(t, reader.ReadBitsData)
		})
	}
}

func TestHybridUintEncodeInvertsReadUint(t *testing.T) {

	values := []uint32{0, 1, 2, 15, 16, 17, 100, 1000, 65535, 1<<24 + 5}
	for _, tc := range []struct {
		name   string
		config *HybridIntegerConfig
	}{
		{name: "4,2,0", config: NewHybridIntegerConfig(4, 2, 0)},
		{name: "4,1,1", config: NewHybridIntegerConfig(4, 1, 1)},
		{name: "0,0,0", config: NewHybridIntegerConfig(0, 0, 0)},
		{name: "8,0,0", config: NewHybridIntegerConfig(8, 0, 0)},
		{name: "6,3,3", config: NewHybridIntegerConfig(6, 3, 3)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			writer := jxlio.NewBitWriter()
			tokens := make([]uint32, len(values))
			for i, v := range values {
				token, nbits, bits := tc.config.Encode(v)
				tokens[i] = token
				require.NoError(t, writer.Write(int(nbits), uint64(bits)))
			}

			reader := testcommon.ReaderFor(writer)
			for i, v := range values {
				got, err := tc.config.ReadUint(reader, tokens[i])
				require.NoError(t, err)
				assert.Equal(t, v, got, "value %d", v)
			}
		})
	}
}

func TestHybridIntegerConfigWrite(t *testing.T) {

	for _, tc := range []struct {
		name      string
		config    *HybridIntegerConfig
		logAlpha  int
		expectErr bool
	}{
		{name: "default", config: NewHybridIntegerConfig(4, 2, 0), logAlpha: 8},
		{name: "full split", config: NewHybridIntegerConfig(8, 0, 0), logAlpha: 8},
		{name: "prefix alphabet", config: NewHybridIntegerConfig(10, 3, 4), logAlpha: 15},
		{name: "zero split", config: NewHybridIntegerConfig(0, 0, 0), logAlpha: 5},
		{name: "split too large", config: NewHybridIntegerConfig(9, 0, 0), logAlpha: 8, expectErr: true},
		{name: "full split with msb", config: NewHybridIntegerConfig(8, 1, 0), logAlpha: 8, expectErr: true},
		{name: "msb plus lsb too large", config: NewHybridIntegerConfig(4, 3, 2), logAlpha: 8, expectErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			writer := jxlio.NewBitWriter()
			err := tc.config.Write(writer, tc.logAlpha)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			got, err := DecodeUintConfig(testcommon.ReaderFor(writer), tc.logAlpha)
			require.NoError(t, err)
			assert.Equal(t, tc.config, got)
		})
	}
}
