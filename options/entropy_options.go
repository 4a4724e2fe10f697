package options

import (
	"github.com/kpfaulkner/jxl-entropy/util"
)

const (
	MaxWindowSize = 1 << 20
)

type EntropyOptions struct {
	Debug bool

	// Allocator supplies the LZ77 window. Defaults to an unbounded SlicePool.
	Allocator util.Allocator[uint32]

	// WindowSize is the LZ77 window in symbols, a power of two no larger than MaxWindowSize.
	WindowSize int
}

var defaultAllocator = util.NewSlicePool[uint32](0)

func NewEntropyOptions(options *EntropyOptions) *EntropyOptions {

	opt := &EntropyOptions{
		Allocator:  defaultAllocator,
		WindowSize: MaxWindowSize,
	}
	if options != nil {
		opt.Debug = options.Debug
		if options.Allocator != nil {
			opt.Allocator = options.Allocator
		}
		if options.WindowSize > 0 {
			opt.WindowSize = options.WindowSize
		}
	}
	opt.WindowSize = util.Clamp(opt.WindowSize, 1, MaxWindowSize)
	for opt.WindowSize&(opt.WindowSize-1) != 0 {
		// round down to a power of two
		opt.WindowSize &= opt.WindowSize - 1
	}
	return opt
}
