package entropy

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/util"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindFormat is a violated bitstream invariant.
	KindFormat
	// KindInsufficientData means the bit source ran out.
	KindInsufficientData
	// KindResource means the allocator refused a request.
	KindResource
)

func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindInsufficientData:
		return "insufficient data"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is returned for every malformed stream condition detected by this package.
type Error struct {
	Kind ErrorKind
	Op   string
	// Pos is the symbol, slot or context index the problem was found at, -1 if none applies.
	Pos int
	Msg string
	Err error
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Msg
	if e.Pos >= 0 {
		s = fmt.Sprintf("%s (at %d)", s, e.Pos)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

func formatError(op string, pos int, format string, args ...any) error {
	return &Error{Kind: KindFormat, Op: op, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func resourceError(op string, err error) error {
	return &Error{Kind: KindResource, Op: op, Pos: -1, Msg: "allocation refused", Err: err}
}

// KindOf classifies err, looking through any wrapping.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, jxlio.ErrInsufficientData) {
		return KindInsufficientData
	}
	if errors.Is(err, util.ErrBudgetExceeded) {
		return KindResource
	}
	return KindUnknown
}

func IsFormatError(err error) bool {
	return KindOf(err) == KindFormat
}

func IsInsufficientData(err error) bool {
	return KindOf(err) == KindInsufficientData
}

func IsResourceError(err error) bool {
	return KindOf(err) == KindResource
}
