package entropy

const (
	ANSSignature  = 0x13
	ANSFinalState = ANSSignature << 16
)

// ANSState is the running rANS state shared by every cluster of one reader.
type ANSState struct {
	State    uint32
	HasState bool
}

func NewANSState() *ANSState {
	return &ANSState{State: ANSFinalState}
}

func (rcvr *ANSState) SetState(state uint32) {
	rcvr.State = state
	rcvr.HasState = true
}

func (rcvr *ANSState) Reset() {
	rcvr.State = ANSFinalState
	rcvr.HasState = false
}

// IsFinal reports whether the state holds the end of stream signature.
func (rcvr *ANSState) IsFinal() bool {
	return rcvr.State == ANSFinalState
}
