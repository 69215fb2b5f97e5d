package lms1xx

import "sync/atomic"

// ConnState is the link state of a Device.
type ConnState uint32

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// atomicConnState holds a ConnState readable from any goroutine. Transitions
// are only made by the goroutine driving the Device.
type atomicConnState struct {
	state atomic.Uint32
}

func (st *atomicConnState) Get() ConnState {
	return ConnState(st.state.Load())
}

func (st *atomicConnState) IsConnected() bool {
	return st.Get() == Connected
}

// ToConnecting moves Disconnected to Connecting. It fails in any other state.
func (st *atomicConnState) ToConnecting() bool {
	return st.state.CompareAndSwap(uint32(Disconnected), uint32(Connecting))
}

// ToConnected moves Connecting to Connected.
func (st *atomicConnState) ToConnected() bool {
	if st.IsConnected() {
		return true
	}

	return st.state.CompareAndSwap(uint32(Connecting), uint32(Connected))
}

// ToDisconnected moves any state to Disconnected and reports whether the
// state changed.
func (st *atomicConnState) ToDisconnected() bool {
	return ConnState(st.state.Swap(uint32(Disconnected))) != Disconnected
}
