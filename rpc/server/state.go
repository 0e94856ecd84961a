package server

// ServerState is the lifecycle state of a pipe server
type ServerState int32

const (
	StateIdle ServerState = iota
	StateWaitingForConnection
	StateServing
	StateStopping
)

// String returns the string representation of a ServerState.
func (s ServerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForConnection:
		return "waiting for connection"
	case StateServing:
		return "serving"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// State returns the current lifecycle state
func (s *PipeServer) State() ServerState {
	return ServerState(s.state.Load())
}

func (s *PipeServer) setState(state ServerState) {
	s.state.Store(int32(state))
}

// setStateUnlessStopping changes the state unless a stop is in progress
func (s *PipeServer) setStateUnlessStopping(state ServerState) {
	for {
		current := s.state.Load()
		if ServerState(current) == StateStopping {
			return
		}
		if s.state.CompareAndSwap(current, int32(state)) {
			return
		}
	}
}
