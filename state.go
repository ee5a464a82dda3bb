package main

type streamState int

const (
	stateClosed streamState = iota
	stateConnected
	stateEndOfStream
	stateUnknownError
)

func (s streamState) String() string {
	switch s {
	case stateClosed:
		return "Closed"
	case stateConnected:
		return "Connected"
	case stateEndOfStream:
		return "EndOfStream"
	}
	return "UnknownError"
}

type streamEvent int

const (
	eventHandshakeDone streamEvent = iota
	eventConnectFailed
	eventResponse
	eventConnectionClose
	eventEndOfStream
	eventTransportError
	eventDisconnect
	eventReconnect
)

// effect is the side effect a session performs on its transport handle
// after a transition.
type effect int

const (
	effectNone effect = iota
	// effectShutdown sends close_notify and closes the socket.
	effectShutdown
	// effectDiscard drops the handle without a TLS goodbye.
	effectDiscard
)

// transition is the whole session state machine. A response keeps the
// current state; "Connection: close" moves to Closed and leaves the
// transport alone until the next reconnect.
func transition(s streamState, e streamEvent) (streamState, effect) {
	switch e {
	case eventHandshakeDone:
		return stateConnected, effectNone
	case eventConnectFailed:
		return stateUnknownError, effectDiscard
	case eventResponse:
		return s, effectNone
	case eventConnectionClose:
		return stateClosed, effectNone
	case eventEndOfStream:
		return stateEndOfStream, effectShutdown
	case eventTransportError:
		return stateUnknownError, effectNone
	case eventDisconnect:
		return stateClosed, effectShutdown
	case eventReconnect:
		return stateClosed, effectDiscard
	}
	return s, effectNone
}
