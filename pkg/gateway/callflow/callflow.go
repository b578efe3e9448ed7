// Package callflow makes the call lifecycle explicit: a typed state set and
// a transition table driven by the carrier's callbacks. The table exists so
// "every reachable state answers both normal and error input" is a checkable
// property rather than a code-reading exercise; a Tracker follows live calls
// through it.
package callflow

// State is a position in a call's lifecycle. Handlers answer from the
// callback alone; the Tracker records which state each live call occupies.
type State string

const (
	StateInbound           State = "inbound"
	StateAwaitingBridge    State = "awaiting_bridge"
	StateCustomerConnected State = "customer_connected"
	StateListening         State = "listening"
	StateProcessing        State = "processing"
	StateResponding        State = "responding"
	StateTerminated        State = "terminated"
)

// Event is a carrier callback or an internal outcome that advances a call.
type Event string

const (
	// EventDialPlaced: the inbound leg was answered with a dial document.
	EventDialPlaced Event = "dial_placed"
	// EventStreamOpened: the inbound leg was bridged straight to a media stream.
	EventStreamOpened Event = "stream_opened"
	// EventCustomerAnswered: the carrier reports the dialed leg picked up.
	EventCustomerAnswered Event = "customer_answered"
	// EventGreetingPlayed: the greeting gather went out.
	EventGreetingPlayed Event = "greeting_played"
	// EventSpeechCaptured: the carrier delivered recognized speech.
	EventSpeechCaptured Event = "speech_captured"
	// EventSilence: a gather returned without speech.
	EventSilence Event = "silence"
	// EventReplyReady: completion and synthesis produced a playable reply.
	EventReplyReady Event = "reply_ready"
	// EventReplyPlayed: the reply gather went out, listening resumes.
	EventReplyPlayed Event = "reply_played"
	// EventFailure: an unrecoverable internal failure; answer with a spoken
	// goodbye, never with silence.
	EventFailure Event = "failure"
	// EventHangup: the caller or carrier ended the call.
	EventHangup Event = "hangup"
)

var transitions = map[State]map[Event]State{
	StateInbound: {
		EventDialPlaced:   StateAwaitingBridge,
		EventStreamOpened: StateCustomerConnected,
		EventFailure:      StateTerminated,
		EventHangup:       StateTerminated,
	},
	StateAwaitingBridge: {
		EventCustomerAnswered: StateCustomerConnected,
		EventFailure:          StateTerminated,
		EventHangup:           StateTerminated,
	},
	StateCustomerConnected: {
		EventGreetingPlayed: StateListening,
		EventFailure:        StateTerminated,
		EventHangup:         StateTerminated,
	},
	StateListening: {
		EventSpeechCaptured: StateProcessing,
		EventSilence:        StateListening,
		EventFailure:        StateTerminated,
		EventHangup:         StateTerminated,
	},
	StateProcessing: {
		EventReplyReady: StateResponding,
		EventFailure:    StateTerminated,
		EventHangup:     StateTerminated,
	},
	StateResponding: {
		EventReplyPlayed: StateListening,
		EventFailure:     StateTerminated,
		EventHangup:      StateTerminated,
	},
}

// Next returns the state reached from s on e. ok=false means the pair is
// undefined, which handlers treat as a failure transition.
func Next(s State, e Event) (State, bool) {
	next, ok := transitions[s][e]
	return next, ok
}

// Terminal reports whether s has no outgoing transitions.
func Terminal(s State) bool {
	return len(transitions[s]) == 0
}

// States lists every state, terminal included.
func States() []State {
	return []State{
		StateInbound,
		StateAwaitingBridge,
		StateCustomerConnected,
		StateListening,
		StateProcessing,
		StateResponding,
		StateTerminated,
	}
}
