package tether

// State represents the lifecycle state of a Property.
type State int32

const (
	// StatePending indicates the Property is observing its target but no
	// notification has arrived yet.
	StatePending State = iota

	// StateLive indicates at least one value has been relayed and the
	// observation is still running.
	StateLive

	// StateEnded indicates the notification stream has ended, either because
	// the target was released, observation was canceled, or the notifier
	// violated its contract. An ended Property cannot be re-armed.
	StateEnded

	// StateInert indicates the Property was constructed without a target.
	StateInert
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLive:
		return "live"
	case StateEnded:
		return "ended"
	case StateInert:
		return "inert"
	default:
		return "unknown"
	}
}
