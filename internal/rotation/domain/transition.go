package domain

// Event is an input to the rotation state machine.
type Event string

const (
	// EventQuorumReached fires when the N-th distinct approval arrives.
	EventQuorumReached Event = "quorum_reached"
	// EventRejected fires on the first rejection; a single veto kills the
	// proposal.
	EventRejected Event = "rejected"
	// EventCancelled fires when the initiator withdraws the proposal.
	EventCancelled Event = "cancelled"
	// EventExpired fires when the actionable window closes.
	EventExpired Event = "expired"
	// EventDriftDetected fires when the live config checksum no longer
	// matches the snapshot checksum.
	EventDriftDetected Event = "drift_detected"
)

// Transition is the single total transition function of the rotation state
// machine. Every status change in the system goes through it. Terminal
// states accept no event.
func Transition(from Status, event Event) (Status, error) {
	if from.IsTerminal() {
		return from, ErrRotationFinalized
	}

	switch event {
	case EventQuorumReached:
		return StatusApproved, nil
	case EventRejected, EventCancelled:
		return StatusRejected, nil
	case EventExpired:
		return StatusExpired, nil
	case EventDriftDetected:
		return StatusStale, nil
	default:
		return from, ErrRotationFinalized
	}
}
