package session

// State is the session lifecycle state. Exactly one is current at a time.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnectedIdle
	StateOnline
	StateTagsLoaded
	StateContentLoaded
	StateOffline
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnectedIdle:
		return "connected-idle"
	case StateOnline:
		return "online"
	case StateTagsLoaded:
		return "tags-loaded"
	case StateContentLoaded:
		return "content-loaded"
	case StateOffline:
		return "offline"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Connected reports whether the service session is established and usable.
// Offline and Error are excluded: playback-affecting commands are no-ops
// there.
func (s State) Connected() bool {
	switch s {
	case StateConnectedIdle, StateOnline, StateTagsLoaded, StateContentLoaded:
		return true
	}
	return false
}
