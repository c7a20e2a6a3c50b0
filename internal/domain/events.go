package domain

// EventKind enumerates the events delivered by the streaming service
// client. Events must be processed in delivery order; reordering would
// corrupt the previous/current asset pairing.
type EventKind int

const (
	EventSessionOnline EventKind = iota
	EventSessionOffline
	EventConfigurationLoaded
	EventNoConfiguration
	EventTagsLoaded
	EventContentLoaded
	EventReadyToPlay
	EventUnableToPlay
	EventUserMessage
	EventErrorMessage
	EventStreamMetadata
	EventDisconnected
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventSessionOnline:
		return "session-online"
	case EventSessionOffline:
		return "session-offline"
	case EventConfigurationLoaded:
		return "configuration-loaded"
	case EventNoConfiguration:
		return "no-configuration"
	case EventTagsLoaded:
		return "tags-loaded"
	case EventContentLoaded:
		return "content-loaded"
	case EventReadyToPlay:
		return "ready-to-play"
	case EventUnableToPlay:
		return "unable-to-play"
	case EventUserMessage:
		return "user-message"
	case EventErrorMessage:
		return "error-message"
	case EventStreamMetadata:
		return "stream-metadata-updated"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is one notification from the streaming service client. Message is
// set for user/error messages; the asset fields and Title are set for
// stream metadata updates.
type Event struct {
	Kind            EventKind
	Message         string
	PreviousAssetID int
	CurrentAssetID  int
	Title           string
}
