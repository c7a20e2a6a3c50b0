package domain

import "context"

// Preferences are the user settings pushed to the streaming client on
// connect and whenever they change.
type Preferences struct {
	Volume               int
	OnlyWiFi             bool
	MockLatitude         float64
	MockLongitude        float64
	BufferLengthSec      int
	ShowDetailedMessages bool
}

// StreamClient is the streaming service facade the session controller
// drives. Implementations deliver lifecycle and stream events through the
// Events channel, in order. Blocking operations take a context; playback
// state accessors are safe for concurrent use.
type StreamClient interface {
	// Connect establishes the service session for the device and project.
	Connect(ctx context.Context, deviceID string, projectID int) error

	// Disconnect tears the session down. Safe to call when not connected.
	Disconnect()

	// Events returns the ordered event channel. The channel is closed when
	// the client disconnects.
	Events() <-chan Event

	// ApplyPreferences pushes user settings to the service.
	ApplyPreferences(p Preferences)

	// Catalog returns the tag catalog loaded for the session, or nil when
	// tags have not loaded yet.
	Catalog() *Catalog

	// Start requests a stream filtered by the given option ids and begins
	// playback.
	Start(ctx context.Context, tagIDs []int) error

	// FadeIn ramps playback up to the given volume from the muted state.
	FadeIn(level int)

	// FadeOut ramps the volume down without stopping the stream. The
	// stream keeps flowing muted so playback can resume with FadeIn.
	FadeOut()

	// Stop halts the stream entirely.
	Stop()

	IsPlaying() bool
	IsPlayingMuted() bool
	Volume() int
	SetVolume(level int)

	// ModifyStream re-filters the active stream by the given option ids.
	ModifyStream(ctx context.Context, tagIDs []int) error

	// Vote submits a rating for an asset.
	Vote(ctx context.Context, v Vote) error

	// QueueSize reports how many failed actions are queued for retry.
	QueueSize() int

	// DeleteQueue discards all queued actions.
	DeleteQueue()

	// ReadContentFile returns the named file from the cached content bundle.
	ReadContentFile(name string) ([]byte, error)

	// ContentFilesDir returns the local directory holding the content bundle.
	ContentFilesDir() string
}
