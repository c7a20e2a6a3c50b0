package domain

// NoAsset is the sentinel asset id meaning "none".
const NoAsset = -1

// VoteType is a user rating attached to an asset.
type VoteType string

const (
	VoteLike VoteType = "like"
	VoteFlag VoteType = "flag"
)

// Vote is a rating queued against an asset, sent once the asset stops
// being current.
type Vote struct {
	AssetID int
	Type    VoteType
	Value   string
}

// PlaybackRecord tracks which asset the stream is currently delivering and
// which one it delivered before. Both default to NoAsset and reset whenever
// playback stops.
type PlaybackRecord struct {
	CurrentAssetID  int
	PreviousAssetID int
}

// NewPlaybackRecord returns a record with no current or previous asset.
func NewPlaybackRecord() PlaybackRecord {
	return PlaybackRecord{CurrentAssetID: NoAsset, PreviousAssetID: NoAsset}
}

// Update installs the asset pairing reported by a metadata event. Both ids
// come from the event so the pairing can never go inconsistent.
func (r *PlaybackRecord) Update(previousAssetID, currentAssetID int) {
	r.PreviousAssetID = previousAssetID
	r.CurrentAssetID = currentAssetID
}

// Reset clears both slots back to NoAsset.
func (r *PlaybackRecord) Reset() {
	r.CurrentAssetID = NoAsset
	r.PreviousAssetID = NoAsset
}
