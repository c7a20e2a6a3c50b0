package domain

// ContentFilesInfo describes the web content bundle a project configuration
// references. A changed URL or version means the local bundle is stale.
type ContentFilesInfo struct {
	FilesURL     string `json:"files_url"`
	FilesVersion int    `json:"files_version"`
	FilesDirName string `json:"files_dir"`
}

// Same reports whether the local bundle described by other still matches.
func (i ContentFilesInfo) Same(other ContentFilesInfo) bool {
	return i.FilesURL == other.FilesURL && i.FilesVersion == other.FilesVersion
}

// Store is the persistence boundary: device identity, selection state,
// content bundle bookkeeping, and namespaced JSON documents for cached
// server responses. Implementations must be safe for concurrent use.
type Store interface {
	// DeviceID returns the stable device identifier, generating and
	// persisting one on first call.
	DeviceID() (string, error)

	// SaveSelection persists the option id -> selected map.
	SaveSelection(state map[int]bool) error

	// LoadSelection returns the persisted selection map. A store with no
	// saved selection returns an empty map and no error.
	LoadSelection() (map[int]bool, error)

	// ContentInfo returns the recorded content bundle info. ok is false
	// when none has been recorded yet.
	ContentInfo() (info ContentFilesInfo, ok bool, err error)

	// SaveContentInfo records the content bundle info.
	SaveContentInfo(info ContentFilesInfo) error

	// GetDoc unmarshals the JSON document stored under ns/key into v.
	// Returns ErrNotFound when absent.
	GetDoc(ns, key string, v any) error

	// PutDoc marshals v and stores it under ns/key.
	PutDoc(ns, key string, v any) error

	// Close releases the underlying database.
	Close() error
}
