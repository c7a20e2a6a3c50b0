package roundware

import (
	"encoding/json"
	"fmt"
)

// The platform's config endpoint answers with an array of single-key
// objects, one per section.
type configDocument struct {
	Device  configDevice  `json:"device"`
	Session configSession `json:"session"`
	Project configProject `json:"project"`
}

type configDevice struct {
	DeviceID string `json:"device_id"`
}

type configSession struct {
	SessionID int `json:"session_id"`
}

type configProject struct {
	ProjectID         int    `json:"project_id"`
	Name              string `json:"project_name"`
	ListenEnabled     bool   `json:"listen_enabled"`
	GeoListenEnabled  bool   `json:"geo_listen_enabled"`
	FilesURL          string `json:"files_url"`
	FilesVersion      int    `json:"files_version"`
	SharingMessage    string `json:"sharing_message"`
	OutOfRangeMessage string `json:"out_of_range_message"`
}

// parseConfigDocument folds the section array into one document. Sections
// with unknown keys are ignored.
func parseConfigDocument(data []byte) (*configDocument, error) {
	var sections []map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("invalid config document: %w", err)
	}
	doc := &configDocument{}
	for _, section := range sections {
		for key, raw := range section {
			var err error
			switch key {
			case "device":
				err = json.Unmarshal(raw, &doc.Device)
			case "session":
				err = json.Unmarshal(raw, &doc.Session)
			case "project":
				err = json.Unmarshal(raw, &doc.Project)
			}
			if err != nil {
				return nil, fmt.Errorf("invalid config section %q: %w", key, err)
			}
		}
	}
	return doc, nil
}

type streamResponse struct {
	StreamURL string `json:"stream_url"`
}

type currentAssetResponse struct {
	AssetID int    `json:"asset_id"`
	Title   string `json:"title"`
}

// errorResponse is how the server reports operation failures inside a 200
// reply.
type errorResponse struct {
	ErrorMessage string `json:"error_message"`
}

func operationError(body []byte) error {
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.ErrorMessage != "" {
		return fmt.Errorf("server rejected operation: %s", e.ErrorMessage)
	}
	return nil
}
