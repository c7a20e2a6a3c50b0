// Package bridge carries selection state across the native/web boundary.
// Outbound, it renders the selection list as a JSON payload injected into a
// cached content page; inbound, it parses the private-scheme URIs the page
// navigates to and applies the selection updates they carry.
package bridge

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fieldtone/fieldtone/internal/domain"
)

// Marker is the token inside a content page that Inject replaces with the
// rendered payload.
const Marker = "/*%fieldtone_tags%*/"

type payloadOption struct {
	OptionID int    `json:"optionId"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

type payloadGroup struct {
	TagType string          `json:"tagType"`
	TagID   int             `json:"tagId"`
	Code    string          `json:"code"`
	Label   string          `json:"label"`
	Options []payloadOption `json:"options"`
}

// Payload renders the tag groups of one type as the JSON document the
// selection page expects. Current selection state is included per option.
func Payload(list *domain.SelectionList, tagType string) ([]byte, error) {
	groups := []payloadGroup{}
	view := list.FilterByType(tagType)
	for _, tag := range view.Tags() {
		group := payloadGroup{
			TagType: tag.Type,
			TagID:   tag.ID,
			Code:    tag.Code,
			Label:   tag.Name,
		}
		for _, it := range view.Filter(tag).Items() {
			group.Options = append(group.Options, payloadOption{
				OptionID: it.OptionID,
				Text:     it.Text,
				Selected: it.On(),
			})
		}
		groups = append(groups, group)
	}
	return json.Marshal(groups)
}

// Inject substitutes the payload at the marker token inside a content page.
// A page without the marker is returned unchanged.
func Inject(html, payload []byte) []byte {
	return bytes.Replace(html, []byte(Marker), payload, 1)
}

// ApplySelection applies the fields of a selection message to the list.
// Each field names a tag by code or numeric tag id; its ids fully replace
// that tag's selection. Fields naming no known tag are skipped, and other
// tags are left untouched.
func ApplySelection(list *domain.SelectionList, msg Message) {
	if msg.Kind != MessageSelect {
		return
	}
	for _, f := range msg.Fields {
		tag := findTag(list, f.Key)
		if tag == nil {
			continue
		}
		list.ReplaceSelection(tag, f.IDs)
	}
}

func findTag(list *domain.SelectionList, key string) *domain.Tag {
	for _, tag := range list.Tags() {
		if strings.EqualFold(tag.Code, key) {
			return tag
		}
	}
	if id, err := strconv.Atoi(key); err == nil {
		for _, tag := range list.Tags() {
			if tag.ID == id {
				return tag
			}
		}
	}
	return nil
}
