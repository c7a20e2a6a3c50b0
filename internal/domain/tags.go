package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CatalogSource identifies where catalog data was loaded from
type CatalogSource int

const (
	SourceDefaults CatalogSource = iota
	SourceCache
	SourceServer
)

// SelectMode controls how many options of a tag may be selected at once
type SelectMode string

const (
	SelectSingle          SelectMode = "single"
	SelectMulti           SelectMode = "multi"
	SelectMultiAtLeastOne SelectMode = "multi_at_least_one"
)

// Tag is one named facet of content (e.g. exhibit, theme) with a set of
// selectable options. Tags are immutable once the catalog is loaded.
type Tag struct {
	ID        int        // Numeric tag identifier
	Type      string     // Mode the tag belongs to: "listen", "speak"
	Code      string     // Short machine code, e.g. "exhibit"
	Name      string     // Display label
	Order     int        // Display order within the type
	Select    SelectMode // Selection cardinality rule
	Data      string     // Opaque payload (artwork metadata etc.)
	IsArtwork bool       // Tag carries artwork image data

	Options    []*Option
	DefaultIDs []int // Option ids selected by default
}

// Option is one selectable value under a tag.
type Option struct {
	ID              int    // Unique option identifier, included in server calls
	Order           int    // Display order within the tag
	Text            string // Display text
	Data            string // Opaque payload
	DefaultSelected bool
}

// MinSelected returns the minimum number of options that must be selected
// for the tag, based on its selection mode.
func (t *Tag) MinSelected() int {
	switch t.Select {
	case SelectSingle, SelectMultiAtLeastOne:
		return 1
	}
	return 0
}

// MaxSelected returns the maximum number of options that may be selected.
func (t *Tag) MaxSelected() int {
	if t.Select == SelectSingle {
		return 1
	}
	return len(t.Options)
}

// IsSingleSelect reports whether exactly one option must be selected.
func (t *Tag) IsSingleSelect() bool {
	return t.MinSelected() == 1 && t.MaxSelected() == 1
}

// Catalog holds the full set of tags for one session's configuration.
type Catalog struct {
	tags   []*Tag
	source CatalogSource
}

// catalogTag mirrors the wire format of one tag group.
type catalogTag struct {
	ID       int              `json:"id"`
	Code     string           `json:"code"`
	Name     string           `json:"name"`
	Order    int              `json:"order"`
	Select   string           `json:"select"`
	Artwork  bool             `json:"artwork"`
	Data     string           `json:"data"`
	Defaults []int            `json:"defaults"`
	Options  []catalogOption  `json:"options"`
}

type catalogOption struct {
	TagID int    `json:"tag_id"`
	Order int    `json:"order"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// ParseCatalog builds a catalog from the JSON tag document served by the
// platform. The top-level keys are tag types ("listen", "speak"), each
// holding an array of tag groups with nested options. Tags and options are
// sorted by their order fields.
func ParseCatalog(data []byte, source CatalogSource) (*Catalog, error) {
	var root map[string][]catalogTag
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid tag catalog: %w", err)
	}

	c := &Catalog{source: source}
	for typ, groups := range root {
		for _, g := range groups {
			tag := &Tag{
				ID:         g.ID,
				Type:       typ,
				Code:       g.Code,
				Name:       g.Name,
				Order:      g.Order,
				Select:     SelectMode(strings.ToLower(g.Select)),
				Data:       g.Data,
				IsArtwork:  g.Artwork,
				DefaultIDs: g.Defaults,
			}
			defaults := make(map[int]bool, len(g.Defaults))
			for _, id := range g.Defaults {
				defaults[id] = true
			}
			for _, o := range g.Options {
				tag.Options = append(tag.Options, &Option{
					ID:              o.TagID,
					Order:           o.Order,
					Text:            o.Value,
					Data:            o.Data,
					DefaultSelected: defaults[o.TagID],
				})
			}
			sort.SliceStable(tag.Options, func(i, j int) bool {
				return tag.Options[i].Order < tag.Options[j].Order
			})
			c.tags = append(c.tags, tag)
		}
	}
	sort.SliceStable(c.tags, func(i, j int) bool {
		if c.tags[i].Type != c.tags[j].Type {
			return c.tags[i].Type < c.tags[j].Type
		}
		return c.tags[i].Order < c.tags[j].Order
	})
	return c, nil
}

// Tags returns all tags in display order.
func (c *Catalog) Tags() []*Tag {
	return c.tags
}

// Source returns where the catalog data came from.
func (c *Catalog) Source() CatalogSource {
	return c.source
}

// FilterByType returns a view containing the tags of the given type. Tag
// instances are shared with the source catalog.
func (c *Catalog) FilterByType(typ string) *Catalog {
	out := &Catalog{source: c.source}
	for _, t := range c.tags {
		if strings.EqualFold(t.Type, typ) {
			out.tags = append(out.tags, t)
		}
	}
	return out
}

// FindTag returns the tag with the given code and type, or nil.
func (c *Catalog) FindTag(code, typ string) *Tag {
	for _, t := range c.tags {
		if strings.EqualFold(t.Code, code) && strings.EqualFold(t.Type, typ) {
			return t
		}
	}
	return nil
}

// Types returns the distinct tag types present, sorted.
func (c *Catalog) Types() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.tags {
		key := strings.ToLower(t.Type)
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
