package domain

import (
	"testing"
)

const sampleCatalogJSON = `{
	"listen": [
		{
			"id": 5, "code": "exhibit", "name": "Exhibit", "order": 1,
			"select": "single", "defaults": [1],
			"options": [
				{"tag_id": 2, "order": 2, "value": "Legion"},
				{"tag_id": 1, "order": 1, "value": "De Young"}
			]
		},
		{
			"id": 6, "code": "theme", "name": "Theme", "order": 2,
			"select": "multi", "defaults": [],
			"options": [
				{"tag_id": 10, "order": 1, "value": "History"},
				{"tag_id": 11, "order": 2, "value": "Architecture"}
			]
		}
	],
	"speak": [
		{
			"id": 7, "code": "question", "name": "Question", "order": 1,
			"select": "multi_at_least_one",
			"options": [
				{"tag_id": 20, "order": 1, "value": "A Memory"}
			]
		}
	]
}`

func sampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := ParseCatalog([]byte(sampleCatalogJSON), SourceServer)
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return c
}

func TestParseCatalogOrdering(t *testing.T) {
	c := sampleCatalog(t)

	tags := c.Tags()
	if len(tags) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(tags))
	}
	// Sorted by type, then order within type.
	if tags[0].Code != "exhibit" || tags[1].Code != "theme" || tags[2].Code != "question" {
		t.Fatalf("unexpected tag order: %s, %s, %s", tags[0].Code, tags[1].Code, tags[2].Code)
	}

	// Options sorted by their order field, not wire order.
	exhibit := tags[0]
	if exhibit.Options[0].Text != "De Young" || exhibit.Options[1].Text != "Legion" {
		t.Fatalf("unexpected option order: %s, %s", exhibit.Options[0].Text, exhibit.Options[1].Text)
	}
}

func TestParseCatalogDefaults(t *testing.T) {
	c := sampleCatalog(t)

	exhibit := c.FindTag("exhibit", "listen")
	if exhibit == nil {
		t.Fatal("exhibit tag not found")
	}
	if !exhibit.Options[0].DefaultSelected {
		t.Fatal("expected De Young to be default-selected")
	}
	if exhibit.Options[1].DefaultSelected {
		t.Fatal("expected Legion not to be default-selected")
	}
}

func TestParseCatalogInvalid(t *testing.T) {
	if _, err := ParseCatalog([]byte("not json"), SourceServer); err == nil {
		t.Fatal("expected error for invalid catalog data")
	}
}

func TestFindTagCaseInsensitive(t *testing.T) {
	c := sampleCatalog(t)
	if c.FindTag("EXHIBIT", "Listen") == nil {
		t.Fatal("expected case-insensitive tag lookup to succeed")
	}
	if c.FindTag("exhibit", "speak") != nil {
		t.Fatal("expected lookup with wrong type to fail")
	}
}

func TestFilterByTypeAndTypes(t *testing.T) {
	c := sampleCatalog(t)

	listen := c.FilterByType("listen")
	if len(listen.Tags()) != 2 {
		t.Fatalf("expected 2 listen tags, got %d", len(listen.Tags()))
	}

	types := c.Types()
	if len(types) != 2 || types[0] != "listen" || types[1] != "speak" {
		t.Fatalf("unexpected types: %v", types)
	}
}

func TestSelectModeBounds(t *testing.T) {
	c := sampleCatalog(t)
	tests := []struct {
		code    string
		typ     string
		min     int
		max     int
		single  bool
	}{
		{"exhibit", "listen", 1, 1, true},
		{"theme", "listen", 0, 2, false},
		// A one-option at-least-one tag is effectively single-select.
		{"question", "speak", 1, 1, true},
	}
	for _, tt := range tests {
		tag := c.FindTag(tt.code, tt.typ)
		if tag == nil {
			t.Fatalf("tag %s not found", tt.code)
		}
		if tag.MinSelected() != tt.min {
			t.Fatalf("%s: expected min %d, got %d", tt.code, tt.min, tag.MinSelected())
		}
		if tag.MaxSelected() != tt.max {
			t.Fatalf("%s: expected max %d, got %d", tt.code, tt.max, tag.MaxSelected())
		}
		if tag.IsSingleSelect() != tt.single {
			t.Fatalf("%s: expected single-select %v", tt.code, tt.single)
		}
	}
}
