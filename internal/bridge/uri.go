package bridge

import (
	"net/url"
	"strconv"
	"strings"
)

// Scheme is the private URI scheme the embedded selection page uses to talk
// back to the native layer.
const Scheme = "fieldtone"

// Commands carried in the scheme-specific part of a bridge URI.
const (
	commandDone   = "listen_done"
	commandCancel = "webview_done"
)

// MessageKind classifies an inbound bridge URI.
type MessageKind int

const (
	// MessageExternal is any URI outside the private scheme. It is passed
	// through for normal navigation.
	MessageExternal MessageKind = iota

	// MessageDone commits the pending selection.
	MessageDone

	// MessageCancel abandons the pending selection.
	MessageCancel

	// MessageSelect carries selection updates in its fields.
	MessageSelect
)

// Message is one parsed bridge URI.
type Message struct {
	Kind MessageKind
	Raw  string

	// Fields holds the selection updates of a MessageSelect, in query
	// order. Empty for other kinds.
	Fields []Field
}

// Field is one query parameter of a selection message: a tag named by code
// or numeric id, and the option ids that should be selected for it.
type Field struct {
	Key string
	IDs []int
}

// Parse classifies a raw URI. URIs outside the private scheme come back as
// MessageExternal; malformed query fields are skipped rather than failing
// the whole message.
func Parse(raw string) Message {
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Scheme, Scheme) {
		return Message{Kind: MessageExternal, Raw: raw}
	}
	switch {
	case strings.EqualFold(u.Host, commandDone):
		return Message{Kind: MessageDone, Raw: raw}
	case strings.EqualFold(u.Host, commandCancel):
		return Message{Kind: MessageCancel, Raw: raw}
	}
	return Message{Kind: MessageSelect, Raw: raw, Fields: parseFields(u.RawQuery)}
}

// parseFields splits the raw query by hand. The standard query parser turns
// '+' into a space, but here '+' is a list separator, so each field is
// decoded with PathUnescape instead.
func parseFields(rawQuery string) []Field {
	var fields []Field
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		key, err := url.PathUnescape(key)
		if err != nil || key == "" {
			continue
		}
		fields = append(fields, Field{Key: key, IDs: parseIDList(value)})
	}
	return fields
}

func isListSeparator(r rune) bool {
	return r == ',' || r == ';' || r == ':' || r == '+'
}

// parseIDList splits a delimited option id list. Items that do not decode
// to an integer are dropped individually.
func parseIDList(value string) []int {
	var ids []int
	for _, item := range strings.FieldsFunc(value, isListSeparator) {
		item, err := url.PathUnescape(item)
		if err != nil {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
