// Package format renders raw MQTT payloads as displayable text.
//
// Payloads are arbitrary bytes. Every function here is total: any
// input, including empty or invalid UTF-8, produces a displayable
// string.
package format

import (
	"bytes"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

const jsonIndent = "  "

// Payload renders a payload for the detail pane: pretty-printed JSON
// when the bytes parse as JSON, lossy UTF-8 text otherwise.
func Payload(payload []byte) string {
	if pretty, ok := PrettyJSON(payload); ok {
		return pretty
	}
	return PayloadUTF8(payload)
}

// PrettyJSON reports whether payload is valid UTF-8 encoded JSON and,
// if so, returns a deterministic pretty-printed rendering. Indenting
// the raw bytes keeps object keys in their source order.
func PrettyJSON(payload []byte) (string, bool) {
	if len(payload) == 0 || !utf8.Valid(payload) || !json.Valid(payload) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", jsonIndent); err != nil {
		return "", false
	}
	return buf.String(), true
}

// PayloadUTF8 decodes payload as UTF-8 text, substituting the Unicode
// replacement character for each invalid byte. Empty payloads render as
// a visible marker so the result is never empty.
func PayloadUTF8(payload []byte) string {
	if len(payload) == 0 {
		return "(empty)"
	}
	if utf8.Valid(payload) {
		return string(payload)
	}
	var b strings.Builder
	b.Grow(len(payload))
	for len(payload) > 0 {
		r, size := utf8.DecodeRune(payload)
		b.WriteRune(r)
		payload = payload[size:]
	}
	return b.String()
}
