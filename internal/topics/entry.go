// Package topics builds the topic tree shown in the overview pane.
//
// The tree is derived purely from the delimited topic paths in a history
// snapshot: there is no explicit graph. It is rebuilt from scratch on
// every redraw, so nodes carry no identity across frames — all
// navigation state is keyed by the topic path string and re-resolved
// against the fresh tree.
package topics

import (
	"fmt"
	"strings"

	"github.com/lukepighetti/mqttui/internal/format"
)

// Separator delimits the segments of a topic path.
const Separator = "/"

// Entry is one node of the topic tree.
type Entry struct {
	// Topic is the full delimited path and the node's stable identity.
	Topic string

	// Leaf is the final path segment, used as the display label.
	Leaf string

	// Messages counts messages received on exactly this topic. Zero for
	// nodes that exist only as a path prefix of other topics.
	Messages int

	// LastPayload is the most recent payload received on exactly this
	// topic, nil when Messages is zero. Never inherited from descendants.
	LastPayload []byte

	// TopicsBelow counts all proper descendant topics.
	TopicsBelow int

	// MessagesBelow sums Messages over all proper descendants.
	MessagesBelow int

	// Children holds the direct children, ordered by Leaf. The list is
	// exclusively owned by this entry.
	Children []*Entry
}

// Depth is the nesting depth of the entry, zero for root-level nodes.
// Topic segments never contain the separator, so counting separators in
// the full path is exact.
func (e *Entry) Depth() int {
	return strings.Count(e.Topic, Separator)
}

// Meta is the secondary display text for the entry: the latest payload
// when the topic itself has received messages, otherwise a summary of
// the subtree beneath it.
func (e *Entry) Meta() string {
	if e.Messages == 0 {
		return fmt.Sprintf("(%d topics, %d messages)", e.TopicsBelow, e.MessagesBelow)
	}
	return "= " + oneLine(format.PayloadUTF8(e.LastPayload))
}

// oneLine collapses a payload preview onto a single display line.
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
