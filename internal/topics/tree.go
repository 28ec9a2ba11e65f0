package topics

import (
	"sort"
	"strings"

	"github.com/lukepighetti/mqttui/internal/history"
)

// Build converts a flat topic→history map into an ordered forest.
//
// Paths are partitioned by their first segment, recursing on the
// remaining suffixes, so an entry exists for every key in logs and for
// every strict prefix of a key. An entry's own Messages and LastPayload
// come only from an exact key match; a topic and one of its prefixes may
// both carry messages. Sibling groups are sorted by segment, so the
// output order is independent of map iteration order and stable across
// rebuilds. Empty input yields an empty forest.
func Build(logs map[string]history.TopicLog) []*Entry {
	suffixes := make([]string, 0, len(logs))
	for topic := range logs {
		suffixes = append(suffixes, topic)
	}
	return buildLevel(nil, suffixes, logs)
}

// buildLevel builds one sibling level. prefix holds the path segments
// above this level and suffixes the remaining paths relative to it.
func buildLevel(prefix []string, suffixes []string, logs map[string]history.TopicLog) []*Entry {
	if len(suffixes) == 0 {
		return nil
	}

	// Group the remaining paths by their first segment. A nil group
	// means the path ends at this level.
	groups := make(map[string][]string)
	for _, s := range suffixes {
		seg, rest, deeper := strings.Cut(s, Separator)
		if deeper {
			groups[seg] = append(groups[seg], rest)
		} else if _, ok := groups[seg]; !ok {
			groups[seg] = nil
		}
	}

	segs := make([]string, 0, len(groups))
	for seg := range groups {
		segs = append(segs, seg)
	}
	sort.Strings(segs)

	entries := make([]*Entry, 0, len(segs))
	for _, seg := range segs {
		path := append(prefix[:len(prefix):len(prefix)], seg)
		topic := strings.Join(path, Separator)

		e := &Entry{
			Topic:    topic,
			Leaf:     seg,
			Children: buildLevel(path, groups[seg], logs),
		}
		if log, ok := logs[topic]; ok {
			e.Messages = log.Total
			e.LastPayload = log.LastPayload()
		}
		for _, c := range e.Children {
			e.TopicsBelow += 1 + c.TopicsBelow
			e.MessagesBelow += c.Messages + c.MessagesBelow
		}
		entries = append(entries, e)
	}
	return entries
}
