package topics

// Visible flattens the forest into exactly the sequence of entries a
// collapsed/expanded tree view displays for the given open-set.
//
// Root-level entries are always included. An entry's children follow it
// only when its own topic is in opened — opening a node reveals its
// immediate children; grandchildren stay hidden until the child is
// opened too. Traversal is pre-order depth-first in tree order, and
// collapsed subtrees are never descended into.
func Visible(entries []*Entry, opened map[string]bool) []*Entry {
	var out []*Entry
	var walk func([]*Entry)
	walk = func(es []*Entry) {
		for _, e := range es {
			out = append(out, e)
			if opened[e.Topic] {
				walk(e.Children)
			}
		}
	}
	walk(entries)
	return out
}

// Ancestors returns the strict ancestor paths of topic, outermost first.
func Ancestors(topic string) []string {
	var out []string
	for i := 0; i < len(topic); i++ {
		if topic[i] == '/' {
			out = append(out, topic[:i])
		}
	}
	return out
}

// Reveal returns a copy of opened with every strict ancestor of topic
// added, so the topic is guaranteed to appear in Visible output even
// when the user never expanded those ancestors. The input set is not
// mutated: the reveal lasts only as long as the returned set is used.
func Reveal(opened map[string]bool, topic string) map[string]bool {
	ancestors := Ancestors(topic)
	revealed := make(map[string]bool, len(opened)+len(ancestors))
	for t, open := range opened {
		if open {
			revealed[t] = true
		}
	}
	for _, t := range ancestors {
		revealed[t] = true
	}
	return revealed
}

// Position resolves topic to its zero-based index in the visible
// sequence after revealing its ancestors. The second return is false
// when the topic does not exist in the forest; callers treat that as
// "no selection", not as an error.
func Position(entries []*Entry, opened map[string]bool, topic string) (int, bool) {
	for i, e := range Visible(entries, Reveal(opened, topic)) {
		if e.Topic == topic {
			return i, true
		}
	}
	return 0, false
}
