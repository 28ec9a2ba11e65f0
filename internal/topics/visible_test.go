package topics

import (
	"reflect"
	"testing"

	"github.com/lukepighetti/mqttui/internal/history"
)

func visibleTopics(entries []*Entry, opened map[string]bool) []string {
	visible := Visible(entries, opened)
	out := make([]string, len(visible))
	for i, e := range visible {
		out[i] = e.Topic
	}
	return out
}

func deepLogs() map[string]history.TopicLog {
	return map[string]history.TopicLog{
		"a/b/c": {Total: 1},
		"a/d":   {Total: 1},
		"e":     {Total: 1},
	}
}

func TestVisibleNoneOpen(t *testing.T) {
	tree := Build(exampleLogs())

	want := []string{"foo", "test"}
	if got := visibleTopics(tree, nil); !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
}

func TestVisibleSomeOpen(t *testing.T) {
	tree := Build(exampleLogs())
	opened := map[string]bool{"foo": true}

	want := []string{"foo", "foo/bar", "foo/test", "test"}
	if got := visibleTopics(tree, opened); !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
}

func TestVisibleGrandchildrenStayHidden(t *testing.T) {
	tree := Build(deepLogs())

	// Opening "a" reveals only its immediate children; "a/b/c" needs
	// "a/b" to be independently open.
	opened := map[string]bool{"a": true}
	want := []string{"a", "a/b", "a/d", "e"}
	if got := visibleTopics(tree, opened); !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}

	opened["a/b"] = true
	want = []string{"a", "a/b", "a/b/c", "a/d", "e"}
	if got := visibleTopics(tree, opened); !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
}

func TestVisibleOpenSetWithStaleTopics(t *testing.T) {
	tree := Build(exampleLogs())

	// Topics that no longer exist in the tree are simply ignored.
	opened := map[string]bool{"foo": true, "gone/topic": true, "gone": true}
	want := []string{"foo", "foo/bar", "foo/test", "test"}
	if got := visibleTopics(tree, opened); !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
}

func TestVisibleParentAlwaysFirst(t *testing.T) {
	tree := Build(deepLogs())
	opened := map[string]bool{"a": true, "a/b": true}

	seen := map[string]bool{}
	for _, e := range Visible(tree, opened) {
		for _, anc := range Ancestors(e.Topic) {
			// Root-level entries have no ancestors in the forest; any
			// deeper entry must come after all of its ancestors.
			if anc != "" && !seen[anc] {
				t.Errorf("entry %q appeared before ancestor %q", e.Topic, anc)
			}
		}
		seen[e.Topic] = true
	}
}

func TestAncestors(t *testing.T) {
	tests := []struct {
		topic string
		want  []string
	}{
		{"foo", nil},
		{"foo/bar", []string{"foo"}},
		{"a/b/c/d", []string{"a", "a/b", "a/b/c"}},
		{"/a", []string{""}},
	}
	for _, tt := range tests {
		if got := Ancestors(tt.topic); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Ancestors(%q) = %v, want %v", tt.topic, got, tt.want)
		}
	}
}

func TestRevealDoesNotMutateInput(t *testing.T) {
	opened := map[string]bool{"e": true}
	revealed := Reveal(opened, "a/b/c")

	if !revealed["a"] || !revealed["a/b"] || !revealed["e"] {
		t.Errorf("revealed = %v, want ancestors of a/b/c plus e", revealed)
	}
	if revealed["a/b/c"] {
		t.Error("the target itself must not be opened, only its ancestors")
	}
	if len(opened) != 1 || !opened["e"] {
		t.Errorf("input open-set was mutated: %v", opened)
	}
}

func TestPositionClosedAncestors(t *testing.T) {
	tree := Build(deepLogs())

	// All ancestors closed: the target is still resolvable because its
	// ancestors are revealed for the lookup.
	idx, ok := Position(tree, nil, "a/b/c")
	if !ok {
		t.Fatal("Position should resolve a topic with closed ancestors")
	}
	// Reveal opens a and a/b: visible is [a, a/b, a/b/c, a/d, e].
	if idx != 2 {
		t.Errorf("Position = %d, want 2", idx)
	}
}

func TestPositionWithOpenSet(t *testing.T) {
	tree := Build(exampleLogs())

	idx, ok := Position(tree, map[string]bool{"foo": true}, "test")
	if !ok {
		t.Fatal("Position should resolve root topic test")
	}
	if idx != 3 {
		t.Errorf("Position = %d, want 3 (after foo, foo/bar, foo/test)", idx)
	}
}

func TestPositionNotFound(t *testing.T) {
	tree := Build(exampleLogs())

	// A stale selection is a valid outcome, not an error.
	if _, ok := Position(tree, nil, "vanished/topic"); ok {
		t.Error("Position should report not-found for a topic absent from the tree")
	}
	if _, ok := Position(nil, nil, "anything"); ok {
		t.Error("Position on an empty forest should report not-found")
	}
}
