package topics

import (
	"reflect"
	"testing"
	"time"

	"github.com/lukepighetti/mqttui/internal/history"
)

// exampleLogs mirrors the canonical store contents used across the
// topics tests: two topics under foo plus a root-level topic that
// carries messages itself.
func exampleLogs() map[string]history.TopicLog {
	now := time.Now()
	return map[string]history.TopicLog{
		"foo/bar": {Total: 1, Recent: []history.Message{
			{Payload: []byte("D"), Received: now},
		}},
		"foo/test": {Total: 1, Recent: []history.Message{
			{Payload: []byte("B"), Received: now},
		}},
		"test": {Total: 2, Recent: []history.Message{
			{Payload: []byte("A"), Received: now},
			{Payload: []byte("C"), Received: now},
		}},
	}
}

// collectTopics flattens a forest into topic paths, pre-order.
func collectTopics(entries []*Entry) []string {
	var out []string
	var walk func([]*Entry)
	walk = func(es []*Entry) {
		for _, e := range es {
			out = append(out, e.Topic)
			walk(e.Children)
		}
	}
	walk(entries)
	return out
}

func TestBuildEmpty(t *testing.T) {
	if got := Build(nil); len(got) != 0 {
		t.Errorf("Build(nil) = %v, want empty forest", collectTopics(got))
	}
	if got := Build(map[string]history.TopicLog{}); len(got) != 0 {
		t.Errorf("Build(empty) = %v, want empty forest", collectTopics(got))
	}
}

func TestBuildExample(t *testing.T) {
	tree := Build(exampleLogs())

	want := []string{"foo", "foo/bar", "foo/test", "test"}
	if got := collectTopics(tree); !reflect.DeepEqual(got, want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}

	foo := tree[0]
	if foo.Leaf != "foo" {
		t.Errorf("foo.Leaf = %q, want %q", foo.Leaf, "foo")
	}
	if foo.Messages != 0 {
		t.Errorf("foo.Messages = %d, want 0 (pure branch node)", foo.Messages)
	}
	if foo.LastPayload != nil {
		t.Errorf("foo.LastPayload = %q, want nil", foo.LastPayload)
	}
	if foo.TopicsBelow != 2 {
		t.Errorf("foo.TopicsBelow = %d, want 2", foo.TopicsBelow)
	}
	if foo.MessagesBelow != 2 {
		t.Errorf("foo.MessagesBelow = %d, want 2", foo.MessagesBelow)
	}

	bar := foo.Children[0]
	if bar.Leaf != "bar" || bar.Messages != 1 || string(bar.LastPayload) != "D" {
		t.Errorf("foo/bar = {%q %d %q}, want {bar 1 D}", bar.Leaf, bar.Messages, bar.LastPayload)
	}

	root := tree[1]
	if root.Topic != "test" || root.Messages != 2 || string(root.LastPayload) != "C" {
		t.Errorf("test = {%q %d %q}, want {test 2 C}", root.Topic, root.Messages, root.LastPayload)
	}
	if root.TopicsBelow != 0 || root.MessagesBelow != 0 {
		t.Errorf("test aggregates = (%d, %d), want (0, 0)", root.TopicsBelow, root.MessagesBelow)
	}
}

func TestBuildStructuralNodes(t *testing.T) {
	// A deep topic must produce a node for every strict prefix, even
	// though none of the prefixes is a key.
	tree := Build(map[string]history.TopicLog{
		"a/b/c/d": {Total: 3, Recent: []history.Message{{Payload: []byte("x")}}},
	})

	want := []string{"a", "a/b", "a/b/c", "a/b/c/d"}
	if got := collectTopics(tree); !reflect.DeepEqual(got, want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}

	a := tree[0]
	if a.Messages != 0 || a.TopicsBelow != 3 || a.MessagesBelow != 3 {
		t.Errorf("a = (msgs=%d, topics=%d, msgsBelow=%d), want (0, 3, 3)",
			a.Messages, a.TopicsBelow, a.MessagesBelow)
	}
}

func TestBuildPrefixAndExactKeyCoexist(t *testing.T) {
	// "a" and "a/b" both carry messages: "a" is simultaneously a branch
	// and a message-bearing topic. Not an error.
	tree := Build(map[string]history.TopicLog{
		"a":   {Total: 5, Recent: []history.Message{{Payload: []byte("own")}}},
		"a/b": {Total: 2, Recent: []history.Message{{Payload: []byte("child")}}},
	})

	if len(tree) != 1 {
		t.Fatalf("expected 1 root, got %d", len(tree))
	}
	a := tree[0]
	if a.Messages != 5 || string(a.LastPayload) != "own" {
		t.Errorf("a = {%d %q}, want {5 own}", a.Messages, a.LastPayload)
	}
	if a.TopicsBelow != 1 || a.MessagesBelow != 2 {
		t.Errorf("a aggregates = (%d, %d), want (1, 2)", a.TopicsBelow, a.MessagesBelow)
	}
}

func TestBuildSiblingOrder(t *testing.T) {
	tree := Build(map[string]history.TopicLog{
		"z":   {Total: 1},
		"m/b": {Total: 1},
		"m/a": {Total: 1},
		"a":   {Total: 1},
	})

	want := []string{"a", "m", "m/a", "m/b", "z"}
	if got := collectTopics(tree); !reflect.DeepEqual(got, want) {
		t.Errorf("topics = %v, want %v", got, want)
	}
}

func TestBuildDeterministic(t *testing.T) {
	logs := exampleLogs()
	first := Build(logs)
	second := Build(logs)

	if !reflect.DeepEqual(collectTopics(first), collectTopics(second)) {
		t.Errorf("rebuild changed ordering: %v vs %v",
			collectTopics(first), collectTopics(second))
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("rebuild from an unchanged snapshot should yield identical trees")
	}
}

func TestBuildLeadingSeparator(t *testing.T) {
	// Topics starting with the separator hang off a root with an empty
	// leaf; the full paths must round-trip exactly.
	tree := Build(map[string]history.TopicLog{
		"/a": {Total: 1},
	})

	want := []string{"", "/a"}
	if got := collectTopics(tree); !reflect.DeepEqual(got, want) {
		t.Fatalf("topics = %v, want %v", got, want)
	}
	if tree[0].Children[0].Leaf != "a" {
		t.Errorf("leaf = %q, want %q", tree[0].Children[0].Leaf, "a")
	}
}

func TestEntryDepth(t *testing.T) {
	tests := []struct {
		topic string
		want  int
	}{
		{"foo", 0},
		{"foo/bar", 1},
		{"a/b/c/d", 3},
	}
	for _, tt := range tests {
		e := &Entry{Topic: tt.topic}
		if got := e.Depth(); got != tt.want {
			t.Errorf("Depth(%q) = %d, want %d", tt.topic, got, tt.want)
		}
	}
}

func TestEntryMeta(t *testing.T) {
	branch := &Entry{Topic: "foo", Leaf: "foo", TopicsBelow: 2, MessagesBelow: 7}
	if got := branch.Meta(); got != "(2 topics, 7 messages)" {
		t.Errorf("branch meta = %q", got)
	}

	leaf := &Entry{Topic: "t", Leaf: "t", Messages: 1, LastPayload: []byte("on\noff")}
	if got := leaf.Meta(); got != "= on off" {
		t.Errorf("leaf meta = %q, want %q", got, "= on off")
	}

	empty := &Entry{Topic: "t", Leaf: "t", Messages: 1, LastPayload: []byte{}}
	if got := empty.Meta(); got != "= (empty)" {
		t.Errorf("empty-payload meta = %q, want %q", got, "= (empty)")
	}
}
