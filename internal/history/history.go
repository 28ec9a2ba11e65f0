// Package history keeps a bounded in-memory log of received messages,
// grouped by topic.
//
// The store is shared between the MQTT client's callback goroutine and
// the render loop. The critical section is limited to appending one
// message or copying a snapshot out: the UI never computes while
// holding the lock, so message ingestion is never blocked by drawing.
package history

import (
	"sync"
	"time"
)

// DefaultLimit is the per-topic cap on retained messages.
const DefaultLimit = 100

// Message is one received message.
type Message struct {
	Payload  []byte
	Received time.Time
	Retained bool
}

// TopicLog is the recorded history of a single topic. Total counts
// every message ever received on the topic; Recent holds at most the
// store's per-topic limit, oldest first.
type TopicLog struct {
	Total  int
	Recent []Message
}

// LastPayload returns the payload of the most recent message, or nil
// when nothing has been recorded.
func (l TopicLog) LastPayload() []byte {
	if len(l.Recent) == 0 {
		return nil
	}
	return l.Recent[len(l.Recent)-1].Payload
}

// Store is a mutex-protected per-topic message log.
type Store struct {
	mu    sync.Mutex
	limit int
	logs  map[string]*TopicLog
}

// NewStore creates an empty store keeping at most limit messages per
// topic. A non-positive limit falls back to DefaultLimit.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		limit: limit,
		logs:  make(map[string]*TopicLog),
	}
}

// Append records a message on the given topic, evicting the oldest
// retained message once the per-topic limit is reached.
func (s *Store) Append(topic string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[topic]
	if !ok {
		log = &TopicLog{}
		s.logs[topic] = log
	}
	log.Total++
	log.Recent = append(log.Recent, msg)
	if len(log.Recent) > s.limit {
		log.Recent = append(log.Recent[:0:0], log.Recent[len(log.Recent)-s.limit:]...)
	}
}

// SetLimit changes the per-topic cap, trimming existing logs when the
// new cap is smaller. A non-positive limit falls back to DefaultLimit.
func (s *Store) SetLimit(limit int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limit = limit
	for _, log := range s.logs {
		if len(log.Recent) > limit {
			log.Recent = append(log.Recent[:0:0], log.Recent[len(log.Recent)-limit:]...)
		}
	}
}

// Snapshot copies the whole store out under the lock. The returned map
// is private to the caller: later Appends do not affect it. Payload
// bytes are shared but never mutated after Append.
func (s *Store) Snapshot() map[string]TopicLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(map[string]TopicLog, len(s.logs))
	for topic, log := range s.logs {
		snap[topic] = TopicLog{
			Total:  log.Total,
			Recent: append([]Message(nil), log.Recent...),
		}
	}
	return snap
}

// Len reports the number of distinct topics recorded so far.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// TotalMessages reports the number of messages received across all
// topics, including evicted ones.
func (s *Store) TotalMessages() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int
	for _, log := range s.logs {
		total += log.Total
	}
	return total
}
