// Package eventbus fans status and data change notifications wired through
// Store.OnObserve out to registered Handlers and, optionally, publishes them
// to NATS JetStream for an out-of-process audit trail. This is strictly for
// external observers — nested-store propagation goes through direct
// interface calls on the Store, never through here, so the store's
// synchronous change-notification guarantee never depends on bus delivery.
package eventbus

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// EventType distinguishes the two notification shapes a Bridge dispatches.
type EventType string

const (
	StatusChanged EventType = "status_changed"
	DataChanged   EventType = "data_changed"
)

// Event is the payload handed to Handlers and, when JetStream is
// configured, published as JSON.
type Event struct {
	Type        EventType       `json:"type"`
	TypeName    string          `json:"type_name"`
	StoreKey    rst.StoreKey    `json:"store_key"`
	Previous    rst.Status      `json:"previous,omitempty"`
	Next        rst.Status      `json:"next,omitempty"`
	ChangedKeys []string        `json:"changed_keys,omitempty"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// Handler observes dispatched events. Handle errors are logged, never
// propagated — a misbehaving observer must not affect the store it is
// watching.
type Handler interface {
	ID() string
	Handle(event Event) error
}

// Bridge dispatches Store observer callbacks to registered Handlers in
// plain registration order — no priority concept, every handler sees every
// event.
type Bridge struct {
	mu       sync.RWMutex
	handlers []Handler
	js       nats.JetStreamContext
	subject  func(Event) string
}

// New returns a Bridge with the default subject scheme
// "recordstore.<type_name>.<event_type>".
func New() *Bridge {
	return &Bridge{subject: defaultSubject}
}

func defaultSubject(e Event) string {
	return "recordstore." + e.TypeName + "." + string(e.Type)
}

// SetJetStream attaches a JetStream context; Dispatch publishes to it
// after running handlers. Publish failures are logged, never returned —
// JetStream is supplementary.
func (b *Bridge) SetJetStream(js nats.JetStreamContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.js = js
}

// Register adds h to the dispatch list.
func (b *Bridge) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Unregister removes the handler with the given id. Reports whether one
// was found.
func (b *Bridge) Unregister(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if h.ID() == id {
			b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Handlers returns a snapshot of registered handlers, sorted by ID for
// deterministic introspection output.
func (b *Bridge) Handlers() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, len(b.handlers))
	copy(out, b.handlers)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// dispatch runs every handler then, if configured, publishes to JetStream.
func (b *Bridge) dispatch(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	js := b.js
	subjectFn := b.subject
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(e); err != nil {
			log.Printf("recordstore/eventbus: handler %q error for %s: %v", h.ID(), e.Type, err)
		}
	}

	if js == nil {
		return
	}
	now := time.Now().UTC()
	e.PublishedAt = &now
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("recordstore/eventbus: marshal event: %v", err)
		return
	}
	subject := subjectFn(e)
	ack, err := js.Publish(subject, data)
	if err != nil {
		log.Printf("recordstore/eventbus: JetStream publish to %s failed: %v", subject, err)
		return
	}
	log.Printf("recordstore/eventbus: published to %s (stream=%s seq=%d)", subject, ack.Stream, ack.Sequence)
}

// OnStatusChange is a Store.OnObserve-compatible callback.
func (b *Bridge) OnStatusChange(typeName string, sk rst.StoreKey, prev, next rst.Status) {
	b.dispatch(Event{Type: StatusChanged, TypeName: typeName, StoreKey: sk, Previous: prev, Next: next})
}

// OnDataChange is a Store.OnObserve-compatible callback.
func (b *Bridge) OnDataChange(typeName string, sk rst.StoreKey, changedKeys []string) {
	b.dispatch(Event{Type: DataChanged, TypeName: typeName, StoreKey: sk, ChangedKeys: changedKeys})
}
