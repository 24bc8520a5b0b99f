// Package recordstore implements the core of a client-side record cache: the
// per-record status state machine and the reconciliation protocol tying
// together local edits, the commit pipeline, server push updates, and
// nested (transactional overlay) stores.
//
// The Store is single-threaded-cooperative by design (see Options and the
// package doc on scheduler.Executor): no method here takes an internal lock.
// Callers sharing one Store across goroutines must serialize externally.
package recordstore

import (
	"context"
	"time"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// Options configures one Store instance. Zero value is AutoCommit=false,
// RebaseConflicts=false, IsNested=false; use DefaultOptions for the
// recommended defaults (true, true, false).
type Options struct {
	// AutoCommit schedules a commit at end-of-tick after any mutation.
	AutoCommit bool
	// RebaseConflicts attempts to reapply surviving local edits on top of a
	// server update that lands on a dirty record.
	RebaseConflicts bool
	// IsNested enables copy-on-write overlay semantics against a parent
	// Store. Set only via NewNestedStore.
	IsNested bool
}

// DefaultOptions returns the recommended defaults: autoCommit and
// rebaseConflicts on, isNested off.
func DefaultOptions() Options {
	return Options{AutoCommit: true, RebaseConflicts: true, IsNested: false}
}

// Store is the in-memory record cache. Construct with New or
// NewNestedStore.
type Store struct {
	opts   Options
	source rst.Source
	exec   rst.DeferredExecutor

	types map[string]rst.Type

	// Key Registry
	nextKey  rst.StoreKey
	idToKey  map[string]map[string]rst.StoreKey // typeName -> id -> key
	keyToID  map[rst.StoreKey]string
	keyType  map[rst.StoreKey]string // sk -> typeName

	// Status Table
	status map[rst.StoreKey]rst.Status

	// Data Table
	data       map[rst.StoreKey]rst.Hash
	committed  map[rst.StoreKey]rst.Hash
	changed    map[rst.StoreKey]map[string]bool
	rollback   map[rst.StoreKey]rst.Hash
	lastAccess map[rst.StoreKey]time.Time

	// Materialized records, created lazily.
	records map[rst.StoreKey]rst.Record

	// Mutation Journal
	created    orderedSet
	destroyed  orderedSet
	changedSet orderedSet

	// Query Registry
	localQueries  map[string][]rst.LocalQuery
	remoteQueries map[string]rst.RemoteQuery
	dirtyTypes    map[string]struct{}

	// Nested Store Hooks
	parent *Store
	nested []*Store

	// observers hooks into the observer plumbing (nil-safe no-op by default)
	observers recordObservers
}

// recordObservers lets callers plug in side-channel notification (the
// eventbus bridge) without the core depending on that package. Left nil by
// default.
type recordObservers struct {
	onStatusChange func(typeName string, sk rst.StoreKey, prev, next rst.Status)
	onDataChange   func(typeName string, sk rst.StoreKey, changedKeys []string)
}

// New creates a top-level Store backed by source and exec, with the given
// options. Pass DefaultOptions() for the recommended defaults.
func New(source rst.Source, exec rst.DeferredExecutor, opts Options) *Store {
	return &Store{
		opts:          opts,
		source:        source,
		exec:          exec,
		types:         make(map[string]rst.Type),
		idToKey:       make(map[string]map[string]rst.StoreKey),
		keyToID:       make(map[rst.StoreKey]string),
		keyType:       make(map[rst.StoreKey]string),
		status:        make(map[rst.StoreKey]rst.Status),
		data:          make(map[rst.StoreKey]rst.Hash),
		committed:     make(map[rst.StoreKey]rst.Hash),
		changed:       make(map[rst.StoreKey]map[string]bool),
		rollback:      make(map[rst.StoreKey]rst.Hash),
		lastAccess:    make(map[rst.StoreKey]time.Time),
		records:       make(map[rst.StoreKey]rst.Record),
		created:       newOrderedSet(),
		destroyed:     newOrderedSet(),
		changedSet:    newOrderedSet(),
		localQueries:  make(map[string][]rst.LocalQuery),
		remoteQueries: make(map[string]rst.RemoteQuery),
		dirtyTypes:    make(map[string]struct{}),
	}
}

// NewNestedStore creates an overlay store whose data table shares parent's
// hashes by identity until a write triggers copy-on-write. The nested store
// uses the same Source and DeferredExecutor as its parent; opts.IsNested is
// forced true.
func NewNestedStore(parent *Store, opts Options) *Store {
	opts.IsNested = true
	child := New(parent.source, parent.exec, opts)
	child.parent = parent
	child.types = parent.types // share type registry
	parent.nested = append(parent.nested, child)
	return child
}

// RegisterType makes t available under its ClassName for GetStoreKey,
// CreateRecord, and the reconciliation callbacks.
func (s *Store) RegisterType(t rst.Type) {
	s.types[t.ClassName()] = t
}

// OnObserve wires the eventbus bridge (or any other external observer) to
// this Store's status/data change notifications. Intended for
// recordstore/eventbus.Bridge; nil-safe no-op if never called.
func (s *Store) OnObserve(onStatusChange func(typeName string, sk rst.StoreKey, prev, next rst.Status), onDataChange func(typeName string, sk rst.StoreKey, changedKeys []string)) {
	s.observers.onStatusChange = onStatusChange
	s.observers.onDataChange = onDataChange
}

// ---- Key Registry ----

// GetStoreKey returns the existing store key for (typeName, id) if id is
// given and already mapped; otherwise it allocates a new one. Passing an
// empty id always allocates a fresh key (used for locally-created records
// that have no server id yet). A freshly allocated key is seeded with
// status Empty so the status table never relies on a Go map's zero-value
// read (Status(0)) to mean "core state Empty" — Status(0) is reserved for
// "no entry at all", the state UnloadRecord leaves behind.
func (s *Store) GetStoreKey(typeName, id string) rst.StoreKey {
	if id != "" {
		if byID, ok := s.idToKey[typeName]; ok {
			if sk, ok := byID[id]; ok {
				return sk
			}
		}
	}
	s.nextKey++
	sk := s.nextKey
	s.keyType[sk] = typeName
	s.status[sk] = rst.Empty
	if id != "" {
		s.setIDIndex(typeName, sk, id)
	}
	return sk
}

func (s *Store) setIDIndex(typeName string, sk rst.StoreKey, id string) {
	if _, ok := s.idToKey[typeName]; !ok {
		s.idToKey[typeName] = make(map[string]rst.StoreKey)
	}
	s.idToKey[typeName][id] = sk
	s.keyToID[sk] = id
}

// SetIDForStoreKey assigns a server id to sk, rewriting the id index and
// patching data with the new primary-key attribute through the normal
// update path (so observers fire). Returns ErrDuplicateID if id is already
// mapped to a different key of the same type.
func (s *Store) SetIDForStoreKey(sk rst.StoreKey, id string) error {
	typeName := s.keyType[sk]
	if byID, ok := s.idToKey[typeName]; ok {
		if existing, ok := byID[id]; ok && existing != sk {
			return ErrDuplicateID
		}
	}
	s.setIDIndex(typeName, sk, id)
	t, ok := s.types[typeName]
	if ok {
		s.UpdateHash(sk, rst.Hash{t.PrimaryKey(): id}, false)
	}
	return nil
}

// IDForStoreKey returns the server id for sk, or "" if none assigned yet.
func (s *Store) IDForStoreKey(sk rst.StoreKey) string {
	return s.keyToID[sk]
}

// TypeNameForStoreKey returns the registered type name for sk.
func (s *Store) TypeNameForStoreKey(sk rst.StoreKey) string {
	return s.keyType[sk]
}

// recordFor lazily materializes the Record for sk via its Type's
// constructor, memoizing the result.
func (s *Store) recordFor(sk rst.StoreKey) rst.Record {
	if r, ok := s.records[sk]; ok {
		return r
	}
	t, ok := s.types[s.keyType[sk]]
	if !ok {
		return nil
	}
	r := t.New(sk)
	s.records[sk] = r
	return r
}

// ---- Unload ----

// MayUnloadRecord reports whether sk is eligible for UnloadRecord: status
// must be exactly one of EMPTY|READY|DESTROYED with no modifier bits, no
// observers attached, and every nested store must concur. OBSOLETE records
// are never unloadable, and this is never relaxed.
func (s *Store) MayUnloadRecord(sk rst.StoreKey) bool {
	st := s.GetStatus(sk)
	if st.Modifiers() != 0 {
		return false
	}
	if !st.Any(rst.Empty | rst.Ready | rst.Destroyed) {
		return false
	}
	if r, ok := s.records[sk]; ok && r != nil && r.HasObservers() {
		return false
	}
	for _, child := range s.nested {
		if !child.mayUnloadAsNested(sk) {
			return false
		}
	}
	return true
}

// mayUnloadAsNested is consulted by the parent: a nested store with no
// knowledge of sk (inherited data only) concurs trivially.
func (s *Store) mayUnloadAsNested(sk rst.StoreKey) bool {
	if _, owned := s.data[sk]; !owned {
		return true
	}
	return s.MayUnloadRecord(sk)
}

// UnloadRecord fully removes sk and all its table entries. Only callable
// when MayUnloadRecord(sk) is true; otherwise returns ErrNotUnloadable.
func (s *Store) UnloadRecord(sk rst.StoreKey) error {
	if !s.MayUnloadRecord(sk) {
		return ErrNotUnloadable
	}
	if r, ok := s.records[sk]; ok && r != nil {
		r.StoreWillUnload()
	}
	typeName := s.keyType[sk]
	if id, ok := s.keyToID[sk]; ok {
		if byID, ok := s.idToKey[typeName]; ok {
			delete(byID, id)
		}
		delete(s.keyToID, sk)
	}
	delete(s.keyType, sk)
	delete(s.status, sk)
	delete(s.data, sk)
	delete(s.committed, sk)
	delete(s.changed, sk)
	delete(s.rollback, sk)
	delete(s.lastAccess, sk)
	delete(s.records, sk)
	s.created.remove(sk)
	s.destroyed.remove(sk)
	s.changedSet.remove(sk)
	return nil
}

// touch stamps lastAccess for external memory managers, e.g. an LRU
// eviction policy layered on top of this package.
func (s *Store) touch(sk rst.StoreKey) {
	s.lastAccess[sk] = time.Now()
}

// ctxOrBackground returns ctx if non-nil, else context.Background(). Several
// Source-facing helpers accept an optional ctx for callers that don't carry
// one (e.g. synchronous test setup).
func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
