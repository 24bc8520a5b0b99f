// Package types defines the collaborator contracts the recordstore core
// consumes: the Source it drives commits and fetches through, the Record it
// materializes and notifies, the Type metadata each Record belongs to, and
// the local/remote query registrations it refreshes.
//
// None of these are implemented here — this package is pure contract. See
// memsource and httpsource for reference Source implementations.
package types

import "context"

// Hash is a record's attribute-name to value mapping.
type Hash map[string]any

// Clone returns a shallow copy of h.
func (h Hash) Clone() Hash {
	if h == nil {
		return nil
	}
	out := make(Hash, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// StoreKey is an opaque, stable token identifying a record within one Store
// instance. It is never reused within the instance's lifetime.
type StoreKey uint64

// Type describes a record class: a stable name and the attribute that
// carries the server-assigned identity.
type Type interface {
	// ClassName is a stable identifier for the type (e.g. "widget").
	ClassName() string
	// PrimaryKey is the attribute name that holds the server id (e.g. "id").
	PrimaryKey() string
	// New materializes a Record for sk. Called lazily, at most once per key.
	New(sk StoreKey) Record
}

// Record is the materialized object the store notifies of attribute and
// status changes. Implementations are free to ignore notifications they
// don't care about (a minimal Record may no-op every method but
// HasObservers/StoreWillUnload).
type Record interface {
	// PropertyDidChange is invoked once per changed attribute key after an
	// UpdateHash call completes.
	PropertyDidChange(key string, newValue any)
	// ComputedPropertyDidChange invokes recompute notifications for
	// properties derived from one or more attributes; the store does not
	// know which computed properties depend on which keys, so it is told the
	// raw set of changed keys and left to fan out itself.
	ComputedPropertyDidChange(changedKeys []string)
	// StatusDidChange is invoked when the record's status bitfield changes.
	StatusDidChange(previous, next Status)
	// BeginPropertyChanges/EndPropertyChanges bracket a batch of
	// PropertyDidChange calls so observers can coalesce.
	BeginPropertyChanges()
	EndPropertyChanges()
	// HasObservers reports whether anything external is watching this
	// record; unloadRecord refuses to run while true.
	HasObservers() bool
	// StoreWillUnload is called immediately before the record's table
	// entries are torn down.
	StoreWillUnload()
}

// TypeChangeset is the per-type payload of one commit handoff.
type TypeChangeset struct {
	Create  ChangesetCreate
	Update  ChangesetUpdate
	Destroy ChangesetDestroy
}

// ChangesetCreate lists records awaiting their initial POST.
type ChangesetCreate struct {
	StoreKeys []StoreKey
	Records   []Hash
}

// ChangesetUpdate lists records awaiting a PATCH/PUT, alongside the set of
// attribute keys that actually changed (changes[i] pairs with Records[i]).
type ChangesetUpdate struct {
	StoreKeys []StoreKey
	Records   []Hash
	Changes   [][]string
}

// ChangesetDestroy lists server ids awaiting a DELETE.
type ChangesetDestroy struct {
	StoreKeys []StoreKey
	IDs       []string
}

// Changeset is the full per-type commit payload handed to Source.CommitChanges.
type Changeset map[string]TypeChangeset

// Empty reports whether the changeset carries no work for any type.
func (c Changeset) Empty() bool {
	for _, tc := range c {
		if len(tc.Create.StoreKeys) > 0 || len(tc.Update.StoreKeys) > 0 || len(tc.Destroy.StoreKeys) > 0 {
			return false
		}
	}
	return true
}

// RemoteQuery is a server-backed list query. The store only holds its
// registration; refresh is the Source's responsibility, driven by its own
// events.
type RemoteQuery interface {
	// QueryID distinguishes this query for unregistration/dedup.
	QueryID() string
}

// LocalQuery is a filtered view over loaded records of one Type. Refresh is
// invoked by the scheduler at most once per tick when the record set for the
// query's type may have changed.
type LocalQuery interface {
	TypeName() string
	Refresh()
}

// Source is the remote collaborator: the store calls these methods; the
// Source calls back into the store's Reconciliation Engine asynchronously
// (there is no return-channel here by design — acks arrive via the
// SourceDid*/SourceHas*/SourceCouldNotFind* callbacks on the Store).
type Source interface {
	FetchRecord(ctx context.Context, typeName, id string) error
	RefreshRecord(ctx context.Context, typeName, id string) error
	FetchRecords(ctx context.Context, typeName string) error
	FetchQuery(ctx context.Context, q RemoteQuery) error
	CommitChanges(ctx context.Context, changeset Changeset) error
}

// DeferredExecutor coalesces repeated scheduling requests within one
// cooperative "tick" into a single invocation of fn, fired at the end of the
// tick (the "before" phase of the host loop, in ember-data terms).
type DeferredExecutor interface {
	// Schedule arranges for fn to run once at the end of the current tick,
	// regardless of how many times Schedule is called with the same key
	// before the tick ends.
	Schedule(key string, fn func())
	// Flush runs all pending scheduled work immediately and synchronously.
	// Used by tests and by hosts without a natural tick boundary.
	Flush()
}
