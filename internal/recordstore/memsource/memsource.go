// Package memsource is a reference Source backed by an in-process dataset:
// no persistence, no transactions, just enough to drive the Reconciliation
// Engine end to end in tests and the demo CLI.
package memsource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// Reconciler is the subset of *recordstore.Store that memsource calls back
// into. Declared locally (rather than importing recordstore) to avoid an
// import cycle — recordstore's tests import memsource, not the reverse.
type Reconciler interface {
	GetStoreKey(typeName, id string) rst.StoreKey
	SourceDidFetchRecords(typeName string, records []rst.Hash, all bool)
	SourceCouldNotFindRecords(typeName string, ids []string)
	SourceDidCommitCreate(skToID map[rst.StoreKey]string)
	SourceDidNotCreate(sks []rst.StoreKey)
	SourceDidCommitUpdate(sks []rst.StoreKey)
	SourceDidNotUpdate(sks []rst.StoreKey)
	SourceDidCommitDestroy(sks []rst.StoreKey)
	SourceDidNotDestroy(sks []rst.StoreKey)
	SourceDidError(sks []rst.StoreKey)
}

// idGen mints server ids for newly created records.
type idGen struct {
	mu   sync.Mutex
	next map[string]int
}

func (g *idGen) next_(typeName string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next == nil {
		g.next = make(map[string]int)
	}
	g.next[typeName]++
	return fmt.Sprintf("%s-%d", typeName, g.next[typeName])
}

// Source is an in-memory, synchronous Source implementation. Every method
// runs its callback into the Store before returning — there is no real
// network latency to simulate here, that's httpsource's job — but failures
// can be injected per-type via FailNextCreate/FailNextUpdate/FailNextDestroy for tests
// exercising the transient-failure paths (scenario-style tests).
type Source struct {
	mu   sync.Mutex
	data map[string]map[string]rst.Hash // typeName -> id -> record
	ids  idGen

	store Reconciler

	failCreate  map[string]bool
	failUpdate  map[string]bool
	failDestroy map[string]bool
	errPermanent map[string]bool // when true, the injected failure reports as permanent (SourceDidError) instead of transient
}

// New returns an empty Source. Call Bind once the owning Store exists —
// memsource needs to call back into it, and the Store needs a Source at
// construction, so the two are wired together in two steps.
func New() *Source {
	return &Source{
		data:         make(map[string]map[string]rst.Hash),
		failCreate:   make(map[string]bool),
		failUpdate:   make(map[string]bool),
		failDestroy:  make(map[string]bool),
		errPermanent: make(map[string]bool),
	}
}

// Bind attaches the Store this Source calls back into.
func (s *Source) Bind(store Reconciler) {
	s.store = store
}

// Seed preloads a record as if it already existed server-side, keyed by its
// primary-key attribute value.
func (s *Source) Seed(typeName, id string, record rst.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[typeName] == nil {
		s.data[typeName] = make(map[string]rst.Hash)
	}
	s.data[typeName][id] = record.Clone()
}

// FailNextCreate/FailNextUpdate/FailNextDestroy arrange for the next commit
// touching typeName's create/update/destroy batch to report failure.
// permanent selects SourceDidError over the transient SourceDidNot* path.
func (s *Source) FailNextCreate(typeName string, permanent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate[typeName] = true
	s.errPermanent[typeName] = permanent
}

func (s *Source) FailNextUpdate(typeName string, permanent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdate[typeName] = true
	s.errPermanent[typeName] = permanent
}

func (s *Source) FailNextDestroy(typeName string, permanent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDestroy[typeName] = true
	s.errPermanent[typeName] = permanent
}

func (s *Source) FetchRecord(_ context.Context, typeName, id string) error {
	s.mu.Lock()
	rec, ok := s.data[typeName][id]
	s.mu.Unlock()
	if !ok {
		s.store.SourceCouldNotFindRecords(typeName, []string{id})
		return nil
	}
	s.store.SourceDidFetchRecords(typeName, []rst.Hash{rec}, false)
	return nil
}

func (s *Source) RefreshRecord(ctx context.Context, typeName, id string) error {
	return s.FetchRecord(ctx, typeName, id)
}

func (s *Source) FetchRecords(_ context.Context, typeName string) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.data[typeName]))
	for id := range s.data[typeName] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	recs := make([]rst.Hash, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, s.data[typeName][id])
	}
	s.mu.Unlock()
	s.store.SourceDidFetchRecords(typeName, recs, true)
	return nil
}

// FetchQuery is a no-op in memsource: there is no remote query engine behind
// a plain map, so remote-query registration never resolves anything here.
// httpsource is the reference implementation that actually talks to a query
// endpoint.
func (s *Source) FetchQuery(context.Context, rst.RemoteQuery) error {
	return nil
}

func (s *Source) CommitChanges(_ context.Context, changeset rst.Changeset) error {
	for typeName, tc := range changeset {
		s.commitCreate(typeName, tc.Create)
		s.commitUpdate(typeName, tc.Update)
		s.commitDestroy(typeName, tc.Destroy)
	}
	return nil
}

func (s *Source) commitCreate(typeName string, c rst.ChangesetCreate) {
	if len(c.StoreKeys) == 0 {
		return
	}
	s.mu.Lock()
	fail := s.failCreate[typeName]
	permanent := s.errPermanent[typeName]
	delete(s.failCreate, typeName)
	s.mu.Unlock()

	if fail {
		if permanent {
			s.store.SourceDidError(c.StoreKeys)
		} else {
			s.store.SourceDidNotCreate(c.StoreKeys)
		}
		return
	}

	acked := make(map[rst.StoreKey]string, len(c.StoreKeys))
	for i, sk := range c.StoreKeys {
		id := s.ids.next_(typeName)
		rec := c.Records[i].Clone()
		rec["id"] = id
		s.mu.Lock()
		if s.data[typeName] == nil {
			s.data[typeName] = make(map[string]rst.Hash)
		}
		s.data[typeName][id] = rec
		s.mu.Unlock()
		acked[sk] = id
	}
	s.store.SourceDidCommitCreate(acked)
}

func (s *Source) commitUpdate(typeName string, u rst.ChangesetUpdate) {
	if len(u.StoreKeys) == 0 {
		return
	}
	s.mu.Lock()
	fail := s.failUpdate[typeName]
	permanent := s.errPermanent[typeName]
	delete(s.failUpdate, typeName)
	s.mu.Unlock()

	if fail {
		if permanent {
			s.store.SourceDidError(u.StoreKeys)
		} else {
			s.store.SourceDidNotUpdate(u.StoreKeys)
		}
		return
	}

	s.mu.Lock()
	for _, rec := range u.Records {
		id, _ := rec["id"].(string)
		if id == "" {
			continue
		}
		if s.data[typeName] == nil {
			s.data[typeName] = make(map[string]rst.Hash)
		}
		s.data[typeName][id] = rec.Clone()
	}
	s.mu.Unlock()
	_ = u.Changes
	s.store.SourceDidCommitUpdate(u.StoreKeys)
}

func (s *Source) commitDestroy(typeName string, d rst.ChangesetDestroy) {
	if len(d.StoreKeys) == 0 {
		return
	}
	s.mu.Lock()
	fail := s.failDestroy[typeName]
	permanent := s.errPermanent[typeName]
	delete(s.failDestroy, typeName)
	s.mu.Unlock()

	if fail {
		if permanent {
			s.store.SourceDidError(d.StoreKeys)
		} else {
			s.store.SourceDidNotDestroy(d.StoreKeys)
		}
		return
	}

	s.mu.Lock()
	for _, id := range d.IDs {
		delete(s.data[typeName], id)
	}
	s.mu.Unlock()
	s.store.SourceDidCommitDestroy(d.StoreKeys)
}
