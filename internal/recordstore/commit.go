package recordstore

import (
	"context"
	"sort"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// CommitChanges builds a per-type changeset from the created, changedSet,
// and destroyed journals and hands it to the Source, transitioning every
// included record to Committing. Records already Committing (an
// overlapping commit still in flight) are deferred to the next call
// instead of being included twice. Safe to call repeatedly within one tick
// — idempotent coalescing across repeated scheduling is the scheduler's
// job, not this method's; this method just builds whatever is currently
// pending.
func (s *Store) CommitChanges(ctx context.Context) error {
	changeset := make(rst.Changeset)
	nextDestroyed := newOrderedSet()
	nextChangedSet := newOrderedSet()

	for _, sk := range s.created.keys() {
		typeName := s.keyType[sk]
		tc := changeset[typeName]
		tc.Create.StoreKeys = append(tc.Create.StoreKeys, sk)
		tc.Create.Records = append(tc.Create.Records, s.GetHash(sk).Clone())
		changeset[typeName] = tc
		s.SetCommitting(sk)
	}
	s.created = newOrderedSet()

	for _, sk := range s.changedSet.keys() {
		if s.status[sk].Is(rst.Committing) {
			nextChangedSet.add(sk)
			continue
		}
		typeName := s.keyType[sk]
		s.rollback[sk] = s.committed[sk]
		delete(s.committed, sk)
		keys := dirtyKeys(s.changed[sk])

		tc := changeset[typeName]
		tc.Update.StoreKeys = append(tc.Update.StoreKeys, sk)
		tc.Update.Records = append(tc.Update.Records, s.GetHash(sk).Clone())
		tc.Update.Changes = append(tc.Update.Changes, keys)
		changeset[typeName] = tc

		s.clearBits(sk, rst.Dirty)
		s.SetCommitting(sk)
	}
	s.changedSet = nextChangedSet

	for _, sk := range s.destroyed.keys() {
		if s.status[sk].Is(rst.New) {
			nextDestroyed.add(sk)
			continue
		}
		typeName := s.keyType[sk]
		tc := changeset[typeName]
		tc.Destroy.StoreKeys = append(tc.Destroy.StoreKeys, sk)
		tc.Destroy.IDs = append(tc.Destroy.IDs, s.keyToID[sk])
		changeset[typeName] = tc
		s.setStatus(sk, rst.Destroyed|rst.Committing)
	}
	s.destroyed = nextDestroyed

	if changeset.Empty() || s.source == nil {
		return nil
	}
	return s.source.CommitChanges(ctxOrBackground(ctx), changeset)
}

// dirtyKeys returns the sorted list of attribute keys marked true in
// changed, for a deterministic Changeset.Update.Changes entry.
func dirtyKeys(changed map[string]bool) []string {
	var keys []string
	for k, dirty := range changed {
		if dirty {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// DiscardChanges drops all pending local mutations globally. It
// cannot abort requests already sent to the Source — an ack arriving for a
// now-discarded record is simply a no-op in the Reconciliation Engine,
// since the record is unloaded or no longer journaled.
func (s *Store) DiscardChanges() {
	for _, sk := range s.created.keys() {
		s.setStatus(sk, rst.Destroyed)
		_ = s.UnloadRecord(sk)
	}
	s.created = newOrderedSet()

	for _, sk := range s.changedSet.keys() {
		if committed, ok := s.committed[sk]; ok {
			s.data[sk] = committed.Clone()
		}
		delete(s.committed, sk)
		delete(s.changed, sk)
		prev := s.status[sk]
		next := rst.Ready | (prev & (rst.Obsolete | rst.Loading | rst.Committing))
		s.setStatus(sk, next)
	}
	s.changedSet = newOrderedSet()

	for _, sk := range s.destroyed.keys() {
		prev := s.status[sk]
		next := rst.Ready | (prev & rst.Obsolete)
		s.setStatus(sk, next)
	}
	s.destroyed = newOrderedSet()
}
