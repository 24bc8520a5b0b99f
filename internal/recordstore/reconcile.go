package recordstore

import rst "github.com/linagora/overture/internal/recordstore/types"

// lookupByID resolves an already-known (typeName, id) pair to its store
// key. Returns false for an id this Store has never allocated a key for —
// every reconciliation callback is idempotent against such unknown ids.
func (s *Store) lookupByID(typeName, id string) (rst.StoreKey, bool) {
	byID, ok := s.idToKey[typeName]
	if !ok {
		return 0, false
	}
	sk, ok := byID[id]
	return sk, ok
}

// mergeOverwrite returns a new Hash containing base's keys overlaid with
// overlay's keys, overlay winning on conflicts.
func mergeOverwrite(base, overlay rst.Hash) rst.Hash {
	out := base.Clone()
	if out == nil {
		out = make(rst.Hash, len(overlay))
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// idOf extracts the server id from a fetched record hash using typeName's
// registered primary-key attribute. Returns "" if the type is unregistered
// or the attribute is absent.
func (s *Store) idOf(typeName string, record rst.Hash) string {
	t, ok := s.types[typeName]
	if !ok {
		return ""
	}
	id, _ := record[t.PrimaryKey()].(string)
	return id
}

// SourceDidFetchRecords applies unsolicited pushes or fetch responses. When
// all is set, every known id of typeName absent from records is treated as
// an upstream destroy — the sweep runs before the per-record update loop.
func (s *Store) SourceDidFetchRecords(typeName string, records []rst.Hash, all bool) {
	if all {
		seen := make(map[string]bool, len(records))
		for _, r := range records {
			if id := s.idOf(typeName, r); id != "" {
				seen[id] = true
			}
		}
		var missing []string
		for id := range s.idToKey[typeName] {
			if !seen[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			s.SourceDidDestroyRecords(typeName, missing)
		}
	}

	for _, r := range records {
		id := s.idOf(typeName, r)
		sk := s.GetStoreKey(typeName, id)
		st := s.status[sk]

		switch {
		case st.Is(rst.Ready):
			s.UpdateHash(sk, r, false)
		case st.Core() != rst.Empty:
			warnf("fetched-is-destroyed-or-non-existent: sk=%d type=%s id=%s status=%s", sk, typeName, id, st)
		default:
			s.data[sk] = r.Clone()
			s.setStatus(sk, rst.Ready)
			s.touch(sk)
		}
	}
}

// SourceHasUpdatesForRecords marks every currently-READY id of typeName
// Obsolete — a hint that newer data may exist upstream.
func (s *Store) SourceHasUpdatesForRecords(typeName string, ids []string) {
	for _, id := range ids {
		sk, ok := s.lookupByID(typeName, id)
		if !ok {
			continue
		}
		if s.status[sk].Is(rst.Ready) {
			s.SetObsolete(sk)
		}
	}
}

// rebaseEdits reapplies the locally-changed keys of sk's current data on
// top of updatePrime (committed merged with the incoming update). A key
// stays dirty only if it was locally changed and its local value still
// differs from updatePrime's value for that key.
func (s *Store) rebaseEdits(sk rst.StoreKey, updatePrime rst.Hash) (rebased rst.Hash, changed map[string]bool, survived bool) {
	rebased = updatePrime.Clone()
	changed = make(map[string]bool)
	oldData := s.data[sk]
	oldChanged := s.changed[sk]
	for k, v := range oldData {
		if oldChanged[k] && v != updatePrime[k] {
			rebased[k] = v
			changed[k] = true
			survived = true
		}
	}
	return rebased, changed, survived
}

// SourceDidFetchUpdates reconciles a server update against a READY record.
// A COMMITTING record has the update merged into its rollback snapshot
// (consumed, so a subsequent SourceDidNotUpdate rolls back to a baseline
// that already incorporates this push); if the record is also DIRTY with a
// committed snapshot present, the dirty-conflict/rebase logic still runs
// and can override the COMMITTING outcome (including clearing COMMITTING
// early — the "a push arrived mid-commit and cleared it" case referenced by
// SourceDidCommitUpdate/SourceDidNotUpdate). A record that is COMMITTING
// but not DIRTY is left untouched beyond the rollback merge.
func (s *Store) SourceDidFetchUpdates(typeName string, updates map[string]rst.Hash) {
	for id, update := range updates {
		sk, ok := s.lookupByID(typeName, id)
		if !ok {
			continue
		}
		st := s.status[sk]
		if !st.Is(rst.Ready) {
			continue
		}

		if st.Is(rst.Committing) {
			s.rollback[sk] = mergeOverwrite(s.rollback[sk], update)
		}

		finalUpdate := update
		stop := false

		if st.Is(rst.Dirty) {
			if committed, ok := s.committed[sk]; ok {
				updatePrime := mergeOverwrite(committed, update)
				finalUpdate = updatePrime

				if s.opts.RebaseConflicts {
					rebased, changedMap, survived := s.rebaseEdits(sk, updatePrime)
					if survived {
						s.committed[sk] = updatePrime
						s.data[sk] = rebased
						s.changed[sk] = changedMap
						s.setStatus(sk, rst.Ready|rst.Dirty)
						stop = true
					}
				}
				if !stop {
					delete(s.committed, sk)
					delete(s.changed, sk)
					s.changedSet.remove(sk)
				}
			}
		}

		if stop {
			continue
		}
		if st.Is(rst.Committing) && !st.Is(rst.Dirty) {
			// Nothing else to do this call; the rollback merge above is
			// the only effect. Status stays READY|COMMITTING until the
			// commit ack arrives.
			continue
		}

		s.changedSet.remove(sk)
		s.setStatus(sk, rst.Ready)
		s.UpdateHash(sk, finalUpdate, false)
	}
}

// SourceCouldNotFindRecords handles a not-found response. An Empty
// record becomes NonExistent; any other core state discards dirty
// bookkeeping and is destroyed and unloaded.
func (s *Store) SourceCouldNotFindRecords(typeName string, ids []string) {
	for _, id := range ids {
		sk, ok := s.lookupByID(typeName, id)
		if !ok {
			continue
		}
		if s.status[sk].Core() == rst.Empty {
			s.setStatus(sk, rst.NonExistent)
			continue
		}
		delete(s.committed, sk)
		delete(s.changed, sk)
		s.changedSet.remove(sk)
		s.setStatus(sk, rst.Destroyed)
		_ = s.UnloadRecord(sk)
	}
}

// SourceDidDestroyRecords handles an upstream destroy push:
// unconditional discard of dirty bookkeeping, Destroyed, unload.
func (s *Store) SourceDidDestroyRecords(typeName string, ids []string) {
	for _, id := range ids {
		sk, ok := s.lookupByID(typeName, id)
		if !ok {
			continue
		}
		delete(s.committed, sk)
		delete(s.changed, sk)
		s.changedSet.remove(sk)
		s.setStatus(sk, rst.Destroyed)
		_ = s.UnloadRecord(sk)
	}
}

// SourceDidCommitCreate acks a batch of creates. Each sk must carry
// New; a mismatch (already acked, or never created) is logged and skipped
// rather than applied.
func (s *Store) SourceDidCommitCreate(skToID map[rst.StoreKey]string) {
	for sk, id := range skToID {
		st := s.status[sk]
		if !st.Is(rst.New) {
			warnf("source-commit-create-mismatch: sk=%d status=%s id=%s", sk, st, id)
			continue
		}
		if err := s.SetIDForStoreKey(sk, id); err != nil {
			warnf("source-commit-create-mismatch: sk=%d id=%s err=%v", sk, id, err)
			continue
		}
		s.created.remove(sk)
		s.clearBits(sk, rst.New|rst.Committing)
	}
}

// SourceDidNotCreate handles a transient create failure: a record
// the user destroyed while the create was in flight is unloaded; otherwise
// local edits are preserved, dirty bookkeeping discarded, and the record
// re-enters the created journal for the next commit attempt.
func (s *Store) SourceDidNotCreate(sks []rst.StoreKey) {
	for _, sk := range sks {
		st := s.status[sk]
		if st.Core() == rst.Destroyed {
			s.setStatus(sk, rst.Destroyed)
			_ = s.UnloadRecord(sk)
			continue
		}
		delete(s.committed, sk)
		delete(s.changed, sk)
		s.changedSet.remove(sk)
		s.setStatus(sk, rst.Ready|rst.New)
		s.created.add(sk)
	}
}

// SourceDidCommitUpdate acks a batch of updates. A record that is no
// longer Ready is ignored (it moved on, e.g. destroyed, since the commit was
// built). A record whose Committing bit was already cleared by an
// intervening push is marked Obsolete instead of simply cleaned up.
func (s *Store) SourceDidCommitUpdate(sks []rst.StoreKey) {
	for _, sk := range sks {
		delete(s.rollback, sk)
		st := s.status[sk]
		if !st.Is(rst.Ready) {
			continue
		}
		if !st.Is(rst.Committing) {
			s.SetObsolete(sk)
			continue
		}
		s.clearBits(sk, rst.Committing)
	}
}

// SourceDidNotUpdate handles a transient update failure: the committed
// snapshot is restored from rollback (unless a newer edit already
// reestablished one while the commit was in flight), changed is rebuilt by
// a single post-loop diff of data against committed (not recomputed per
// attribute), and the record is marked Dirty and
// re-queued for the next commit unless an intervening push already cleared
// Committing, in which case it is marked Obsolete instead.
func (s *Store) SourceDidNotUpdate(sks []rst.StoreKey) {
	for _, sk := range sks {
		rb, hadRollback := s.rollback[sk]
		delete(s.rollback, sk)
		if _, hasCommitted := s.committed[sk]; !hasCommitted && hadRollback {
			s.committed[sk] = rb
		}

		if committed, ok := s.committed[sk]; ok {
			changed := make(map[string]bool)
			data := s.data[sk]
			for k, v := range data {
				if v != committed[k] {
					changed[k] = true
				}
			}
			for k := range committed {
				if _, present := data[k]; !present {
					changed[k] = true
				}
			}
			s.changed[sk] = changed
		}

		st := s.status[sk]
		if !st.Is(rst.Committing) {
			s.SetObsolete(sk)
			continue
		}
		s.setStatus(sk, (st&^rst.Committing)|rst.Dirty)
		s.changedSet.add(sk)
	}
}

// SourceDidCommitDestroy acks a batch of destroys: requires
// Destroyed, clears Committing, unloads.
func (s *Store) SourceDidCommitDestroy(sks []rst.StoreKey) {
	for _, sk := range sks {
		if s.status[sk].Core() != rst.Destroyed {
			warnf("source-commit-destroy-mismatch: sk=%d status=%s", sk, s.status[sk])
			continue
		}
		s.setStatus(sk, rst.Destroyed)
		_ = s.UnloadRecord(sk)
	}
}

// SourceDidNotDestroy handles a transient destroy failure: requires
// Destroyed, marks Dirty, re-enters the destroyed journal.
func (s *Store) SourceDidNotDestroy(sks []rst.StoreKey) {
	for _, sk := range sks {
		if s.status[sk].Core() != rst.Destroyed {
			warnf("source-not-destroy-mismatch: sk=%d status=%s", sk, s.status[sk])
			continue
		}
		s.setStatus(sk, rst.Destroyed|rst.Dirty)
		s.destroyed.add(sk)
	}
}

// SourceDidError handles a permanent failure: a record that never reached
// the server (New) is unloaded; otherwise data is rolled back to the last
// known committed snapshot and the record is marked Obsolete.
func (s *Store) SourceDidError(sks []rst.StoreKey) {
	for _, sk := range sks {
		st := s.status[sk]
		if st.Is(rst.New) {
			s.setStatus(sk, rst.Destroyed)
			_ = s.UnloadRecord(sk)
			continue
		}
		if rb, ok := s.rollback[sk]; ok {
			s.data[sk] = rb
		}
		delete(s.committed, sk)
		delete(s.changed, sk)
		delete(s.rollback, sk)
		s.changedSet.remove(sk)
		s.setStatus(sk, rst.Ready|rst.Obsolete)
	}
}
