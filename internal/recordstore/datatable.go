package recordstore

import (
	"context"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// GetHash returns sk's current attribute hash: the store's own copy if it
// owns one, else (for a nested store that has never written sk) the
// parent's hash by identity. Returns nil for an unknown key.
func (s *Store) GetHash(sk rst.StoreKey) rst.Hash {
	if h, owned := s.data[sk]; owned {
		return h
	}
	if s.parent != nil {
		return s.parent.GetHash(sk)
	}
	return nil
}

// cloneFromParentIfNeeded: a nested store shares the parent's hash by
// identity until its first write, at which point it clones.
func (s *Store) cloneFromParentIfNeeded(sk rst.StoreKey) {
	if !s.opts.IsNested || s.parent == nil {
		return
	}
	if _, owned := s.data[sk]; owned {
		return
	}
	s.data[sk] = s.parent.GetHash(sk).Clone()
}

// UpdateHash is the sole write path for a record's attribute hash.
// changeIsDirty distinguishes a local user edit (true) from an
// authoritative write from the reconciliation engine or key registry
// (false). Returns false ("not written") when changeIsDirty is requested
// against a non-READY record.
func (s *Store) UpdateHash(sk rst.StoreKey, patch rst.Hash, changeIsDirty bool) bool {
	s.cloneFromParentIfNeeded(sk)

	st := s.GetStatus(sk)

	// Step 2: creates carry no "dirty against committed" semantics — the
	// whole record is pending creation.
	if st.Is(rst.Ready | rst.New) {
		changeIsDirty = false
	}

	// Step 3: write-to-unready is refused, not silently accepted.
	if changeIsDirty && !st.Is(rst.Ready) {
		warnf("write-to-unready: sk=%d status=%s patch=%v", sk, st, patch)
		return false
	}

	if s.data[sk] == nil {
		s.data[sk] = make(rst.Hash)
	}
	data := s.data[sk]

	var changedKeys []string

	if changeIsDirty {
		if s.committed[sk] == nil {
			s.committed[sk] = data.Clone()
		}
		if s.changed[sk] == nil {
			s.changed[sk] = make(map[string]bool)
		}
		committed := s.committed[sk]
		changedMap := s.changed[sk]

		for k, newVal := range patch {
			if newVal == data[k] {
				continue
			}
			data[k] = newVal
			changedKeys = append(changedKeys, k)
			changedMap[k] = newVal != committed[k]
		}

		seenChange := false
		for _, dirty := range changedMap {
			if dirty {
				seenChange = true
				break
			}
		}

		if seenChange {
			s.SetDirty(sk)
			s.changedSet.add(sk)
			if s.opts.AutoCommit {
				s.scheduleCommit()
			}
		} else {
			s.clearBits(sk, rst.Dirty)
			delete(s.committed, sk)
			delete(s.changed, sk)
			s.changedSet.remove(sk)
			if s.opts.IsNested {
				delete(s.data, sk)
			}
		}
	} else {
		for k, newVal := range patch {
			if newVal == data[k] {
				continue
			}
			data[k] = newVal
			changedKeys = append(changedKeys, k)
		}
	}

	if len(changedKeys) > 0 {
		s.touch(sk)
		if r := s.recordFor(sk); r != nil {
			r.BeginPropertyChanges()
			for _, k := range changedKeys {
				r.PropertyDidChange(k, data[k])
			}
			r.ComputedPropertyDidChange(changedKeys)
			r.EndPropertyChanges()
		}
		for _, child := range s.nested {
			child.parentDidChangeData(sk, changedKeys)
		}
		if s.observers.onDataChange != nil {
			s.observers.onDataChange(s.keyType[sk], sk, changedKeys)
		}
		s.markTypeDirty(s.keyType[sk])
	}

	return true
}

// RevertHash discards all local edits to sk by reapplying its committed
// snapshot as a dirty patch — which, per UpdateHash's own logic, clears
// Dirty once no changed key remains true.
func (s *Store) RevertHash(sk rst.StoreKey) {
	committed, ok := s.committed[sk]
	if !ok {
		return
	}
	s.UpdateHash(sk, committed.Clone(), true)
}

// scheduleCommit arranges a single CommitChanges call at end-of-tick,
// deduped with any other pending commit request this tick.
func (s *Store) scheduleCommit() {
	if s.exec == nil {
		return
	}
	s.exec.Schedule("commit", func() {
		_ = s.CommitChanges(context.Background())
	})
}
