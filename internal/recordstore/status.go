package recordstore

import rst "github.com/linagora/overture/internal/recordstore/types"

// GetStatus returns sk's status: this store's own entry if it has one, else
// (for a nested store that has never received a status change for sk since
// its creation) the parent's status by identity, same as GetHash. At the
// root, a key with no entry (never allocated, or unloaded) reads as the zero
// Status, not Empty.
func (s *Store) GetStatus(sk rst.StoreKey) rst.Status {
	if st, ok := s.status[sk]; ok {
		return st
	}
	if s.parent != nil {
		return s.parent.GetStatus(sk)
	}
	return rst.Status(0)
}

// setStatus is the single mutation point for the status table: every status
// change in this package must go through it so the change-notification
// contract — a status property-change on the materialized record, plus
// parentDidChangeStatus on every nested store — never gets skipped.
func (s *Store) setStatus(sk rst.StoreKey, next rst.Status) {
	prev := s.status[sk]
	if prev == next {
		return
	}
	s.status[sk] = next

	typeName := s.keyType[sk]
	if r := s.records[sk]; r != nil {
		r.StatusDidChange(prev, next)
	}
	for _, child := range s.nested {
		child.parentDidChangeStatus(sk, prev, next)
	}
	if s.observers.onStatusChange != nil {
		s.observers.onStatusChange(typeName, sk, prev, next)
	}
}

// SetDirty ORs in the Dirty modifier.
func (s *Store) SetDirty(sk rst.StoreKey) { s.setStatus(sk, s.GetStatus(sk)|rst.Dirty) }

// SetLoading ORs in the Loading modifier.
func (s *Store) SetLoading(sk rst.StoreKey) { s.setStatus(sk, s.GetStatus(sk)|rst.Loading) }

// SetCommitting ORs in the Committing modifier.
func (s *Store) SetCommitting(sk rst.StoreKey) { s.setStatus(sk, s.GetStatus(sk)|rst.Committing) }

// SetObsolete ORs in the Obsolete modifier.
func (s *Store) SetObsolete(sk rst.StoreKey) { s.setStatus(sk, s.GetStatus(sk)|rst.Obsolete) }

// clearBits clears the given modifier bits from sk's status.
func (s *Store) clearBits(sk rst.StoreKey, bits rst.Status) {
	s.setStatus(sk, s.GetStatus(sk)&^bits)
}
