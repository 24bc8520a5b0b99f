package recordstore

import rst "github.com/linagora/overture/internal/recordstore/types"

// CreateRecord materializes a new, locally-created record at sk. Valid only
// when sk's core state is Empty or Destroyed; returns ErrRecordExists
// otherwise (illegal client operation: create on existing record). Sets
// status Ready|New, adds sk to the created journal, and — through the
// normal (non-dirty) update path — populates data and notifies observers.
func (s *Store) CreateRecord(sk rst.StoreKey, data rst.Hash) error {
	core := s.status[sk].Core()
	if core != 0 && core != rst.Empty && core != rst.Destroyed {
		return ErrRecordExists
	}
	s.setStatus(sk, rst.Ready|rst.New)
	s.created.add(sk)
	s.UpdateHash(sk, data, false)
	if s.opts.AutoCommit {
		s.scheduleCommit()
	}
	return nil
}

// DestroyRecord marks sk for deletion. A record that was created locally
// and never committed (exactly Ready|New, no Committing in flight) is
// dropped from the created journal and unloaded immediately — no commit is
// ever issued for it. A record whose create is already mid-commit
// (Ready|New|Committing) falls through to the general case below: it is
// moved into the destroyed journal with New preserved, so the Commit
// Coordinator waits for the create-ack before issuing the destroy. Any
// other record is moved into the destroyed journal; if
// it was Dirty, its in-flight edits are discarded (reverted to the
// committed snapshot) since a destroy supersedes them. The New bit, if
// set, is preserved so the Commit Coordinator knows to wait for a
// create-ack before issuing the destroy.
func (s *Store) DestroyRecord(sk rst.StoreKey) {
	st := s.status[sk]

	if st == rst.Ready|rst.New {
		s.created.remove(sk)
		s.setStatus(sk, rst.Destroyed)
		_ = s.UnloadRecord(sk)
		return
	}

	if st.Is(rst.Dirty) {
		if committed, ok := s.committed[sk]; ok {
			s.data[sk] = committed.Clone()
		}
		delete(s.committed, sk)
		delete(s.changed, sk)
		s.changedSet.remove(sk)
	}

	s.destroyed.add(sk)
	next := rst.Destroyed | rst.Dirty
	next |= st & rst.Obsolete
	next |= st & rst.New
	s.setStatus(sk, next)

	if s.opts.AutoCommit {
		s.scheduleCommit()
	}
}
