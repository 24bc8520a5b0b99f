package recordstore

import (
	"context"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// RegisterLocalQuery registers q as a filtered view over loaded records of
// typeName. Registration triggers an immediate Source.FetchRecords for the
// type. The returned func unregisters q.
func (s *Store) RegisterLocalQuery(ctx context.Context, typeName string, q rst.LocalQuery) (unregister func()) {
	s.localQueries[typeName] = append(s.localQueries[typeName], q)
	if s.source != nil {
		_ = s.source.FetchRecords(ctxOrBackground(ctx), typeName)
	}
	return func() {
		qs := s.localQueries[typeName]
		for i, existing := range qs {
			if existing == q {
				s.localQueries[typeName] = append(qs[:i], qs[i+1:]...)
				return
			}
		}
	}
}

// RegisterRemoteQuery adds q to the remote query set and invokes
// Source.FetchQuery once. Remote queries refresh themselves in
// response to Source events; the Store only holds the registration. The
// returned func unregisters q.
func (s *Store) RegisterRemoteQuery(ctx context.Context, q rst.RemoteQuery) (unregister func()) {
	s.remoteQueries[q.QueryID()] = q
	if s.source != nil {
		_ = s.source.FetchQuery(ctxOrBackground(ctx), q)
	}
	id := q.QueryID()
	return func() {
		delete(s.remoteQueries, id)
	}
}

// markTypeDirty records that typeName's loaded record set may have changed
// and schedules a single coalesced refresh at end-of-tick.
func (s *Store) markTypeDirty(typeName string) {
	if typeName == "" {
		return
	}
	s.dirtyTypes[typeName] = struct{}{}
	if s.exec == nil {
		return
	}
	s.exec.Schedule("refreshQueries", s.refreshLiveQueries)
}

// refreshLiveQueries calls Refresh on every local query registered for a
// type marked dirty since the last flush, then clears the dirty set.
func (s *Store) refreshLiveQueries() {
	for typeName := range s.dirtyTypes {
		for _, q := range s.localQueries[typeName] {
			q.Refresh()
		}
	}
	s.dirtyTypes = make(map[string]struct{})
}

// FlushQueryRefresh runs any pending query refresh synchronously. Exposed
// for callers (tests, a host without a natural tick) driving the scheduler
// manually.
func (s *Store) FlushQueryRefresh() {
	s.refreshLiveQueries()
}
