package recordstore_test

import (
	"context"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// fakeSource is a controllable types.Source test double. It never acks on
// its own — tests drive the Reconciliation Engine callbacks by hand, which
// is what lets commit_test.go and reconcile_test.go assert exact
// pre-ack/post-ack state instead of racing a real (or even memsource's
// synchronous) ack.
type fakeSource struct {
	commits      []rst.Changeset
	fetchRecords []string
	fetchQueries []string
}

func (f *fakeSource) FetchRecord(context.Context, string, string) error { return nil }
func (f *fakeSource) RefreshRecord(context.Context, string, string) error { return nil }

func (f *fakeSource) FetchRecords(_ context.Context, typeName string) error {
	f.fetchRecords = append(f.fetchRecords, typeName)
	return nil
}

func (f *fakeSource) FetchQuery(_ context.Context, q rst.RemoteQuery) error {
	f.fetchQueries = append(f.fetchQueries, q.QueryID())
	return nil
}

func (f *fakeSource) CommitChanges(_ context.Context, changeset rst.Changeset) error {
	f.commits = append(f.commits, changeset)
	return nil
}

// commitCount reports how many non-empty CommitChanges calls were received.
func (f *fakeSource) commitCount() int { return len(f.commits) }

func (f *fakeSource) lastCommit() rst.Changeset {
	if len(f.commits) == 0 {
		return nil
	}
	return f.commits[len(f.commits)-1]
}

// fakeExecutor runs Schedule's fn immediately on Flush and dedupes by key
// within a "tick" exactly like scheduler.Executor, but without the
// singleflight/goroutine-safety machinery — tests are single-threaded.
type fakeExecutor struct {
	pending map[string]func()
	order   []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{pending: make(map[string]func())}
}

func (e *fakeExecutor) Schedule(key string, fn func()) {
	if _, ok := e.pending[key]; !ok {
		e.order = append(e.order, key)
	}
	e.pending[key] = fn
}

func (e *fakeExecutor) Flush() {
	keys := e.order
	pending := e.pending
	e.order = nil
	e.pending = make(map[string]func())
	for _, k := range keys {
		if fn := pending[k]; fn != nil {
			fn()
		}
	}
}

var _ rst.Source = (*fakeSource)(nil)
var _ rst.DeferredExecutor = (*fakeExecutor)(nil)
