package recordstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// Registering a local query triggers an immediate FetchRecords for its type.
func TestRegisterLocalQuery_TriggersFetch(t *testing.T) {
	store, src, _, _ := newTestStore(t)
	q := &simpleLocalQuery{typeName: "widget"}

	unregister := store.RegisterLocalQuery(context.Background(), "widget", q)
	defer unregister()

	require.Len(t, src.fetchRecords, 1)
	assert.Equal(t, "widget", src.fetchRecords[0])
}

// A mutation that changes a loaded widget's data schedules exactly one
// coalesced Refresh on every local query registered for that type, fired on
// Flush.
func TestLocalQuery_RefreshesOncePerTickOnDataChange(t *testing.T) {
	store, _, exec, _ := newTestStore(t)
	q := &simpleLocalQuery{typeName: "widget"}
	store.RegisterLocalQuery(context.Background(), "widget", q)

	sk := store.GetStoreKey("widget", "w1")
	require.NoError(t, store.CreateRecord(sk, rst.Hash{"id": "w1", "x": 1}))
	store.SourceDidCommitCreate(map[rst.StoreKey]string{sk: "w1"})

	store.UpdateHash(sk, rst.Hash{"x": 2}, true)
	store.UpdateHash(sk, rst.Hash{"x": 3}, true)
	assert.Equal(t, 0, q.refreshes, "refresh must be deferred to the next tick")

	exec.Flush()
	assert.Equal(t, 1, q.refreshes, "two edits in one tick must coalesce into a single refresh")
}

// Unregistering a local query stops further refreshes.
func TestLocalQuery_UnregisterStopsRefresh(t *testing.T) {
	store, _, exec, _ := newTestStore(t)
	q := &simpleLocalQuery{typeName: "widget"}
	unregister := store.RegisterLocalQuery(context.Background(), "widget", q)
	unregister()

	sk := store.GetStoreKey("widget", "w1")
	require.NoError(t, store.CreateRecord(sk, rst.Hash{"id": "w1", "x": 1}))
	store.SourceDidCommitCreate(map[rst.StoreKey]string{sk: "w1"})
	store.UpdateHash(sk, rst.Hash{"x": 2}, true)
	exec.Flush()

	assert.Equal(t, 0, q.refreshes)
}

// Registering a remote query triggers FetchQuery once.
func TestRegisterRemoteQuery_TriggersFetch(t *testing.T) {
	store, src, _, _ := newTestStore(t)
	q := simpleQuery{id: "open-widgets"}

	unregister := store.RegisterRemoteQuery(context.Background(), q)
	defer unregister()

	require.Len(t, src.fetchQueries, 1)
	assert.Equal(t, "open-widgets", src.fetchQueries[0])
}
