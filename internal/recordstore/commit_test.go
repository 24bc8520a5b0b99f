package recordstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rst "github.com/linagora/overture/internal/recordstore/types"
)

// CommitChanges groups creates/updates/destroys per type and transitions
// every included record to COMMITTING.
func TestCommitChanges_BuildsPerTypeChangeset(t *testing.T) {
	store, src, _, _ := newTestStore(t)

	created := store.GetStoreKey("widget", "")
	require.NoError(t, store.CreateRecord(created, rst.Hash{"name": "a"}))

	updated := store.GetStoreKey("widget", "w1")
	require.NoError(t, store.CreateRecord(updated, rst.Hash{"id": "w1", "x": 1}))
	store.SourceDidCommitCreate(map[rst.StoreKey]string{updated: "w1"})
	store.UpdateHash(updated, rst.Hash{"x": 2}, true)

	destroyed := store.GetStoreKey("widget", "w2")
	require.NoError(t, store.CreateRecord(destroyed, rst.Hash{"id": "w2", "x": 1}))
	store.SourceDidCommitCreate(map[rst.StoreKey]string{destroyed: "w2"})
	store.DestroyRecord(destroyed)

	require.NoError(t, store.CommitChanges(context.Background()))
	require.Equal(t, 1, src.commitCount())

	cs := src.lastCommit()
	widget := cs["widget"]
	assert.Len(t, widget.Create.StoreKeys, 1)
	assert.Len(t, widget.Update.StoreKeys, 1)
	assert.Len(t, widget.Destroy.StoreKeys, 1)

	assert.True(t, store.GetStatus(created).Is(rst.Committing))
	assert.True(t, store.GetStatus(updated).Is(rst.Committing))
	assert.False(t, store.GetStatus(updated).Is(rst.Dirty), "committing clears DIRTY until ack/nack")
	assert.Equal(t, rst.Destroyed, store.GetStatus(destroyed).Core())
	assert.True(t, store.GetStatus(destroyed).Is(rst.Committing))
}

// A record still COMMITTING from a prior, unacked commit is deferred to the
// next CommitChanges call rather than being included twice.
func TestCommitChanges_DefersAlreadyCommittingRecord(t *testing.T) {
	store, src, _, _ := newTestStore(t)

	sk := store.GetStoreKey("widget", "w1")
	require.NoError(t, store.CreateRecord(sk, rst.Hash{"id": "w1", "x": 1}))
	store.SourceDidCommitCreate(map[rst.StoreKey]string{sk: "w1"})

	store.UpdateHash(sk, rst.Hash{"x": 2}, true)
	require.NoError(t, store.CommitChanges(context.Background()))
	require.Equal(t, 1, src.commitCount())

	// A second local edit lands while the first update is still in flight.
	store.UpdateHash(sk, rst.Hash{"x": 3}, true)
	require.NoError(t, store.CommitChanges(context.Background()))
	// sk is still COMMITTING from the first round, so the second call must
	// not have produced a new commit containing it.
	assert.Equal(t, 1, src.commitCount(), "a record already COMMITTING must not be double-committed")

	store.SourceDidCommitUpdate([]rst.StoreKey{sk})
	require.NoError(t, store.CommitChanges(context.Background()))
	assert.Equal(t, 2, src.commitCount(), "the deferred edit commits once the first ack clears COMMITTING")
}

// A locally-created, never-acked record that's destroyed before its create
// commits is dropped without ever reaching the Source.
func TestCommitChanges_DestroyBeforeAckNeverCommits(t *testing.T) {
	store, src, _, _ := newTestStore(t)

	sk := store.GetStoreKey("widget", "")
	require.NoError(t, store.CreateRecord(sk, rst.Hash{"name": "doomed"}))
	store.DestroyRecord(sk)

	require.NoError(t, store.CommitChanges(context.Background()))
	assert.Equal(t, 0, src.commitCount())
	assert.Equal(t, rst.Status(0), store.GetStatus(sk), "destroyed-before-ack record is fully unloaded")
}

// A locally-created record destroyed while its create is already mid-commit
// (Ready|New|Committing, not the exact Ready|New of a never-committed
// create) must not be unloaded on the spot — New is preserved so the Commit
// Coordinator still waits for the create-ack before issuing the destroy.
func TestDestroyRecord_MidCommitCreatePreservesNewInsteadOfUnloading(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	sk := store.GetStoreKey("widget", "")
	require.NoError(t, store.CreateRecord(sk, rst.Hash{"name": "a"}))
	require.NoError(t, store.CommitChanges(context.Background()))
	require.True(t, store.GetStatus(sk).Is(rst.New|rst.Committing))

	store.DestroyRecord(sk)

	assert.NotEqual(t, rst.Status(0), store.GetStatus(sk), "must not unload while the create is still in flight")
	assert.Equal(t, rst.Destroyed, store.GetStatus(sk).Core())
	assert.True(t, store.GetStatus(sk).Is(rst.New), "New must be preserved so the create-ack is still awaited")
}

// DiscardChanges reverts every pending local mutation: created
// records are unloaded, dirty updates restore their committed snapshot, and
// destroys revert to READY.
func TestDiscardChanges_RevertsAllPendingMutations(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	created := store.GetStoreKey("widget", "")
	require.NoError(t, store.CreateRecord(created, rst.Hash{"name": "a"}))

	updated := store.GetStoreKey("widget", "w1")
	require.NoError(t, store.CreateRecord(updated, rst.Hash{"id": "w1", "x": 1}))
	store.SourceDidCommitCreate(map[rst.StoreKey]string{updated: "w1"})
	store.UpdateHash(updated, rst.Hash{"x": 2}, true)

	destroyed := store.GetStoreKey("widget", "w2")
	require.NoError(t, store.CreateRecord(destroyed, rst.Hash{"id": "w2", "x": 1}))
	store.SourceDidCommitCreate(map[rst.StoreKey]string{destroyed: "w2"})
	store.DestroyRecord(destroyed)

	store.DiscardChanges()

	assert.Equal(t, rst.Status(0), store.GetStatus(created))
	assert.EqualValues(t, 1, store.GetHash(updated)["x"])
	assert.False(t, store.GetStatus(updated).Is(rst.Dirty))
	assert.Equal(t, rst.Ready, store.GetStatus(destroyed).Core())
	assert.False(t, store.GetStatus(destroyed).Is(rst.Dirty))
}
