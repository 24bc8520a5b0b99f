package recordstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linagora/overture/internal/recordstore"
	rst "github.com/linagora/overture/internal/recordstore/types"
)

func TestStatus_CoreAndModifiersOrthogonal(t *testing.T) {
	s := rst.Ready | rst.Dirty | rst.Committing
	assert.Equal(t, rst.Ready, s.Core())
	assert.Equal(t, rst.Dirty|rst.Committing, s.Modifiers())
	assert.True(t, s.Is(rst.Ready|rst.Dirty))
	assert.False(t, s.Is(rst.Ready|rst.Loading))
	assert.True(t, s.Any(rst.Loading|rst.Dirty))
}

func TestStatus_WithCorePreservesModifiers(t *testing.T) {
	s := rst.Ready | rst.Dirty
	s2 := s.WithCore(rst.Destroyed)
	assert.Equal(t, rst.Destroyed, s2.Core())
	assert.True(t, s2.Is(rst.Dirty))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "EMPTY", rst.Status(0).String())
	assert.Equal(t, "READY", rst.Ready.String())
	assert.Equal(t, "READY|COMMITTING|DIRTY", (rst.Ready | rst.Dirty | rst.Committing).String())
}

// Exactly one of EMPTY/READY/DESTROYED/NON_EXISTENT is set at any time, for
// every status reachable through the public API.
func TestStatus_ExactlyOneCoreBit(t *testing.T) {
	src := &fakeSource{}
	exec := newFakeExecutor()
	store := recordstore.New(src, exec, recordstore.DefaultOptions())
	wt := newWidgetType()
	store.RegisterType(wt)

	sk := store.GetStoreKey("widget", "")
	require.NoError(t, store.CreateRecord(sk, rst.Hash{"name": "a"}))

	core := store.GetStatus(sk).Core()
	oneOf := []rst.Status{rst.Empty, rst.Ready, rst.Destroyed, rst.NonExistent}
	count := 0
	for _, c := range oneOf {
		if core == c {
			count++
		}
	}
	assert.Equal(t, 1, count, "status=%s", store.GetStatus(sk))
}

func TestStatus_ModifierSettersCompose(t *testing.T) {
	src := &fakeSource{}
	exec := newFakeExecutor()
	store := recordstore.New(src, exec, recordstore.Options{})
	wt := newWidgetType()
	store.RegisterType(wt)

	sk := store.GetStoreKey("widget", "w1")
	require.NoError(t, store.CreateRecord(sk, rst.Hash{"id": "w1"}))
	store.SourceDidCommitCreate(map[rst.StoreKey]string{sk: "w1"})

	store.SetLoading(sk)
	assert.True(t, store.GetStatus(sk).Is(rst.Loading))

	store.SetObsolete(sk)
	assert.True(t, store.GetStatus(sk).Is(rst.Obsolete))
	assert.True(t, store.GetStatus(sk).Is(rst.Loading), "SetObsolete must not clear other modifiers")

	store.SetDirty(sk)
	store.SetCommitting(sk)
	assert.True(t, store.GetStatus(sk).Is(rst.Dirty|rst.Committing|rst.Obsolete|rst.Loading))
	assert.Equal(t, rst.Ready, store.GetStatus(sk).Core(), "modifier setters never touch the core bit")
}
