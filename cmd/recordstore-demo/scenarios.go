package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/linagora/overture/internal/recordstore"
	"github.com/linagora/overture/internal/recordstore/memsource"
	"github.com/linagora/overture/internal/recordstore/scheduler"
	rst "github.com/linagora/overture/internal/recordstore/types"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Run the reconciliation demo scenarios against the in-memory Source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		scenarioCreateAndAck(ctx)
		scenarioEditCommitRace(ctx)
		scenarioRebase(ctx)
		scenarioDestroyNewBeforeAck(ctx)
		scenarioPermanentError(ctx)
		scenarioFetchAllSweep(ctx)
		return nil
	},
}

func newDemoStore() (*recordstore.Store, *memsource.Source, *scheduler.Executor) {
	src := memsource.New()
	exec := scheduler.NewExecutor()
	store := recordstore.New(src, exec, recordstore.DefaultOptions())
	registerWidgetType(store)
	src.Bind(store)
	return store, src, exec
}

// scenarioCreateAndAck walks a create through to its commit ack.
func scenarioCreateAndAck(ctx context.Context) {
	fmt.Println("\n=== create + ack ===")
	store, _, exec := newDemoStore()

	sk := store.GetStoreKey("widget", "")
	if err := store.CreateRecord(sk, rst.Hash{"name": "a"}); err != nil {
		log.Fatalf("create: %v", err)
	}
	log.Printf("after createRecord: status=%s", store.GetStatus(sk))

	exec.Flush()
	log.Printf("after commit ack: status=%s id=%s", store.GetStatus(sk), store.IDForStoreKey(sk))
}

// scenarioEditCommitRace exercises a push landing while a commit is in
// flight. memsource acks synchronously inside CommitChanges, so there is no
// real window to inject a push before the ack; this scenario wires a source
// whose CommitChanges only builds the wire payload (no ack) to open that
// window, then drives the race by hand.
type noAckSource struct{ store *recordstore.Store }

func (noAckSource) FetchRecord(context.Context, string, string) error       { return nil }
func (noAckSource) RefreshRecord(context.Context, string, string) error     { return nil }
func (noAckSource) FetchRecords(context.Context, string) error              { return nil }
func (noAckSource) FetchQuery(context.Context, rst.RemoteQuery) error       { return nil }
func (noAckSource) CommitChanges(context.Context, rst.Changeset) error      { return nil }

func scenarioEditCommitRace(ctx context.Context) {
	fmt.Println("\n=== edit-commit-update race ===")
	exec := scheduler.NewExecutor()
	store := recordstore.New(noAckSource{}, exec, recordstore.DefaultOptions())
	registerWidgetType(store)

	sk := store.GetStoreKey("widget", "w2")
	store.CreateRecord(sk, rst.Hash{"id": "w2", "x": 1})
	exec.Flush() // ack never arrives (noAckSource), but New bit stays until we fake one

	// Fake the create ack so the record reaches plain READY with x=1.
	store.SourceDidCommitCreate(map[rst.StoreKey]string{sk: "w2"})
	log.Printf("seeded: status=%s data=%v", store.GetStatus(sk), store.GetHash(sk))

	store.UpdateHash(sk, rst.Hash{"x": 2}, true)
	log.Printf("after local edit: status=%s data=%v", store.GetStatus(sk), store.GetHash(sk))

	_ = store.CommitChanges(ctx) // builds changeset, sets COMMITTING; noAckSource never acks
	log.Printf("after commit build: status=%s data=%v", store.GetStatus(sk), store.GetHash(sk))

	store.SourceDidFetchUpdates("widget", map[string]rst.Hash{"w2": {"x": 3}})
	log.Printf("after concurrent push: status=%s data=%v", store.GetStatus(sk), store.GetHash(sk))

	store.SourceDidCommitUpdate([]rst.StoreKey{sk})
	log.Printf("after late ack: status=%s data=%v", store.GetStatus(sk), store.GetHash(sk))
}

// scenarioRebase exercises a dirty record surviving a conflicting push via rebase.
func scenarioRebase(ctx context.Context) {
	fmt.Println("\n=== rebase ===")
	store, src, _ := newDemoStore()

	src.Seed("widget", "w3", rst.Hash{"id": "w3", "a": 1, "b": 1})
	_ = src.FetchRecord(ctx, "widget", "w3")
	sk := store.GetStoreKey("widget", "w3")

	store.UpdateHash(sk, rst.Hash{"a": 2}, true)
	log.Printf("after local edit: status=%s data=%v", store.GetStatus(sk), store.GetHash(sk))

	store.SourceDidFetchUpdates("widget", map[string]rst.Hash{"w3": {"b": 9}})
	log.Printf("after rebased push: status=%s data=%v", store.GetStatus(sk), store.GetHash(sk))
}

// scenarioDestroyNewBeforeAck destroys a record before its create ack arrives.
func scenarioDestroyNewBeforeAck(ctx context.Context) {
	fmt.Println("\n=== destroy new before ack ===")
	store, _, exec := newDemoStore()

	sk := store.GetStoreKey("widget", "")
	store.CreateRecord(sk, rst.Hash{"name": "doomed"})
	store.DestroyRecord(sk)
	log.Printf("after create+destroy same tick: status=%d (0 means unloaded)", store.GetStatus(sk))
	exec.Flush()
	log.Printf("after flush: status=%s", store.GetStatus(sk))
}

// scenarioPermanentError exercises a permanent commit failure rollback.
func scenarioPermanentError(ctx context.Context) {
	fmt.Println("\n=== permanent error ===")
	store, src, exec := newDemoStore()

	src.Seed("widget", "w5", rst.Hash{"id": "w5", "x": 1})
	_ = src.FetchRecord(ctx, "widget", "w5")
	sk := store.GetStoreKey("widget", "w5")

	store.UpdateHash(sk, rst.Hash{"x": 2}, true)
	src.FailNextUpdate("widget", true) // permanent
	exec.Flush()
	log.Printf("after permanent error: status=%s data=%v", store.GetStatus(sk), store.GetHash(sk))
}

// scenarioFetchAllSweep exercises the all=true destroy-sweep on fetch.
func scenarioFetchAllSweep(ctx context.Context) {
	fmt.Println("\n=== fetchAllRecords sweep ===")
	store, src, _ := newDemoStore()

	src.Seed("widget", "1", rst.Hash{"id": "1", "v": "one"})
	src.Seed("widget", "2", rst.Hash{"id": "2", "v": "two"})
	_ = src.FetchRecords(ctx, "widget")
	sk1 := store.GetStoreKey("widget", "1")
	sk2 := store.GetStoreKey("widget", "2")
	log.Printf("loaded: 1=%s 2=%s", store.GetStatus(sk1), store.GetStatus(sk2))

	store.SourceDidFetchRecords("widget", []rst.Hash{{"id": "1", "v": "one-updated"}}, true)
	log.Printf("after sweep: 1=%s data=%v, 2=%s", store.GetStatus(sk1), store.GetHash(sk1), store.GetStatus(sk2))
}
