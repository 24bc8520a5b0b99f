package recordstore_test

import rst "github.com/linagora/overture/internal/recordstore/types"

// fakeRecord is a minimal Record test double that records every
// notification it receives, for assertions on the change-notification
// contract (property-change fan-out, status-change fan-out, unload hook).
type fakeRecord struct {
	sk rst.StoreKey

	statusChanges [][2]rst.Status
	propChanges   []string
	computedCalls [][]string
	unloaded      bool
	observed      bool
	inBatch       bool
}

func (r *fakeRecord) PropertyDidChange(key string, _ any) {
	r.propChanges = append(r.propChanges, key)
}

func (r *fakeRecord) ComputedPropertyDidChange(changedKeys []string) {
	r.computedCalls = append(r.computedCalls, changedKeys)
}

func (r *fakeRecord) StatusDidChange(previous, next rst.Status) {
	r.statusChanges = append(r.statusChanges, [2]rst.Status{previous, next})
}

func (r *fakeRecord) BeginPropertyChanges() { r.inBatch = true }
func (r *fakeRecord) EndPropertyChanges()   { r.inBatch = false }

func (r *fakeRecord) HasObservers() bool { return r.observed }

func (r *fakeRecord) StoreWillUnload() { r.unloaded = true }

// widgetType is a Type test double that hands out fakeRecords and
// remembers them so tests can inspect notifications after the fact.
type widgetType struct {
	className string
	primary   string
	made      map[rst.StoreKey]*fakeRecord
}

func newWidgetType() *widgetType {
	return &widgetType{className: "widget", primary: "id", made: make(map[rst.StoreKey]*fakeRecord)}
}

func (t *widgetType) ClassName() string { return t.className }
func (t *widgetType) PrimaryKey() string { return t.primary }

func (t *widgetType) New(sk rst.StoreKey) rst.Record {
	r := &fakeRecord{sk: sk}
	t.made[sk] = r
	return r
}

var _ rst.Type = (*widgetType)(nil)
var _ rst.Record = (*fakeRecord)(nil)

// simpleQuery is a minimal RemoteQuery test double.
type simpleQuery struct{ id string }

func (q simpleQuery) QueryID() string { return q.id }

// simpleLocalQuery is a minimal LocalQuery test double that counts refreshes.
type simpleLocalQuery struct {
	typeName string
	refreshes int
}

func (q *simpleLocalQuery) TypeName() string { return q.typeName }
func (q *simpleLocalQuery) Refresh()         { q.refreshes++ }
