package main

import (
	"log"

	"github.com/linagora/overture/internal/recordstore"
	rst "github.com/linagora/overture/internal/recordstore/types"
)

// widget is the demo's one Record implementation: it has no observers of
// its own, it just logs what the store tells it so a reader can watch the
// status machine and update path fire in real time.
type widget struct {
	sk      rst.StoreKey
	pending []string
}

func (w *widget) PropertyDidChange(key string, newValue any) {
	w.pending = append(w.pending, key)
}

func (w *widget) ComputedPropertyDidChange(changedKeys []string) {}

func (w *widget) StatusDidChange(previous, next rst.Status) {
	log.Printf("widget sk=%d status %s -> %s", w.sk, previous, next)
}

func (w *widget) BeginPropertyChanges() { w.pending = w.pending[:0] }

func (w *widget) EndPropertyChanges() {
	if len(w.pending) > 0 {
		log.Printf("widget sk=%d changed %v", w.sk, w.pending)
	}
}

func (w *widget) HasObservers() bool { return false }

func (w *widget) StoreWillUnload() {
	log.Printf("widget sk=%d unloading", w.sk)
}

// widgetType registers "widget" records keyed by their "id" attribute.
type widgetType struct{}

func (widgetType) ClassName() string { return "widget" }
func (widgetType) PrimaryKey() string { return "id" }
func (widgetType) New(sk rst.StoreKey) rst.Record { return &widget{sk: sk} }

var _ rst.Type = widgetType{}

func registerWidgetType(store *recordstore.Store) {
	store.RegisterType(widgetType{})
}
