package recordstore

import rst "github.com/linagora/overture/internal/recordstore/types"

// parentDidChangeStatus is invoked by a parent Store's setStatus on every
// registered nested store. The nested store mirrors the new status into
// its own table, which in turn notifies its own materialized record and
// propagates to any grandchild stores — status is not copy-on-write, only
// data is.
func (c *Store) parentDidChangeStatus(sk rst.StoreKey, prev, next rst.Status) {
	c.setStatus(sk, next)
}

// parentDidChangeData is invoked by a parent Store's UpdateHash on every
// registered nested store. If the nested store has already diverged
// (owns a private copy of sk's hash from its own prior write), the parent's
// change does not clobber it — the nested store's local edits win until it
// reverts or is discarded. If the nested store has not diverged, it still
// owns no private data (it continues to read through to the parent by
// identity via GetHash) but its own materialized record and grandchildren
// are notified so observers attached in the overlay see the change too.
func (c *Store) parentDidChangeData(sk rst.StoreKey, changedKeys []string) {
	if _, owned := c.data[sk]; owned {
		return
	}
	h := c.GetHash(sk)
	if r := c.recordFor(sk); r != nil {
		r.BeginPropertyChanges()
		for _, k := range changedKeys {
			r.PropertyDidChange(k, h[k])
		}
		r.ComputedPropertyDidChange(changedKeys)
		r.EndPropertyChanges()
	}
	for _, grandchild := range c.nested {
		grandchild.parentDidChangeData(sk, changedKeys)
	}
	c.markTypeDirty(c.keyType[sk])
}
