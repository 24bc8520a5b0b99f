package recordstore

import rst "github.com/linagora/overture/internal/recordstore/types"

// orderedSet tracks a set of store keys in first-insertion order, so the
// commit build observes synchronous mutations from the current tick in the
// same order they happened.
type orderedSet struct {
	order []rst.StoreKey
	has   map[rst.StoreKey]bool
}

func newOrderedSet() orderedSet {
	return orderedSet{has: make(map[rst.StoreKey]bool)}
}

func (o *orderedSet) add(sk rst.StoreKey) {
	if o.has == nil {
		o.has = make(map[rst.StoreKey]bool)
	}
	if o.has[sk] {
		return
	}
	o.has[sk] = true
	o.order = append(o.order, sk)
}

func (o *orderedSet) remove(sk rst.StoreKey) {
	if !o.has[sk] {
		return
	}
	delete(o.has, sk)
	for i, k := range o.order {
		if k == sk {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

func (o *orderedSet) contains(sk rst.StoreKey) bool {
	return o.has[sk]
}

// keys returns a snapshot copy of the set's members in insertion order,
// safe to range over even while the caller mutates the set (e.g. via
// UnloadRecord) during iteration.
func (o *orderedSet) keys() []rst.StoreKey {
	out := make([]rst.StoreKey, len(o.order))
	copy(out, o.order)
	return out
}

func (o *orderedSet) len() int {
	return len(o.order)
}
