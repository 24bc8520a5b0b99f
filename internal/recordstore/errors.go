package recordstore

import "errors"

// Sentinel errors a caller may check with errors.Is. The reconciliation
// engine and the commit coordinator never return these across the Source
// boundary; they are only returned from the handful of client-facing
// operations that refuse outright (CreateRecord on an existing record,
// UnloadRecord on a record that may not be unloaded, SetIDForStoreKey with a
// duplicate id). UpdateHash to a non-READY record reports refusal through
// its bool result and a logged warning, not an error.
var (
	// ErrUnknownStoreKey names a store key this Store has no tables for
	// (already unloaded, or never allocated). No operation of this package
	// currently returns it.
	ErrUnknownStoreKey = errors.New("recordstore: unknown store key")

	// ErrUnknownType names a type that was never registered with
	// RegisterType. No operation of this package currently returns it.
	ErrUnknownType = errors.New("recordstore: unknown type")

	// ErrRecordExists is returned by CreateRecord when the store key already
	// carries data (illegal client operation: create on existing record).
	ErrRecordExists = errors.New("recordstore: create on existing record")

	// ErrNotUnloadable is returned by UnloadRecord when status or observers
	// or nested stores forbid unloading.
	ErrNotUnloadable = errors.New("recordstore: record may not be unloaded")

	// ErrDuplicateID is returned by SetIDForStoreKey when id is already
	// mapped to a different store key of the same type.
	ErrDuplicateID = errors.New("recordstore: duplicate id for type")
)
