package types

import "strings"

// Status is a bitfield combining exactly one core state with any subset of
// modifier flags. Core states and modifiers are orthogonal: a record is
// always in exactly one core state, independent of which modifiers are set.
type Status uint16

// Core states — exactly one is set at any time. Empty is its own bit; the
// zero Status carries no core bit at all (String still renders it "EMPTY").
const (
	Empty Status = 1 << iota
	Ready
	Destroyed
	NonExistent

	// Modifiers — any subset may be set alongside a core state.
	Loading
	Committing
	New
	Dirty
	Obsolete
)

// coreStateMask isolates the mutually-exclusive core-state bits.
const coreStateMask = Empty | Ready | Destroyed | NonExistent

// Core returns the core-state bit of s.
func (s Status) Core() Status { return s & coreStateMask }

// Modifiers returns the modifier bits of s.
func (s Status) Modifiers() Status { return s &^ coreStateMask }

// Is reports whether every bit in want is set in s.
func (s Status) Is(want Status) bool { return s&want == want }

// Any reports whether any bit in want is set in s.
func (s Status) Any(want Status) bool { return s&want != 0 }

// WithCore replaces the core-state bits of s with core, leaving modifiers
// untouched. core must be exactly one of Empty, Ready, Destroyed,
// NonExistent.
func (s Status) WithCore(core Status) Status {
	return (s &^ coreStateMask) | (core & coreStateMask)
}

// String renders a Status for logs, naming set bits in declaration order,
// e.g. "READY|COMMITTING|DIRTY".
func (s Status) String() string {
	if s == 0 {
		return "EMPTY"
	}
	var parts []string
	names := []struct {
		bit  Status
		name string
	}{
		{Empty, "EMPTY"}, {Ready, "READY"}, {Destroyed, "DESTROYED"}, {NonExistent, "NON_EXISTENT"},
		{Loading, "LOADING"}, {Committing, "COMMITTING"}, {New, "NEW"}, {Dirty, "DIRTY"}, {Obsolete, "OBSOLETE"},
	}
	for _, n := range names {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "EMPTY"
	}
	return strings.Join(parts, "|")
}
