package recordstore

import "log"

// warnf logs a benign-but-notable condition: a write-to-unready record, a
// fetched-is-destroyed skip, a protocol mismatch. These never abort the
// caller — the core must stay up against malformed or stale input.
func warnf(format string, args ...any) {
	log.Printf("recordstore: "+format, args...)
}
