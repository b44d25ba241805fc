// Package leveling turns relayed activity into persistent XP and levels.
//
// An award loads the user's record, adds a length-derived delta, applies at
// most one level-up and stores the result in a single store transaction.
// Level-up notifications are queued only after the record is persisted and
// are delivered by a Notifier running on its own goroutine, so a slow or
// failing chat platform never delays or undoes the state change.
//
// Award never reports an error to its caller; XP is a side effect of a
// relay that has already succeeded.
package leveling
