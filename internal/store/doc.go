// package store owns the local mirror of the currently open project.
//
// The [Store] is the single source of truth for the UI: every read goes
// through [Store.Snapshot] and every write through a Store method. Local
// edits are applied optimistically and persisted through a trailing-edge
// [Debouncer]; everything else is remote-first followed by a full mirror
// replacement from the authoritative server snapshot. The mirror is never
// field-merged with server state, so readers never observe a page mixing
// two snapshots.
package store
