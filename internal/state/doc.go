// Package state builds point-in-time universe snapshots.
//
// The Builder walks a date range strictly sequentially. For each date it
// advances the membership cursor, fans out per-instrument work (price
// history, corporate-action adjustment, indicator computation) across a
// bounded worker pool, assembles one snapshot row per active instrument,
// and persists the snapshot. Instruments with missing or unusable history
// degrade to invalid indicator readings; they never abort the date.
// Corrupt reference data (IntegrityError) does abort the build.
//
// Lifecycle hooks observe the walk at day start, snapshot assembly, and day
// end. Hooks are constructed by name through a HookRegistry populated at
// startup, so configuration selects behavior without reflective lookup.
package state
