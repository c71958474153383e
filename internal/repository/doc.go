// Package repository is the PostgreSQL access layer for universe reference
// data: membership intervals and events, corporate actions, and daily price
// bars.
//
// Logical table names are mapped to physical, environment-prefixed names by
// TableResolver (test_*, intg_*, bare for prod). Repos hold a pgx pool and
// expose point-in-time query methods; MaterializeEvents folds pending
// membership events into the interval table inside a single transaction.
package repository
