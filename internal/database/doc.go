// Package database provides connection pool management for PostgreSQL.
//
// The builder reads reference data only:
//   - membership intervals and membership events
//   - corporate actions (splits, dividends)
//   - daily price bars
//
// Snapshot output never touches the database; it is written as columnar files.
package database
