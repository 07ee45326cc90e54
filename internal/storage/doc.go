// Package storage keeps an audit trail of published posts.
//
// It currently supports:
//   - "sqlite": a SQLite database file (modernc.org/sqlite, no cgo)
//   - "file": append-only JSON Lines
//
// The trail is informational: the posting guard does not read it, so a
// restart still forgets cooldowns.
package storage
